package export

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/tmodexport/internal/config"
	"github.com/Faultbox/tmodexport/internal/tmod"
	"github.com/Faultbox/tmodexport/pkg/scene"
)

// ErrObjectMissing is returned when an object found at the start frame is
// absent from a later snapshot.
var ErrObjectMissing = errors.New("object missing from snapshot")

// Driver writes one .tmod file per pass. The object lists are fixed for the
// whole run.
type Driver struct {
	Source  scene.Source
	Config  config.ExportConfig
	Display scene.Display
	Sink    tmod.Sink
	Log     *zap.Logger

	Meshes []string
	Lamps  []string
	Camera string // empty when the scene has no usable camera
}

// Pass describes one written .tmod file.
type Pass struct {
	File      string
	Frame     int
	Index     int
	Mode      tmod.Mode
	Objects   []tmod.ObjectResult
	MeshFiles []string
}

// BaseFileName returns "<base>.tmod".
func (d *Driver) BaseFileName() string {
	return d.Config.BaseName + ".tmod"
}

// UpdateFileName returns "<base>[NNNNN].tmod".
func (d *Driver) UpdateFileName(index int) string {
	return fmt.Sprintf("%s[%05d].tmod", d.Config.BaseName, index)
}

// FileName returns the .tmod file written by a pass.
func (d *Driver) FileName(index int, mode tmod.Mode) string {
	if mode == tmod.UpdateOnly {
		return d.UpdateFileName(index)
	}
	return d.BaseFileName()
}

// WritePass samples the scene at frame and writes the pass file and every mesh
// file it references. The Base pass is FullDefinition and also carries the
// window and view commands.
func (d *Driver) WritePass(frame, index int, mode tmod.Mode) (Pass, error) {
	pass := Pass{File: d.FileName(index, mode), Frame: frame, Index: index, Mode: mode}

	snap, err := d.Source.SnapshotAtFrame(frame)
	if err != nil {
		return pass, errors.Wrapf(err, "sampling frame %d", frame)
	}

	ser := &tmod.Serializer{
		BaseName:         d.Config.BaseName,
		NoUpdatePrefixes: d.Config.NoUpdatePrefixes,
		Sink:             d.Sink,
	}

	d.Log.Info("Writing file", zap.String("file", pass.File), zap.Int("frame", frame), zap.Stringer("mode", mode))

	// The pass body is assembled in memory so that only one file is open at a
	// time: mesh files are written while the body is built, the .tmod last.
	var body bytes.Buffer
	err = func() error {
		w := tmod.NewWriter(&body)
		tmod.WriteHeader(w)

		for _, name := range d.Meshes {
			obj, err := lookup(snap, name)
			if err != nil {
				return err
			}
			res, err := ser.WriteObject(w, obj, index, mode)
			if err != nil {
				return err
			}
			pass.Objects = append(pass.Objects, res)
			if res.MeshFile != "" {
				pass.MeshFiles = append(pass.MeshFiles, res.MeshFile)
			}
			for _, diag := range res.Mesh.Diagnostics {
				d.Log.Warn(diag, zap.String("object", name))
			}
		}

		for _, name := range d.Lamps {
			obj, err := lookup(snap, name)
			if err != nil {
				return err
			}
			d.Log.Debug("lamp has no output", zap.String("object", name))
			if err := tmod.WriteLamp(w, obj); err != nil {
				return err
			}
		}

		if d.Camera != "" {
			obj, err := lookup(snap, d.Camera)
			if err != nil {
				return err
			}
			if err := tmod.WriteCamera(w, obj, d.Display); err != nil {
				return err
			}
		}

		if mode == tmod.FullDefinition {
			if err := tmod.WriteWindow(w, d.Display.Width, d.Display.Height); err != nil {
				return err
			}
			if err := tmod.WriteView(w, d.Config.FPS, d.Display.StartFrame, d.Display.EndFrame, d.Config.BaseName); err != nil {
				return err
			}
		}
		return w.Flush()
	}()
	if err != nil {
		return pass, errors.Wrapf(err, "building %s", pass.File)
	}

	err = tmod.WriteFile(d.Sink, pass.File, func(w *tmod.Writer) error {
		w.Printf("%s", body.Bytes())
		return w.Err()
	})
	return pass, err
}

func lookup(snap *scene.Snapshot, name string) (*scene.Object, error) {
	obj, ok := snap.Lookup(name)
	if !ok {
		return nil, errors.Wrapf(ErrObjectMissing, "%q at frame %d", name, snap.Frame)
	}
	return obj, nil
}
