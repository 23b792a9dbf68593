package tmod

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/Faultbox/tmodexport/pkg/coord"
	"github.com/Faultbox/tmodexport/pkg/encoding"
	"github.com/Faultbox/tmodexport/pkg/scene"
)

// ErrNotMesh is returned when a wrapper is requested for a non-mesh object.
var ErrNotMesh = errors.New("object has no mesh payload")

// Serializer writes per-object wrapper blocks and the mesh files they
// reference. Mesh files are created on Sink.
type Serializer struct {
	BaseName         string
	NoUpdatePrefixes []string
	Sink             Sink
}

// ObjectResult describes one wrapper write.
type ObjectResult struct {
	Name     string // wrapper name, "<base>-<object name>"
	MeshFile string // empty when skipped
	Skipped  bool   // no-update object on an update pass
	Mesh     MeshStats
}

// WrapperName returns "<base>-<object name>".
func (s *Serializer) WrapperName(objName string) string {
	return s.BaseName + "-" + objName
}

// MeshFileName returns the mesh file for an object: "<base>-<lower>.sm" for
// full definitions, "<base>-<lower>[NNNNN].sm" for updates.
func (s *Serializer) MeshFileName(objName string, index int, mode Mode) string {
	tag := encoding.FileTag(s.BaseName, objName)
	if mode == UpdateOnly {
		return fmt.Sprintf("%s[%05d].sm", tag, index)
	}
	return tag + ".sm"
}

// SkipsUpdates reports whether objName matches a no-update prefix.
func (s *Serializer) SkipsUpdates(objName string) bool {
	return HasAnyPrefix(objName, s.NoUpdatePrefixes)
}

// HasAnyPrefix reports whether name starts with any of prefixes.
func HasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// WriteHeader writes the file header of a .tmod file.
func WriteHeader(w *Writer) {
	w.Printf("#jot\n\n")
}

// WriteObject writes the wrapper block for a mesh object, enclosed in a CREATE
// (full definition) or UPDATE_GEOM (update) command, and writes the referenced
// mesh file. On update passes objects matching a no-update prefix are skipped
// and nothing is written.
func (s *Serializer) WriteObject(w *Writer, obj *scene.Object, index int, mode Mode) (ObjectResult, error) {
	mesh, ok := obj.Data.(*scene.Mesh)
	if !ok || mesh == nil {
		return ObjectResult{}, errors.Wrapf(ErrNotMesh, "object %q", obj.Name)
	}

	res := ObjectResult{Name: s.WrapperName(obj.Name)}
	if mode == UpdateOnly && s.SkipsUpdates(obj.Name) {
		res.Skipped = true
		return res, nil
	}
	res.MeshFile = s.MeshFileName(obj.Name, index, mode)

	command := "CREATE"
	fileKey := "mesh_file"
	if mode == UpdateOnly {
		command = "UPDATE_GEOM"
		fileKey = "mesh_update_file"
	}

	w.Line(0, "%s\t{ %s", command, res.Name)
	s.writeTexbody(w, obj, fileKey, res.MeshFile, 1)
	w.Line(1, "}")
	if err := w.Err(); err != nil {
		return res, err
	}

	tag := encoding.FileTag(s.BaseName, obj.Name)
	err := WriteFile(s.Sink, res.MeshFile, func(mw *Writer) error {
		stats, err := WriteMesh(mw, mesh, mode, tag)
		res.Mesh = stats
		mw.Printf("\n")
		return err
	})
	return res, err
}

// writeTexbody writes the TEXBODY block at the given indentation.
func (s *Serializer) writeTexbody(w *Writer, obj *scene.Object, fileKey, fileName string, tabs int) {
	w.Line(tabs, "TEXBODY\t{")
	w.Line(tabs+1, "name\t%s", s.WrapperName(obj.Name))
	w.Line(tabs+1, "xform\t%s", formatMatrix(coord.Matrix(obj.Matrix)))

	// Transform binding: no inputs, kept for format compatibility.
	w.Line(tabs+1, "xfdef\t{ DEFINER")
	w.Line(tabs+1, "\tDEFINER\t{")
	w.Line(tabs+1, "\t\tout_mask\t1")
	w.Line(tabs+1, "\t\tinputs\t{ }")
	w.Line(tabs+1, "\t\t} }")

	w.Line(tabs+1, "color\t{1 1 1 }")
	w.Line(tabs+1, "%s\t{ %s }", fileKey, fileName)
	w.Line(tabs+1, "}")
}
