// Package export drives a TMOD export: it classifies the scene's objects once,
// then writes the Base pass and one Update pass per frame.
package export

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/tmodexport/internal/config"
	"github.com/Faultbox/tmodexport/internal/logger"
	"github.com/Faultbox/tmodexport/internal/progress"
	"github.com/Faultbox/tmodexport/internal/tmod"
	"github.com/Faultbox/tmodexport/pkg/scene"
)

// Progress messages.
const (
	StatusBase = "Exporting Base Frame"
	StatusDone = "Done"
)

// Entry is one object found at the start frame.
type Entry struct {
	Name           string
	Classification scene.Classification
	// Excluded is set when an exportable object is left out of the run.
	Excluded string
}

// Inventory is the classified object list of a run.
type Inventory struct {
	Entries []Entry
	Meshes  []string
	Lamps   []string
	Cameras []string
}

// Camera returns the camera used for the run, or "" when there is none.
func (inv *Inventory) Camera() string {
	if len(inv.Cameras) == 0 {
		return ""
	}
	return inv.Cameras[0]
}

// Report summarizes an export run.
type Report struct {
	RunID       string
	Passes      []Pass
	Diagnostics []string
	Stopped     bool
}

// Files returns every written file in creation order.
func (r *Report) Files() []string {
	var files []string
	for _, p := range r.Passes {
		files = append(files, p.MeshFiles...)
		files = append(files, p.File)
	}
	return files
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink sets the output sink. The default writes into the configured
// output directory.
func WithSink(s tmod.Sink) Option {
	return func(c *Controller) { c.sink = s }
}

// WithReporter sets the progress reporter.
func WithReporter(r progress.Reporter) Option {
	return func(c *Controller) { c.reporter = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithDisplay replaces the display settings reported by the source.
func WithDisplay(d scene.Display) Option {
	return func(c *Controller) { c.display = &d }
}

// Controller runs an export.
type Controller struct {
	source   scene.Source
	cfg      config.ExportConfig
	display  *scene.Display
	sink     tmod.Sink
	reporter progress.Reporter
	log      *zap.Logger

	inventory   Inventory
	diagnostics []string
}

// New validates the settings, samples the scene at the start frame and
// classifies every object. Diagnostics about skipped objects and cameras are
// recorded here, once per run.
func New(src scene.Source, cfg config.ExportConfig, opts ...Option) (*Controller, error) {
	c := &Controller{
		source:   src,
		reporter: progress.Nop{},
		log:      logger.Named("export"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid export settings")
	}
	c.cfg = cfg.Normalize()

	if c.display == nil {
		d := src.Display()
		c.display = &d
	}
	if err := validateDisplay(*c.display); err != nil {
		return nil, err
	}
	if c.sink == nil {
		c.sink = tmod.DirSink{Dir: c.cfg.OutputDir}
	}

	snap, err := src.SnapshotAtFrame(c.display.StartFrame)
	if err != nil {
		return nil, errors.Wrapf(err, "sampling frame %d", c.display.StartFrame)
	}
	c.classify(snap)
	return c, nil
}

func validateDisplay(d scene.Display) error {
	if d.EndFrame < d.StartFrame {
		return errors.Wrapf(config.ErrInvalidFrameRange, "[%d, %d]", d.StartFrame, d.EndFrame)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return errors.Wrapf(config.ErrInvalidResolution, "%dx%d", d.Width, d.Height)
	}
	return nil
}

func (c *Controller) classify(snap *scene.Snapshot) {
	inv := &c.inventory
	for _, o := range snap.Objects {
		e := Entry{Name: o.Name, Classification: scene.Classify(o)}

		switch e.Classification.Kind {
		case scene.KindMesh:
			if tmod.HasAnyPrefix(o.Name, c.cfg.NoSavePrefixes) {
				e.Excluded = "no-save prefix"
				c.diag("Ignoring mesh object %q: no-save prefix", o.Name)
			} else {
				c.log.Debug("Found mesh object", zap.String("object", o.Name))
				inv.Meshes = append(inv.Meshes, o.Name)
			}
		case scene.KindCamera:
			c.log.Debug("Found camera object", zap.String("object", o.Name))
			inv.Cameras = append(inv.Cameras, o.Name)
		case scene.KindLamp:
			c.log.Debug("Found lamp object", zap.String("object", o.Name))
			inv.Lamps = append(inv.Lamps, o.Name)
		default:
			c.diag("Skipping object %q: %s", o.Name, e.Classification.Reason)
		}
		inv.Entries = append(inv.Entries, e)
	}

	switch len(inv.Cameras) {
	case 0:
		c.diag("No camera found, the export will have no camera")
	case 1:
	default:
		c.diag("Found %d cameras, using %q", len(inv.Cameras), inv.Cameras[0])
		for i := range inv.Entries {
			e := &inv.Entries[i]
			if e.Classification.Kind == scene.KindCamera && e.Name != inv.Cameras[0] {
				e.Excluded = "not the first camera"
			}
		}
	}
}

func (c *Controller) diag(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.log.Warn(msg)
	c.diagnostics = append(c.diagnostics, msg)
}

// Inventory returns the classified object list.
func (c *Controller) Inventory() Inventory {
	return c.inventory
}

// Diagnostics returns the diagnostics recorded so far.
func (c *Controller) Diagnostics() []string {
	return append([]string(nil), c.diagnostics...)
}

// Display returns the effective display settings.
func (c *Controller) Display() scene.Display {
	return *c.display
}

// Config returns the normalized export settings.
func (c *Controller) Config() config.ExportConfig {
	return c.cfg
}

// Export writes the Base pass followed by one Update pass per frame. A stop
// request, through ctx or the reporter, is honoured between passes; files
// already written stay in place. Write failures abort the run.
func (c *Controller) Export(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.New().String()}
	log := c.log.With(logger.RunField(report.RunID))
	defer c.reporter.Done()

	d := &Driver{
		Source:  c.source,
		Config:  c.cfg,
		Display: *c.display,
		Sink:    c.sink,
		Log:     log,
		Meshes:  c.inventory.Meshes,
		Lamps:   c.inventory.Lamps,
		Camera:  c.inventory.Camera(),
	}

	log.Info("Exporting",
		zap.Int("start", c.display.StartFrame),
		zap.Int("end", c.display.EndFrame),
		zap.Int("meshes", len(d.Meshes)),
		zap.String("output", c.cfg.OutputDir))

	finish := func(err error) (*Report, error) {
		report.Diagnostics = append(c.Diagnostics(), report.Diagnostics...)
		return report, err
	}

	c.reporter.Status(StatusBase)
	pass, err := d.WritePass(c.display.StartFrame, 0, tmod.FullDefinition)
	if err != nil {
		return finish(errors.Wrap(err, "base pass"))
	}
	report.Passes = append(report.Passes, pass)
	report.Diagnostics = append(report.Diagnostics, meshDiagnostics(pass)...)

	index := 0
	for frame := c.display.StartFrame; frame <= c.display.EndFrame; frame++ {
		if err := ctx.Err(); err != nil {
			report.Stopped = true
			log.Warn("Export cancelled", zap.Int("frame", frame))
			return finish(errors.Wrap(err, "export cancelled"))
		}
		if c.reporter.StopRequested() {
			report.Stopped = true
			log.Warn("Export stopped on request", zap.Int("frame", frame))
			return finish(nil)
		}

		c.reporter.Status(fmt.Sprintf("Exporting Frame %d of %d to %d", frame, c.display.StartFrame, c.display.EndFrame))
		pass, err := d.WritePass(frame, index, tmod.UpdateOnly)
		if err != nil {
			return finish(errors.Wrapf(err, "frame %d", frame))
		}
		report.Passes = append(report.Passes, pass)
		index++
	}

	log.Info(StatusDone, zap.Int("passes", len(report.Passes)))
	c.reporter.Status(StatusDone)
	return finish(nil)
}

func meshDiagnostics(p Pass) []string {
	var out []string
	for _, o := range p.Objects {
		for _, d := range o.Mesh.Diagnostics {
			out = append(out, o.Name+": "+d)
		}
	}
	return out
}
