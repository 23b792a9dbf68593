package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/Faultbox/tmodexport/internal/config"
	"github.com/Faultbox/tmodexport/internal/export"
	"github.com/Faultbox/tmodexport/internal/host"
	"github.com/Faultbox/tmodexport/internal/logger"
	"github.com/Faultbox/tmodexport/internal/progress"
	"github.com/Faultbox/tmodexport/internal/tmod"
	"github.com/Faultbox/tmodexport/pkg/scene"
)

// overrides collects command-line values. Flags a command does not define
// read as zero and leave the configuration untouched.
func overrides(c *cli.Context) config.Overrides {
	o := config.Overrides{
		ConfigPath:  c.GlobalString("config"),
		Debug:       c.GlobalBool("debug"),
		ScenePath:   c.Args().First(),
		SceneFormat: c.String("format"),
		Width:       c.Int("width"),
		Height:      c.Int("height"),
		FPS:         c.Int("fps"),
		BaseName:    c.String("name"),
		OutputDir:   c.String("out"),
		Listen:      c.String("listen"),
		LogFile:     c.String("log-file"),
	}
	if c.IsSet("start") {
		v := c.Int("start")
		o.StartFrame = &v
	}
	if c.IsSet("end") {
		v := c.Int("end")
		o.EndFrame = &v
	}
	return o
}

// setup loads the configuration, starts logging and opens the scene.
func setup(c *cli.Context) (*config.Config, scene.Source, scene.Display, error) {
	cfg, err := config.Load(overrides(c))
	if err != nil {
		return nil, nil, scene.Display{}, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, nil, scene.Display{}, errors.Wrap(err, "initializing logger")
	}

	src, err := host.Open(cfg.Scene.Format, cfg.Scene.Path)
	if err != nil {
		return nil, nil, scene.Display{}, err
	}
	display, err := cfg.Display.Apply(src.Display())
	if err != nil {
		return nil, nil, scene.Display{}, err
	}
	return cfg, src, display, nil
}

func cmdExport(c *cli.Context) error {
	cfg, src, display, err := setup(c)
	if err != nil {
		return err
	}
	dryRun := c.Bool("dry-run")

	var sink tmod.Sink
	var mem *tmod.MemorySink
	if dryRun {
		mem = tmod.NewMemorySink()
		sink = mem
	} else {
		if err := os.MkdirAll(cfg.Export.OutputDir, 0755); err != nil {
			return errors.Wrap(err, "creating output directory")
		}
		sink = tmod.DirSink{Dir: cfg.Export.OutputDir}
	}

	reporters := progress.Multi{progress.LogReporter{Log: logger.Named("progress")}}
	if cfg.Progress.Listen != "" {
		srv := progress.NewServer(logger.Named("http"))
		if _, err := srv.Start(cfg.Progress.Listen); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("status server shutdown", zap.Error(err))
			}
		}()
		reporters = append(reporters, srv)
	}

	ctrl, err := export.New(src, cfg.Export,
		export.WithDisplay(display),
		export.WithSink(sink),
		export.WithReporter(reporters),
		export.WithLogger(logger.Named("export")),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := ctrl.Export(ctx)
	if report != nil {
		printSummary(os.Stdout, report)
		if mem != nil {
			printFiles(os.Stdout, mem)
		}
	}
	return err
}

func printSummary(w io.Writer, r *export.Report) {
	state := "complete"
	if r.Stopped {
		state = "stopped"
	}
	fmt.Fprintf(w, "Export %s (run %s)\n", state, r.RunID)
	fmt.Fprintf(w, "Passes:      %d\n", len(r.Passes))
	fmt.Fprintf(w, "Files:       %d\n", len(r.Files()))
	fmt.Fprintf(w, "Diagnostics: %d\n", len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		fmt.Fprintf(w, "  %s\n", d)
	}
}

func printFiles(w io.Writer, mem *tmod.MemorySink) {
	sizes := mem.Sizes()
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"File", "Bytes"})
	total := 0
	for _, name := range mem.Names() {
		table.Append([]string{name, fmt.Sprintf("%d", sizes[name])})
		total += sizes[name]
	}
	table.SetFooter([]string{"TOTAL", fmt.Sprintf("%d", total)})
	table.Render()
}

func cmdInspect(c *cli.Context) error {
	cfg, src, display, err := setup(c)
	if err != nil {
		return err
	}

	ctrl, err := export.New(src, cfg.Export,
		export.WithDisplay(display),
		export.WithSink(tmod.NewMemorySink()),
		export.WithLogger(zap.NewNop()),
	)
	if err != nil {
		return err
	}

	fmt.Printf("Scene:   %s\n", cfg.Scene.Path)
	fmt.Printf("Frames:  %d..%d (%d)\n", display.StartFrame, display.EndFrame, display.Frames())
	fmt.Printf("Output:  %dx%d\n", display.Width, display.Height)
	fmt.Println()
	printInventory(os.Stdout, ctrl.Inventory())

	if diags := ctrl.Diagnostics(); len(diags) > 0 {
		fmt.Println()
		fmt.Println("Diagnostics:")
		for _, d := range diags {
			fmt.Printf("  %s\n", d)
		}
	}

	if c.Bool("dump") {
		frame := display.StartFrame
		if c.IsSet("frame") {
			frame = c.Int("frame")
		}
		snap, err := src.SnapshotAtFrame(frame)
		if err != nil {
			return errors.Wrapf(err, "sampling frame %d", frame)
		}
		dump := spew.NewDefaultConfig()
		dump.DisableCapacities = true
		dump.DisablePointerAddresses = true
		fmt.Println()
		dump.Fdump(os.Stdout, snap.Objects)
	}
	return nil
}

// printInventory renders the classified object list as a table.
func printInventory(w io.Writer, inv export.Inventory) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Object", "Kind", "Exported", "Note"})
	for _, e := range inv.Entries {
		exported := e.Classification.Exported() && e.Excluded == ""
		note := e.Excluded
		if note == "" {
			note = e.Classification.Reason
		}
		table.Append([]string{e.Name, e.Classification.Kind.String(), yesNo(exported), note})
	}
	table.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func cmdConfigInit(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.yaml")
	}
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("%s already exists", path)
	}
	if err := config.Default().SaveTo(path); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
