// Package config handles exporter configuration loading and management.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/Faultbox/tmodexport/pkg/scene"
)

// Config holds all exporter settings.
type Config struct {
	Export   ExportConfig   `yaml:"export"`
	Scene    SceneConfig    `yaml:"scene"`
	Display  DisplayConfig  `yaml:"display"`
	Logging  LoggingConfig  `yaml:"logging"`
	Progress ProgressConfig `yaml:"progress"`
}

// ExportConfig holds the settings of one export run.
type ExportConfig struct {
	FPS              int      `yaml:"fps"`
	BaseName         string   `yaml:"base_name"`          // Namespace for every generated file
	OutputDir        string   `yaml:"output_dir"`         // Always ends with a separator after Normalize
	NoSavePrefixes   []string `yaml:"no_save_prefixes"`   // Meshes never exported
	NoUpdatePrefixes []string `yaml:"no_update_prefixes"` // Meshes written at the base frame only
}

// SceneConfig selects the scene source.
type SceneConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // yaml, gltf or obj; empty picks by extension
}

// DisplayConfig overrides the display settings reported by the scene source.
// Zero width/height and nil frames keep the source values.
type DisplayConfig struct {
	StartFrame *int `yaml:"start_frame"`
	EndFrame   *int `yaml:"end_frame"`
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ProgressConfig holds progress reporting settings.
type ProgressConfig struct {
	Listen string `yaml:"listen"` // Address of the status server; empty disables it
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			FPS:              12,
			BaseName:         "scene",
			OutputDir:        "." + string(os.PathSeparator),
			NoSavePrefixes:   []string{"Proto", "Data"},
			NoUpdatePrefixes: []string{"Water_"},
		},
		Scene: SceneConfig{
			Path: "scene.yaml",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Export configuration errors.
var (
	ErrInvalidFPS      = errors.New("fps must be positive")
	ErrEmptyBaseName   = errors.New("base name is empty")
	ErrInvalidBaseName = errors.New("base name must not contain path separators")
	ErrEmptyOutputDir  = errors.New("output directory is empty")
)

// Validate checks the export settings.
func (e ExportConfig) Validate() error {
	switch {
	case e.FPS <= 0:
		return errors.Wrapf(ErrInvalidFPS, "got %d", e.FPS)
	case e.BaseName == "":
		return ErrEmptyBaseName
	case strings.ContainsAny(e.BaseName, `/\`):
		return errors.Wrapf(ErrInvalidBaseName, "got %q", e.BaseName)
	case e.OutputDir == "":
		return ErrEmptyOutputDir
	}
	return nil
}

// Normalize returns a copy with a trailing separator on the output directory
// and private copies of the prefix lists.
func (e ExportConfig) Normalize() ExportConfig {
	out := e
	if out.OutputDir != "" && !strings.HasSuffix(out.OutputDir, "/") && !strings.HasSuffix(out.OutputDir, string(os.PathSeparator)) {
		out.OutputDir += string(os.PathSeparator)
	}
	out.NoSavePrefixes = append([]string(nil), e.NoSavePrefixes...)
	out.NoUpdatePrefixes = append([]string(nil), e.NoUpdatePrefixes...)
	return out
}

// ErrInvalidFrameRange is returned when the end frame precedes the start frame.
var ErrInvalidFrameRange = errors.New("end frame precedes start frame")

// ErrInvalidResolution is returned for a non-positive output resolution.
var ErrInvalidResolution = errors.New("output resolution must be positive")

// Apply overlays the configured values on the source display settings and
// validates the result.
func (d DisplayConfig) Apply(src scene.Display) (scene.Display, error) {
	out := src
	if d.StartFrame != nil {
		out.StartFrame = *d.StartFrame
	}
	if d.EndFrame != nil {
		out.EndFrame = *d.EndFrame
	}
	if d.Width > 0 {
		out.Width = d.Width
	}
	if d.Height > 0 {
		out.Height = d.Height
	}

	if out.EndFrame < out.StartFrame {
		return out, errors.Wrapf(ErrInvalidFrameRange, "[%d, %d]", out.StartFrame, out.EndFrame)
	}
	if out.Width <= 0 || out.Height <= 0 {
		return out, errors.Wrapf(ErrInvalidResolution, "%dx%d", out.Width, out.Height)
	}
	return out, nil
}
