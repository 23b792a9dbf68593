package config

// Overrides carries command-line values. Zero values leave the loaded
// configuration untouched.
type Overrides struct {
	ConfigPath  string
	Debug       bool
	FPS         int
	BaseName    string
	OutputDir   string
	ScenePath   string
	SceneFormat string
	StartFrame  *int
	EndFrame    *int
	Width       int
	Height      int
	Listen      string
	LogFile     string
}

// apply applies CLI flag overrides to the config.
func (o Overrides) apply(cfg *Config) {
	if o.Debug {
		cfg.Logging.Level = "debug"
	}
	if o.LogFile != "" {
		cfg.Logging.LogFile = o.LogFile
	}
	if o.FPS > 0 {
		cfg.Export.FPS = o.FPS
	}
	if o.BaseName != "" {
		cfg.Export.BaseName = o.BaseName
	}
	if o.OutputDir != "" {
		cfg.Export.OutputDir = o.OutputDir
	}
	if o.ScenePath != "" {
		cfg.Scene.Path = o.ScenePath
	}
	if o.SceneFormat != "" {
		cfg.Scene.Format = o.SceneFormat
	}
	if o.StartFrame != nil {
		cfg.Display.StartFrame = o.StartFrame
	}
	if o.EndFrame != nil {
		cfg.Display.EndFrame = o.EndFrame
	}
	if o.Width > 0 {
		cfg.Display.Width = o.Width
	}
	if o.Height > 0 {
		cfg.Display.Height = o.Height
	}
	if o.Listen != "" {
		cfg.Progress.Listen = o.Listen
	}
}
