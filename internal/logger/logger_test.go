package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	Sync()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	return string(data)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		visible  []string
		filtered []string
	}{
		{"debug", []string{"Found mesh object", "Exporting", "Skipping object"}, nil},
		{"info", []string{"Exporting", "Skipping object"}, []string{"Found mesh object"}},
		{"warn", []string{"Skipping object", "Export failed"}, []string{"Exporting"}},
		{"error", []string{"Export failed"}, []string{"Skipping object"}},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "export.log")
			if err := InitWithFileConfig(tt.level, FileConfig{Path: path, MaxSizeMB: 1}, false); err != nil {
				t.Fatal(err)
			}
			defer InitNop()

			Debug("Found mesh object", zap.String("object", "Cube"))
			Info("Exporting", zap.Int("start", 1))
			Warn("Skipping object", zap.String("object", "Curve"))
			Error("Export failed")

			content := readLog(t, path)
			for _, msg := range tt.visible {
				if !strings.Contains(content, msg) {
					t.Errorf("%q missing at level %s", msg, tt.level)
				}
			}
			for _, msg := range tt.filtered {
				if strings.Contains(content, msg) {
					t.Errorf("%q logged at level %s", msg, tt.level)
				}
			}
		})
	}
}

func TestRunFieldTagsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.log")
	if err := InitWithFileConfig("info", FileConfig{Path: path, MaxSizeMB: 1}, false); err != nil {
		t.Fatal(err)
	}
	defer InitNop()

	run := Named("export").With(RunField("3f2c"))
	run.Info("Done", zap.Int("passes", 3))
	Info("Unrelated")

	lines := strings.Split(strings.TrimSpace(readLog(t, path)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if !strings.Contains(lines[0], "export") || !strings.Contains(lines[0], `"run": "3f2c"`) {
		t.Errorf("run line = %q", lines[0])
	}
	if strings.Contains(lines[1], "3f2c") {
		t.Errorf("run ID leaked into global logger: %q", lines[1])
	}
}

func TestRotationKeepsBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.log")
	cfg := FileConfig{Path: path, MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 1}
	if err := InitWithFileConfig("info", cfg, false); err != nil {
		t.Fatal(err)
	}
	defer InitNop()

	// Enough pass lines to cross the 1MB limit at least once.
	pad := strings.Repeat("x", 100)
	for i := 0; i < 15000; i++ {
		Info("Wrote pass", zap.String("file", fmt.Sprintf("scene[%05d].tmod", i)), zap.String("pad", pad))
	}
	Sync()

	logs, err := filepath.Glob(filepath.Join(dir, "export*.log"))
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) < 2 {
		t.Errorf("expected rotated backups, found %v", logs)
	}
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/tmodexport.log")
	if cfg.Path != "/tmp/tmodexport.log" || cfg.MaxSizeMB <= 0 || cfg.MaxBackups <= 0 || !cfg.Compress {
		t.Errorf("DefaultFileConfig = %+v", cfg)
	}
}

func TestInitNopDiscards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.log")
	if err := InitWithFileConfig("debug", FileConfig{Path: path, MaxSizeMB: 1}, false); err != nil {
		t.Fatal(err)
	}
	InitNop()
	Error("after nop")
	Sync()

	if data, err := os.ReadFile(path); err == nil && strings.Contains(string(data), "after nop") {
		t.Error("InitNop still writes to the file")
	}
}

func TestInitLogFilePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"nested directory is created", filepath.Join(dir, "logs", "run", "export.log"), false},
		{"parent is a file", filepath.Join(blocker, "export.log"), true},
		{"path is a directory", dir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitNop()
			before := Log
			err := InitWithFileConfig("info", FileConfig{Path: tt.path, MaxSizeMB: 1}, false)
			defer InitNop()

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if Log != before {
					t.Error("logger replaced despite error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			Info("Exporting")
			if !strings.Contains(readLog(t, tt.path), "Exporting") {
				t.Error("log line not written")
			}
		})
	}
}
