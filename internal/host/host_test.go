package host

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
		err  bool
	}{
		{"scene.yaml", FormatYAML, false},
		{"scene.YML", FormatYAML, false},
		{"a/b/model.gltf", FormatGLTF, false},
		{"model.glb", FormatGLTF, false},
		{"mesh.obj", FormatOBJ, false},
		{"scene.blend", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		if tt.err {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("DetectFormat(%q) error = %v, want ErrUnknownFormat", tt.path, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, %v; want %q", tt.path, got, err, tt.want)
		}
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	objPath := filepath.Join(dir, "tri.obj")
	if err := os.WriteFile(objPath, []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\no Tri\nf 1 2 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	yamlPath := filepath.Join(dir, "scene.yaml")
	if err := os.WriteFile(yamlPath, []byte("display: {start_frame: 1, end_frame: 2, width: 4, height: 3}\nobjects: [{name: A}]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	src, err := Open("", objPath)
	if err != nil {
		t.Fatalf("Open obj: %v", err)
	}
	snap, err := src.SnapshotAtFrame(1)
	if err != nil || len(snap.Objects) != 1 || snap.Objects[0].Name != "Tri" {
		t.Errorf("obj snapshot = %+v, %v", snap, err)
	}

	src, err = Open("", yamlPath)
	if err != nil {
		t.Fatalf("Open yaml: %v", err)
	}
	if d := src.Display(); d.EndFrame != 2 || d.Width != 4 {
		t.Errorf("yaml display = %+v", d)
	}

	// An explicit format wins over the extension.
	if _, err := Open(FormatYAML, objPath); err == nil {
		t.Error("obj parsed as yaml without error")
	}
	if _, err := Open("fbx", objPath); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("unknown format: got %v", err)
	}
	if _, err := Open("", filepath.Join(dir, "missing.obj")); err == nil {
		t.Error("missing file opened")
	}
}
