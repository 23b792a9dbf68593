package encoding

import "testing"

func TestDecodeName(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"ascii", []byte("Cube"), "Cube"},
		{"utf8", []byte("Würfel"), "Würfel"},
		{"latin1", []byte{'W', 0xfc, 'r', 'f', 'e', 'l'}, "Würfel"},
		{"null padded", []byte{'L', 'a', 'm', 'p', 0, 0}, "Lamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeName(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFileTag(t *testing.T) {
	if got := FileTag("scene", "Water_Plane"); got != "scene-water_plane" {
		t.Errorf("expected scene-water_plane, got %s", got)
	}
	// Only the object name component is lower-cased.
	if got := FileTag("Scene", "ARM"); got != "Scene-arm" {
		t.Errorf("expected Scene-arm, got %s", got)
	}
}

func TestLowerName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Cube", "cube"},
		{"WÜRFEL", "würfel"},
		// Sigma lowers to σ wherever it appears.
		{"ΚΟΣ", "κοσ"},
		{"ΣΑ_ΟΣ", "σα_οσ"},
	}
	for _, tt := range tests {
		if got := LowerName(tt.in); got != tt.want {
			t.Errorf("LowerName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
