package gltfscene

import (
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/tmodexport/pkg/coord"
	"github.com/Faultbox/tmodexport/pkg/scene"
)

func u32(v uint32) *uint32 { return &v }

func f32(v float32) *float32 { return &v }

// testDocument builds a scene with a textured quad under a translated parent,
// a perspective camera and a point light.
func testDocument() *gltf.Document {
	doc := gltf.NewDocument()

	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2, 0, 2, 3})

	doc.Meshes = []*gltf.Mesh{{
		Name: "Quad",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{gltf.POSITION: pos, gltf.TEXCOORD_0: uv},
			Indices:    u32(idx),
		}},
	}}
	doc.Cameras = []*gltf.Camera{{
		Perspective: &gltf.Perspective{Yfov: 0.5, AspectRatio: f32(2), Znear: 0.1},
	}}
	doc.Extensions = gltf.Extensions{
		lightsExtension: json.RawMessage(`{"lights":[{"type":"point","color":[1,0.5,0.25]}]}`),
	}

	doc.Nodes = []*gltf.Node{
		{Name: "Root", Translation: [3]float32{0, 2, 0}, Children: []uint32{1}},
		{Name: "Quad", Mesh: u32(0)},
		{Name: "Camera", Camera: u32(0)},
		{Name: "Light", Extensions: gltf.Extensions{lightsExtension: json.RawMessage(`{"light":0}`)}},
	}
	doc.Scenes[0].Nodes = []uint32{0, 2, 3}
	return doc
}

func TestNew(t *testing.T) {
	s, err := New(testDocument())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	snap, err := s.SnapshotAtFrame(1)
	if err != nil {
		t.Fatalf("SnapshotAtFrame: %v", err)
	}

	want := []struct {
		name string
		kind scene.Kind
	}{
		{"Root", scene.KindNone},
		{"Quad", scene.KindMesh},
		{"Camera", scene.KindCamera},
		{"Light", scene.KindLamp},
	}
	if len(snap.Objects) != len(want) {
		t.Fatalf("got %d objects, want %d", len(snap.Objects), len(want))
	}
	for i, w := range want {
		o := snap.Objects[i]
		if o.Name != w.name {
			t.Errorf("object %d = %q, want %q", i, o.Name, w.name)
		}
		if k := scene.Classify(o).Kind; k != w.kind {
			t.Errorf("%s: kind %v, want %v", w.name, k, w.kind)
		}
	}
}

func TestMeshAndWorldMatrix(t *testing.T) {
	s, err := New(testDocument())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	snap, _ := s.SnapshotAtFrame(1)
	quad, _ := snap.Lookup("Quad")
	m := quad.Data.(*scene.Mesh)

	if len(m.Vertices) != 4 || len(m.Faces) != 2 {
		t.Fatalf("%d vertices, %d faces", len(m.Vertices), len(m.Faces))
	}
	if !m.HasVertexUV() {
		t.Error("quad lost its texture coordinates")
	}
	// (1,1,0) Y-up is (1,0,1) Z-up.
	if want := (scene.Vertex{1, 0, 1}); !m.Vertices[2].ApproxEqual(want) {
		t.Errorf("vertex 2 = %v, want %v", m.Vertices[2], want)
	}

	// The parent moved 2 units up in Y-up space, which is host Z.
	tr := coord.Row(quad.Matrix, coord.RowTranslation)
	if want := (mgl64.Vec3{0, 0, 2}); !tr.ApproxEqual(want) {
		t.Errorf("translation = %v, want %v", tr, want)
	}
	// Converting back gives the glTF world matrix again.
	engine := coord.Matrix(quad.Matrix)
	if !engine.ApproxEqual(mgl64.Translate3D(0, 2, 0)) {
		t.Errorf("engine matrix = %v", engine)
	}
}

func TestCameraAndDisplay(t *testing.T) {
	s, err := New(testDocument())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d := s.Display()
	if d.Width != 640 || d.Height != 320 {
		t.Errorf("display = %dx%d, want 640x320", d.Width, d.Height)
	}

	snap, _ := s.SnapshotAtFrame(1)
	cam, _ := snap.Lookup("Camera")
	lens := cam.Data.(*scene.Camera).Lens
	want := 16 / (math.Tan(0.25) * 2)
	if math.Abs(lens-want) > 1e-6 {
		t.Errorf("lens = %v, want %v", lens, want)
	}
}

func TestLampColor(t *testing.T) {
	s, _ := New(testDocument())
	snap, _ := s.SnapshotAtFrame(1)
	l, _ := snap.Lookup("Light")
	if got := l.Data.(*scene.Lamp).Color; got != [3]float64{1, 0.5, 0.25} {
		t.Errorf("color = %v", got)
	}
}

func TestLens(t *testing.T) {
	tests := []struct {
		yfov, aspect, want float64
	}{
		{2 * math.Atan(0.5), 1, 32},
		{2 * math.Atan(0.5), 2, 16},
		{0, 1, 0},
		{1, 0, 0},
	}
	for _, tt := range tests {
		if got := Lens(tt.yfov, tt.aspect); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Lens(%v, %v) = %v, want %v", tt.yfov, tt.aspect, got, tt.want)
		}
	}
}

func TestOrthographicUnrecognized(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Cameras = []*gltf.Camera{{Orthographic: &gltf.Orthographic{Xmag: 1, Ymag: 1, Zfar: 10}}}
	doc.Nodes = []*gltf.Node{{Name: "Ortho", Camera: u32(0)}}
	doc.Scenes[0].Nodes = []uint32{0}

	s, err := New(doc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	snap, _ := s.SnapshotAtFrame(1)
	if k := scene.Classify(snap.Objects[0]).Kind; k != scene.KindUnrecognized {
		t.Errorf("kind = %v, want Unrecognized", k)
	}
}

func TestDuplicateNames(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		want  []string
	}{
		{"repeat", []string{"A", "A", ""}, []string{"A", "A.001", "node2"}},
		{"literal suffix first", []string{"Cube", "Cube.001", "Cube"}, []string{"Cube", "Cube.001", "Cube.002"}},
		{"literal suffix last", []string{"Cube", "Cube", "Cube.001"}, []string{"Cube", "Cube.001", "Cube.001.001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := gltf.NewDocument()
			for i, n := range tt.nodes {
				doc.Nodes = append(doc.Nodes, &gltf.Node{Name: n})
				doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(i))
			}

			s, err := New(doc)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			snap, _ := s.SnapshotAtFrame(1)
			for i := range tt.want {
				if got := snap.Objects[i].Name; got != tt.want[i] {
					t.Errorf("name %d = %q, want %q", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestSnapshotsAreFresh(t *testing.T) {
	s, _ := New(testDocument())
	a, _ := s.SnapshotAtFrame(1)
	aq, _ := a.Lookup("Quad")
	aq.Data.(*scene.Mesh).Vertices[0] = scene.Vertex{9, 9, 9}

	b, _ := s.SnapshotAtFrame(2)
	bq, _ := b.Lookup("Quad")
	if got := bq.Data.(*scene.Mesh).Vertices[0]; got == (scene.Vertex{9, 9, 9}) {
		t.Error("mutation leaked into a later snapshot")
	}
}

func TestOpenBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.glb")
	if err := gltf.SaveBinary(testDocument(), path); err != nil {
		t.Fatalf("SaveBinary: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	snap, _ := s.SnapshotAtFrame(1)
	if _, ok := snap.Lookup("Quad"); !ok {
		t.Error("Quad missing after round trip")
	}
}
