// Package yamlscene reads a baked scene dump written as YAML.
//
// A dump lists the display settings and every object with its base pose.
// Animated objects carry sparse per-frame overrides; a frame without an
// override holds the nearest earlier one.
//
//	display: {start_frame: 1, end_frame: 24, width: 640, height: 480}
//	objects:
//	  - name: Cube
//	    type: mesh
//	    matrix: [[1,0,0,0],[0,1,0,0],[0,0,1,0],[0,0,0,1]]
//	    mesh:
//	      vertices: [[0,0,0],[1,0,0],[1,1,0],[0,1,0]]
//	      faces:
//	        - [0,1,2,3]
//	        - {verts: [0,1,2], uv: [[0,0],[1,0],[1,1]]}
//	      vertex_uv: [[0,0],[1,0],[1,1],[0,1]]
//	    frames:
//	      12: {matrix: [[1,0,0,0],[0,1,0,0],[0,0,1,0],[0,0,2,1]]}
//	  - name: Camera
//	    type: camera
//	    camera: {lens: 35}
package yamlscene

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/tmodexport/pkg/coord"
	"github.com/Faultbox/tmodexport/pkg/encoding"
	"github.com/Faultbox/tmodexport/pkg/scene"
)

// Object types.
const (
	TypeMesh   = "mesh"
	TypeCamera = "camera"
	TypeLamp   = "lamp"
	TypeEmpty  = "empty"
)

// Document is the root of a scene dump.
type Document struct {
	Display DisplayDoc  `yaml:"display"`
	Objects []ObjectDoc `yaml:"objects"`
}

// DisplayDoc holds the scene-global output settings.
type DisplayDoc struct {
	StartFrame int `yaml:"start_frame"`
	EndFrame   int `yaml:"end_frame"`
	Width      int `yaml:"width"`
	Height     int `yaml:"height"`
}

// ObjectDoc is one scene object.
type ObjectDoc struct {
	Name   string           `yaml:"name"`
	Type   string           `yaml:"type"`
	Matrix *[4][4]float64   `yaml:"matrix,omitempty"`
	Mesh   *MeshDoc         `yaml:"mesh,omitempty"`
	Camera *CameraDoc       `yaml:"camera,omitempty"`
	Lamp   *LampDoc         `yaml:"lamp,omitempty"`
	Error  string           `yaml:"error,omitempty"`
	Frames map[int]FrameDoc `yaml:"frames,omitempty"`
}

// MeshDoc is polygon geometry.
type MeshDoc struct {
	Vertices [][3]float64 `yaml:"vertices"`
	Faces    []FaceDoc    `yaml:"faces"`
	VertexUV [][2]float64 `yaml:"vertex_uv,omitempty"`
}

// FaceDoc is a polygon. It decodes from a plain index list or from a mapping
// with verts and uv keys.
type FaceDoc struct {
	Verts []int        `yaml:"verts"`
	UV    [][2]float64 `yaml:"uv,omitempty"`
}

// UnmarshalYAML accepts both face notations.
func (f *FaceDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&f.Verts)
	}
	type plain FaceDoc
	return node.Decode((*plain)(f))
}

// CameraDoc holds camera parameters.
type CameraDoc struct {
	Lens float64 `yaml:"lens"`
}

// LampDoc holds light parameters.
type LampDoc struct {
	Color [3]float64 `yaml:"color"`
}

// FrameDoc overrides the pose of an object at one frame.
type FrameDoc struct {
	Matrix   *[4][4]float64 `yaml:"matrix,omitempty"`
	Vertices [][3]float64   `yaml:"vertices,omitempty"`
}

// Unsupported is the payload of objects whose type the exporter does not
// handle (curves, metaballs and so on).
type Unsupported struct {
	Type string
}

// Scene is a scene.Source backed by a parsed dump.
type Scene struct {
	doc Document
	// frame keys of each object's overrides, ascending
	keys [][]int
}

// Open reads and parses the dump at path.
func Open(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading scene dump")
	}
	return Parse(data)
}

// Parse parses a dump.
func Parse(data []byte) (*Scene, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing scene dump")
	}
	return New(doc)
}

// New validates doc and builds a scene from it.
func New(doc Document) (*Scene, error) {
	doc.Objects = append([]ObjectDoc(nil), doc.Objects...)
	s := &Scene{doc: doc, keys: make([][]int, len(doc.Objects))}

	seen := make(map[string]bool, len(doc.Objects))
	for i := range doc.Objects {
		o := &doc.Objects[i]
		o.Name = encoding.DecodeName([]byte(o.Name))
		if o.Name == "" {
			return nil, errors.Errorf("object %d has no name", i)
		}
		if seen[o.Name] {
			return nil, errors.Errorf("duplicate object name %q", o.Name)
		}
		seen[o.Name] = true

		keys := make([]int, 0, len(o.Frames))
		for frame, fd := range o.Frames {
			if len(fd.Vertices) == 0 {
				keys = append(keys, frame)
				continue
			}
			if o.Mesh == nil {
				return nil, errors.Errorf("object %q: frame %d overrides vertices of a non-mesh", o.Name, frame)
			}
			if len(fd.Vertices) != len(o.Mesh.Vertices) {
				return nil, errors.Errorf("object %q: frame %d has %d vertices, base pose has %d",
					o.Name, frame, len(fd.Vertices), len(o.Mesh.Vertices))
			}
			keys = append(keys, frame)
		}
		sort.Ints(keys)
		s.keys[i] = keys
	}

	return s, nil
}

// Display returns the dump's display settings.
func (s *Scene) Display() scene.Display {
	return scene.Display{
		StartFrame: s.doc.Display.StartFrame,
		EndFrame:   s.doc.Display.EndFrame,
		Width:      s.doc.Display.Width,
		Height:     s.doc.Display.Height,
	}
}

// SnapshotAtFrame resolves every object at frame. All returned structures are
// freshly allocated.
func (s *Scene) SnapshotAtFrame(frame int) (*scene.Snapshot, error) {
	snap := &scene.Snapshot{Frame: frame, Objects: make([]*scene.Object, 0, len(s.doc.Objects))}
	for i := range s.doc.Objects {
		snap.Objects = append(snap.Objects, s.resolve(i, frame))
	}
	return snap, nil
}

func (s *Scene) resolve(i, frame int) *scene.Object {
	od := &s.doc.Objects[i]

	matrix := od.Matrix
	vertices := meshVertices(od.Mesh)
	for _, key := range s.keys[i] {
		if key > frame {
			break
		}
		fd := od.Frames[key]
		if fd.Matrix != nil {
			matrix = fd.Matrix
		}
		if len(fd.Vertices) > 0 {
			vertices = fd.Vertices
		}
	}

	obj := &scene.Object{Name: od.Name, Matrix: mgl64.Ident4()}
	if matrix != nil {
		obj.Matrix = coord.HostMatrix(*matrix)
	}
	if od.Error != "" {
		obj.DataErr = errors.New(od.Error)
		return obj
	}

	switch od.Type {
	case TypeMesh:
		if od.Mesh != nil {
			obj.Data = buildMesh(od.Mesh, vertices)
		} else {
			obj.Data = (*scene.Mesh)(nil)
		}
	case TypeCamera:
		if od.Camera != nil {
			obj.Data = &scene.Camera{Lens: od.Camera.Lens}
		} else {
			obj.Data = (*scene.Camera)(nil)
		}
	case TypeLamp:
		if od.Lamp != nil {
			obj.Data = &scene.Lamp{Color: od.Lamp.Color}
		} else {
			obj.Data = (*scene.Lamp)(nil)
		}
	case "", TypeEmpty:
	default:
		obj.Data = &Unsupported{Type: od.Type}
	}
	return obj
}

func meshVertices(m *MeshDoc) [][3]float64 {
	if m == nil {
		return nil
	}
	return m.Vertices
}

func buildMesh(md *MeshDoc, vertices [][3]float64) *scene.Mesh {
	m := &scene.Mesh{
		Vertices: make([]scene.Vertex, len(vertices)),
		Faces:    make([]scene.Face, len(md.Faces)),
	}
	for i, v := range vertices {
		m.Vertices[i] = scene.Vertex(v)
	}
	for i, fd := range md.Faces {
		f := scene.Face{Verts: append([]int(nil), fd.Verts...)}
		if len(fd.UV) > 0 {
			f.UV = make([]scene.UV, len(fd.UV))
			for j, uv := range fd.UV {
				f.UV[j] = scene.UV(uv)
			}
		}
		m.Faces[i] = f
	}
	if len(md.VertexUV) > 0 {
		m.VertexUV = make([]scene.UV, len(md.VertexUV))
		for i, uv := range md.VertexUV {
			m.VertexUV[i] = scene.UV(uv)
		}
	}
	return m
}

// String describes the payload for diagnostics.
func (u *Unsupported) String() string {
	return fmt.Sprintf("unsupported %s", u.Type)
}
