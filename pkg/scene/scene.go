// Package scene defines the plain scene structures handed to the exporter by a
// host integration: objects with a transform and a typed payload, resolved for
// a single frame.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Display holds the scene-global output settings.
type Display struct {
	StartFrame int
	EndFrame   int
	Width      int
	Height     int
}

// DefaultDisplay is used by sources that carry no display settings of their
// own: a single frame at 640x480.
var DefaultDisplay = Display{StartFrame: 1, EndFrame: 1, Width: 640, Height: 480}

// Aspect returns width/height.
func (d Display) Aspect() float64 {
	if d.Height == 0 {
		return 0
	}
	return float64(d.Width) / float64(d.Height)
}

// Frames returns the number of frames in the inclusive range.
func (d Display) Frames() int {
	if d.EndFrame < d.StartFrame {
		return 0
	}
	return d.EndFrame - d.StartFrame + 1
}

// Object is a named scene object resolved at one frame.
//
// Matrix is in host convention: a row-vector matrix where row 3 holds the
// translation and rows 0-2 the local basis vectors. Data is one of *Mesh,
// *Camera, *Lamp, nil, or an adapter-specific value the exporter does not
// understand. DataErr is set when the host could not provide the payload.
type Object struct {
	Name    string
	Matrix  mgl64.Mat4
	Data    any
	DataErr error
}

// Snapshot is the full object list at one frame, in discovery order.
type Snapshot struct {
	Frame   int
	Objects []*Object
}

// Lookup returns the object with the given name.
func (s *Snapshot) Lookup(name string) (*Object, bool) {
	for _, o := range s.Objects {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// Source is a host scene that can be sampled per frame.
//
// SnapshotAtFrame must build fresh structures on every call; geometry from a
// previous frame must never leak into a later one.
type Source interface {
	Display() Display
	SnapshotAtFrame(frame int) (*Snapshot, error)
}

// Vertex is a host-convention vertex position.
type Vertex = mgl64.Vec3

// UV is a texture coordinate pair.
type UV = mgl64.Vec2

// Face is a polygon referencing mesh vertices by index.
// UV, when present, holds one pair per face corner.
type Face struct {
	Verts []int
	UV    []UV
}

// Mesh is polygon geometry.
// VertexUV, when present, holds one pair per vertex.
type Mesh struct {
	Vertices []Vertex
	Faces    []Face
	VertexUV []UV
}

// HasFaceUV reports whether any face carries per-face UV data.
func (m *Mesh) HasFaceUV() bool {
	for _, f := range m.Faces {
		if len(f.UV) > 0 {
			return true
		}
	}
	return false
}

// HasVertexUV reports whether per-vertex UV data is present.
func (m *Mesh) HasVertexUV() bool {
	return len(m.VertexUV) > 0
}

// Camera holds camera parameters. The world transform is the owning object's
// matrix; resolution is scene-global (see Display).
type Camera struct {
	Lens float64
}

// Lamp holds light parameters.
type Lamp struct {
	Color [3]float64
}

// Kind classifies an object's payload.
type Kind int

const (
	KindNone Kind = iota
	KindMesh
	KindCamera
	KindLamp
	KindUnrecognized
	KindInaccessible
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindMesh:
		return "Mesh"
	case KindCamera:
		return "Camera"
	case KindLamp:
		return "Lamp"
	case KindUnrecognized:
		return "Unrecognized"
	case KindInaccessible:
		return "Inaccessible"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Classification is the tagged result of inspecting an object's payload.
type Classification struct {
	Kind   Kind
	Reason string // set for every kind other than mesh, camera and lamp
}

// Exported reports whether the object takes part in the export.
func (c Classification) Exported() bool {
	return c.Kind == KindMesh || c.Kind == KindCamera || c.Kind == KindLamp
}

// Classify inspects the payload of an object.
func Classify(o *Object) Classification {
	if o.DataErr != nil {
		return Classification{Kind: KindInaccessible, Reason: fmt.Sprintf("payload not accessible: %v", o.DataErr)}
	}
	switch d := o.Data.(type) {
	case nil:
		return Classification{Kind: KindNone, Reason: "null data"}
	case *Mesh:
		if d == nil {
			return Classification{Kind: KindNone, Reason: "null mesh"}
		}
		return Classification{Kind: KindMesh}
	case *Camera:
		if d == nil {
			return Classification{Kind: KindNone, Reason: "null camera"}
		}
		if d.Lens <= 0 {
			return Classification{Kind: KindUnrecognized, Reason: fmt.Sprintf("camera lens %g is not positive", d.Lens)}
		}
		return Classification{Kind: KindCamera}
	case *Lamp:
		if d == nil {
			return Classification{Kind: KindNone, Reason: "null lamp"}
		}
		return Classification{Kind: KindLamp}
	default:
		return Classification{Kind: KindUnrecognized, Reason: fmt.Sprintf("unknown payload type %T", o.Data)}
	}
}
