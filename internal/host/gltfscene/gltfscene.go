// Package gltfscene reads glTF 2.0 documents as static scenes.
//
// The default scene is walked from its root nodes. Each node becomes one
// object with its world matrix; triangle primitives become meshes, perspective
// cameras become cameras and KHR_lights_punctual lights become lamps. glTF is
// Y-up, so matrices and positions are mapped back to the host's Z-up
// convention.
package gltfscene

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/tmodexport/pkg/coord"
	"github.com/Faultbox/tmodexport/pkg/scene"
)

// SensorWidth is the film width, in millimetres, used to turn a field of
// view into a lens value.
const SensorWidth = 32.0

const lightsExtension = "KHR_lights_punctual"

// Orthographic is the payload of orthographic cameras, which have no lens.
type Orthographic struct {
	XMag, YMag float64
}

// Scene is a static scene.Source read from a glTF document.
type Scene struct {
	display     scene.Display
	aspectFixed bool
	objects     []*scene.Object

	// Diagnostics lists primitives that could not be used.
	Diagnostics []string
}

// Open reads a .gltf or .glb file.
func Open(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading gltf")
	}
	return New(doc)
}

type light struct {
	Color []float64 `json:"color"`
	Type  string    `json:"type"`
}

// New resolves every node of the document's default scene.
func New(doc *gltf.Document) (*Scene, error) {
	s := &Scene{display: scene.DefaultDisplay}
	if len(doc.Scenes) == 0 {
		return s, nil
	}

	sceneIdx := uint32(0)
	if doc.Scene != nil {
		sceneIdx = *doc.Scene
	}
	if int(sceneIdx) >= len(doc.Scenes) {
		return nil, errors.Errorf("default scene %d out of range", sceneIdx)
	}

	lights, err := documentLights(doc)
	if err != nil {
		return nil, err
	}

	names := make(map[string]int)
	var walk func(idx uint32, parent mgl64.Mat4) error
	walk = func(idx uint32, parent mgl64.Mat4) error {
		if int(idx) >= len(doc.Nodes) {
			return errors.Errorf("node %d out of range", idx)
		}
		node := doc.Nodes[idx]
		world := parent.Mul4(localMatrix(node))

		obj := &scene.Object{
			Name:   uniqueName(names, node.Name, idx),
			Matrix: coord.MatrixFromEngine(world),
		}
		if err := s.payload(doc, node, lights, obj); err != nil {
			return errors.Wrapf(err, "node %q", obj.Name)
		}
		s.objects = append(s.objects, obj)

		for _, child := range node.Children {
			if err := walk(child, world); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range doc.Scenes[sceneIdx].Nodes {
		if err := walk(root, mgl64.Ident4()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// payload fills obj.Data from the node's mesh, camera or light, in that order
// of preference.
func (s *Scene) payload(doc *gltf.Document, node *gltf.Node, lights []light, obj *scene.Object) error {
	switch {
	case node.Mesh != nil:
		if int(*node.Mesh) >= len(doc.Meshes) {
			obj.DataErr = errors.Errorf("mesh %d out of range", *node.Mesh)
			return nil
		}
		m, err := s.readMesh(doc, doc.Meshes[*node.Mesh])
		if err != nil {
			obj.DataErr = err
			return nil
		}
		obj.Data = m
	case node.Camera != nil:
		if int(*node.Camera) >= len(doc.Cameras) {
			obj.DataErr = errors.Errorf("camera %d out of range", *node.Camera)
			return nil
		}
		obj.Data = s.readCamera(doc.Cameras[*node.Camera])
	default:
		idx, ok, err := nodeLight(node)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if idx < 0 || idx >= len(lights) {
			obj.DataErr = errors.Errorf("light %d out of range", idx)
			return nil
		}
		obj.Data = lampFrom(lights[idx])
	}
	return nil
}

// readMesh merges the triangle primitives of a glTF mesh into one polygon
// mesh. Per-vertex TEXCOORD_0 is kept when every merged primitive has it.
func (s *Scene) readMesh(doc *gltf.Document, gm *gltf.Mesh) (*scene.Mesh, error) {
	m := &scene.Mesh{}
	allUV := true

	for pi, p := range gm.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			s.Diagnostics = append(s.Diagnostics, fmt.Sprintf("mesh %q primitive %d: mode %v is not triangles", gm.Name, pi, p.Mode))
			continue
		}
		posIdx, ok := p.Attributes[gltf.POSITION]
		if !ok {
			s.Diagnostics = append(s.Diagnostics, fmt.Sprintf("mesh %q primitive %d has no positions", gm.Name, pi))
			continue
		}

		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "reading mesh %q positions", gm.Name)
		}

		var indices []uint32
		if p.Indices != nil {
			indices, err = modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil)
			if err != nil {
				return nil, errors.Wrapf(err, "reading mesh %q indices", gm.Name)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}

		var uvs [][2]float32
		if uvIdx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
			uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[uvIdx], nil)
			if err != nil {
				return nil, errors.Wrapf(err, "reading mesh %q texture coordinates", gm.Name)
			}
		}
		if len(uvs) != len(positions) {
			allUV = false
			uvs = nil
		}

		offset := len(m.Vertices)
		for i, p := range positions {
			m.Vertices = append(m.Vertices, coord.FromEngine(mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}))
			if uvs != nil {
				m.VertexUV = append(m.VertexUV, scene.UV{float64(uvs[i][0]), float64(uvs[i][1])})
			}
		}
		for i := 0; i+2 < len(indices); i += 3 {
			m.Faces = append(m.Faces, scene.Face{Verts: []int{
				offset + int(indices[i]),
				offset + int(indices[i+1]),
				offset + int(indices[i+2]),
			}})
		}
	}

	if !allUV {
		m.VertexUV = nil
	}
	return m, nil
}

// readCamera converts a perspective camera's vertical field of view into a
// horizontal lens value on a SensorWidth film.
func (s *Scene) readCamera(c *gltf.Camera) any {
	if c.Perspective == nil {
		if c.Orthographic != nil {
			return &Orthographic{XMag: float64(c.Orthographic.Xmag), YMag: float64(c.Orthographic.Ymag)}
		}
		return (*scene.Camera)(nil)
	}

	aspect := s.display.Aspect()
	if c.Perspective.AspectRatio != nil && *c.Perspective.AspectRatio > 0 {
		aspect = float64(*c.Perspective.AspectRatio)
		if !s.aspectFixed {
			s.display.Height = int(math.Round(float64(s.display.Width) / aspect))
			s.aspectFixed = true
		}
	}
	return &scene.Camera{Lens: Lens(float64(c.Perspective.Yfov), aspect)}
}

// Lens returns the lens value matching a vertical field of view (radians) at
// the given aspect ratio. Non-positive inputs give 0.
func Lens(yfov, aspect float64) float64 {
	t := math.Tan(yfov/2) * aspect
	if yfov <= 0 || aspect <= 0 || t <= 0 {
		return 0
	}
	return SensorWidth / 2 / t
}

func documentLights(doc *gltf.Document) ([]light, error) {
	ext, ok := doc.Extensions[lightsExtension]
	if !ok {
		return nil, nil
	}
	var v struct {
		Lights []light `json:"lights"`
	}
	if err := decodeExtension(ext, &v); err != nil {
		return nil, errors.Wrap(err, "decoding "+lightsExtension)
	}
	return v.Lights, nil
}

func nodeLight(node *gltf.Node) (int, bool, error) {
	ext, ok := node.Extensions[lightsExtension]
	if !ok {
		return 0, false, nil
	}
	var v struct {
		Light *int `json:"light"`
	}
	if err := decodeExtension(ext, &v); err != nil {
		return 0, false, errors.Wrap(err, "decoding "+lightsExtension)
	}
	if v.Light == nil {
		return 0, false, nil
	}
	return *v.Light, true, nil
}

// decodeExtension decodes an extension value that is either raw JSON or an
// already-decoded generic value.
func decodeExtension(ext any, v any) error {
	raw, ok := ext.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(ext); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, v)
}

func lampFrom(l light) *scene.Lamp {
	lamp := &scene.Lamp{Color: [3]float64{1, 1, 1}}
	for i := 0; i < 3 && i < len(l.Color); i++ {
		lamp.Color[i] = l.Color[i]
	}
	return lamp
}

var identity32 = [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// localMatrix returns the node's local transform: the explicit matrix when
// set, otherwise T * R * S.
func localMatrix(n *gltf.Node) mgl64.Mat4 {
	if m := n.MatrixOrDefault(); m != identity32 {
		var out mgl64.Mat4
		for i, v := range m {
			out[i] = float64(v)
		}
		return out
	}

	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	sc := n.ScaleOrDefault()

	q := mgl64.Quat{W: float64(r[3]), V: mgl64.Vec3{float64(r[0]), float64(r[1]), float64(r[2])}}
	return mgl64.Translate3D(float64(t[0]), float64(t[1]), float64(t[2])).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl64.Scale3D(float64(sc[0]), float64(sc[1]), float64(sc[2])))
}

// uniqueName returns name, or name.NNN with the lowest free suffix when it is
// already taken. Generated names count as taken too.
func uniqueName(seen map[string]int, name string, idx uint32) string {
	if name == "" {
		name = fmt.Sprintf("node%d", idx)
	}
	candidate := name
	for n := 1; seen[candidate] > 0; n++ {
		candidate = fmt.Sprintf("%s.%03d", name, n)
	}
	seen[candidate]++
	return candidate
}

// Display returns the default display settings, with the height adjusted to
// the first perspective camera's aspect ratio when it declares one.
func (s *Scene) Display() scene.Display {
	return s.display
}

// SnapshotAtFrame returns the static scene. The pose is the same for every
// frame; meshes are deep-copied on each call.
func (s *Scene) SnapshotAtFrame(frame int) (*scene.Snapshot, error) {
	snap := &scene.Snapshot{Frame: frame, Objects: make([]*scene.Object, len(s.objects))}
	for i, o := range s.objects {
		c := *o
		switch d := o.Data.(type) {
		case *scene.Mesh:
			if d != nil {
				c.Data = copyMesh(d)
			}
		case *scene.Camera:
			if d != nil {
				cam := *d
				c.Data = &cam
			}
		case *scene.Lamp:
			if d != nil {
				lamp := *d
				c.Data = &lamp
			}
		}
		snap.Objects[i] = &c
	}
	return snap, nil
}

func copyMesh(m *scene.Mesh) *scene.Mesh {
	out := &scene.Mesh{
		Vertices: append([]scene.Vertex(nil), m.Vertices...),
		Faces:    make([]scene.Face, len(m.Faces)),
		VertexUV: append([]scene.UV(nil), m.VertexUV...),
	}
	for i, f := range m.Faces {
		out.Faces[i] = scene.Face{
			Verts: append([]int(nil), f.Verts...),
			UV:    append([]scene.UV(nil), f.UV...),
		}
	}
	return out
}
