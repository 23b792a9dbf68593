// Package objscene reads Wavefront OBJ files as static scenes.
//
// Every "o" statement starts a new mesh object. A "g" statement starts one
// only while no "o" has been seen; after that, groups are parts of the current
// object. Faces before the first statement go to an object named "default". Positions and texture coordinates are
// shared across the file and remapped per object. OBJ is Y-up, so positions
// are converted back to the host's Z-up convention.
package objscene

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/Faultbox/tmodexport/pkg/coord"
	"github.com/Faultbox/tmodexport/pkg/encoding"
	"github.com/Faultbox/tmodexport/pkg/scene"
)

// DefaultObject names faces declared before any "o" or "g" statement.
const DefaultObject = "default"

type corner struct {
	v  int
	vt int // -1 when absent
}

type object struct {
	name  string
	faces [][]corner
}

// Scene is a static scene.Source parsed from an OBJ file.
type Scene struct {
	positions []mgl64.Vec3
	uvs       []scene.UV
	objects   []*object
	display   scene.Display
}

// Open parses the OBJ file at path.
func Open(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening obj")
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads an OBJ stream.
func Parse(r io.Reader) (*Scene, error) {
	s := &Scene{display: scene.DefaultDisplay}

	var cur *object
	named := false // an "o" statement has been seen
	lineNum := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if i := bytes.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		tokens := bytes.Fields(line)
		if len(tokens) == 0 {
			continue
		}

		switch string(tokens[0]) {
		case "v":
			v, err := parseFloats(tokens[1:], 3)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNum)
			}
			s.positions = append(s.positions, mgl64.Vec3{v[0], v[1], v[2]})
		case "vt":
			v, err := parseFloats(tokens[1:], 2)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNum)
			}
			s.uvs = append(s.uvs, scene.UV{v[0], v[1]})
		case "o", "g":
			if len(tokens) < 2 {
				return nil, errors.Errorf("line %d: %s needs a name", lineNum, tokens[0])
			}
			if tokens[0][0] == 'g' && named {
				continue
			}
			name := encoding.DecodeName(bytes.Join(tokens[1:], []byte(" ")))
			cur = s.object(name)
			named = named || tokens[0][0] == 'o'
		case "f":
			face, err := s.parseFace(tokens[1:])
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNum)
			}
			if cur == nil {
				cur = s.object(DefaultObject)
			}
			cur.faces = append(cur.faces, face)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading obj")
	}

	return s, nil
}

// object returns the object with the given name, creating it when needed.
// A repeated "g" statement continues the existing object.
func (s *Scene) object(name string) *object {
	for _, o := range s.objects {
		if o.name == name {
			return o
		}
	}
	o := &object{name: name}
	s.objects = append(s.objects, o)
	return o
}

// parseFace reads "v", "v/vt", "v//vn" and "v/vt/vn" corners. Indices are
// 1-based; negative indices count back from the end of the list so far.
func (s *Scene) parseFace(tokens [][]byte) ([]corner, error) {
	if len(tokens) < 3 {
		return nil, errors.Errorf("face has %d corners", len(tokens))
	}
	face := make([]corner, len(tokens))
	for i, tok := range tokens {
		parts := strings.Split(string(tok), "/")
		v, err := resolveIndex(parts[0], len(s.positions))
		if err != nil {
			return nil, errors.Wrapf(err, "corner %d vertex", i)
		}
		c := corner{v: v, vt: -1}
		if len(parts) > 1 && parts[1] != "" {
			if c.vt, err = resolveIndex(parts[1], len(s.uvs)); err != nil {
				return nil, errors.Wrapf(err, "corner %d texture coordinate", i)
			}
		}
		face[i] = c
	}
	return face, nil
}

func resolveIndex(tok string, n int) (int, error) {
	i, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.Wrapf(err, "bad index %q", tok)
	}
	switch {
	case i > 0 && i <= n:
		return i - 1, nil
	case i < 0 && -i <= n:
		return n + i, nil
	default:
		return 0, errors.Errorf("index %d out of range (%d defined)", i, n)
	}
}

func parseFloats(tokens [][]byte, n int) ([]float64, error) {
	if len(tokens) < n {
		return nil, errors.Errorf("expected %d values, got %d", n, len(tokens))
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(string(tokens[i]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad number %q", tokens[i])
		}
		out[i] = v
	}
	return out, nil
}

// Display returns the default display settings; OBJ carries none.
func (s *Scene) Display() scene.Display {
	return s.display
}

// SnapshotAtFrame returns the static scene. The pose is the same for every
// frame, but the structures are rebuilt on each call.
func (s *Scene) SnapshotAtFrame(frame int) (*scene.Snapshot, error) {
	snap := &scene.Snapshot{Frame: frame, Objects: make([]*scene.Object, 0, len(s.objects))}
	for _, o := range s.objects {
		snap.Objects = append(snap.Objects, &scene.Object{
			Name:   o.name,
			Matrix: mgl64.Ident4(),
			Data:   s.buildMesh(o),
		})
	}
	return snap, nil
}

// buildMesh compacts the file-wide position list down to the vertices the
// object uses, in first-use order.
func (s *Scene) buildMesh(o *object) *scene.Mesh {
	m := &scene.Mesh{Faces: make([]scene.Face, 0, len(o.faces))}
	remap := make(map[int]int)

	for _, fc := range o.faces {
		f := scene.Face{Verts: make([]int, len(fc))}
		hasUV := true
		for i, c := range fc {
			idx, ok := remap[c.v]
			if !ok {
				idx = len(m.Vertices)
				remap[c.v] = idx
				m.Vertices = append(m.Vertices, coord.FromEngine(s.positions[c.v]))
			}
			f.Verts[i] = idx
			if c.vt < 0 {
				hasUV = false
			}
		}
		if hasUV {
			f.UV = make([]scene.UV, len(fc))
			for i, c := range fc {
				f.UV[i] = s.uvs[c.vt]
			}
		}
		m.Faces = append(m.Faces, f)
	}
	return m
}
