package tmod

import (
	"fmt"

	"github.com/Faultbox/tmodexport/pkg/coord"
	"github.com/Faultbox/tmodexport/pkg/scene"
)

// MeshStats describes one serialized mesh.
type MeshStats struct {
	Vertices    int
	Triangles   int
	UVTriangles int // triangles that received UV lines
	Diagnostics []string
}

// triangle is one emitted triangle: vertex indices plus the face corners it
// was cut from, so UV lookups follow the same fan.
type triangle struct {
	face    int
	corners [3]int
}

// fan splits a 3- or 4-vertex face into triangles: (0,1,2) and, for quads,
// (0,2,3).
func fan(n int) [][3]int {
	switch n {
	case 3:
		return [][3]int{{0, 1, 2}}
	case 4:
		return [][3]int{{0, 1, 2}, {0, 2, 3}}
	default:
		return nil
	}
}

// triangulate returns the triangles of every valid face and a diagnostic for
// each face that had to be skipped.
func triangulate(m *scene.Mesh) ([]triangle, []string) {
	var tris []triangle
	var diags []string
	faceUV := m.HasFaceUV()

	for i, f := range m.Faces {
		corners := fan(len(f.Verts))
		if corners == nil {
			diags = append(diags, fmt.Sprintf("bad face %d has %d verts", i, len(f.Verts)))
			continue
		}
		if v, ok := outOfRange(f.Verts, len(m.Vertices)); !ok {
			diags = append(diags, fmt.Sprintf("bad face %d references vertex %d of %d", i, v, len(m.Vertices)))
			continue
		}
		if faceUV && len(f.UV) > 0 && len(f.UV) < len(f.Verts) {
			diags = append(diags, fmt.Sprintf("bad face %d has %d uvs for %d verts", i, len(f.UV), len(f.Verts)))
			continue
		}
		for _, c := range corners {
			tris = append(tris, triangle{face: i, corners: c})
		}
	}
	return tris, diags
}

func outOfRange(verts []int, n int) (int, bool) {
	for _, v := range verts {
		if v < 0 || v >= n {
			return v, false
		}
	}
	return 0, true
}

// WriteMesh serializes one mesh. The vertex block is always written; faces,
// empty crease/polyline sections, UVs and the annotation trailer follow only in
// FullDefinition mode. tag names the mesh in the trailer ("<base>-<name>").
func WriteMesh(w *Writer, m *scene.Mesh, mode Mode, tag string) (MeshStats, error) {
	stats := MeshStats{Vertices: len(m.Vertices)}

	w.Printf("%d\n", len(m.Vertices))
	for _, v := range m.Vertices {
		e := coord.ToEngine(v)
		w.Printf("%s %s %s\n", FormatFloat(e[0]), FormatFloat(e[1]), FormatFloat(e[2]))
	}
	w.Printf("\n")

	if mode == UpdateOnly {
		return stats, w.Err()
	}

	tris, diags := triangulate(m)
	stats.Triangles = len(tris)
	stats.Diagnostics = diags

	w.Printf("%d\n", len(tris))
	for _, t := range tris {
		f := m.Faces[t.face]
		w.Printf("%d %d %d \n", f.Verts[t.corners[0]], f.Verts[t.corners[1]], f.Verts[t.corners[2]])
	}

	// Creases and polylines are always empty.
	w.Printf("\n0\n")
	w.Printf("\n0\n")

	if m.HasFaceUV() || m.HasVertexUV() {
		stats.UVTriangles = writeUV(w, m, tris)
	}

	writeAnnotations(w, tag)
	return stats, w.Err()
}

// writeUV writes the TEX_COORDS2 block. Triangle numbers follow the face
// triangulation; per-face UV wins over per-vertex UV. A triangle with neither
// keeps its number but gets no line, and the count covers written lines only.
func writeUV(w *Writer, m *scene.Mesh, tris []triangle) int {
	faceUV := m.HasFaceUV()

	var lines []string
	for j, t := range tris {
		f := m.Faces[t.face]
		var uv [3]scene.UV
		ok := false
		if faceUV && len(f.UV) >= len(f.Verts) {
			for k, c := range t.corners {
				uv[k] = f.UV[c]
			}
			ok = true
		} else if !faceUV && m.HasVertexUV() {
			ok = true
			for k, c := range t.corners {
				vi := f.Verts[c]
				if vi >= len(m.VertexUV) {
					ok = false
					break
				}
				uv[k] = m.VertexUV[vi]
			}
		}
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d < %f %f > < %f %f > < %f %f >\n", j,
			uv[0][0], uv[0][1], uv[1][0], uv[1][1], uv[2][0], uv[2][1]))
	}

	w.Printf("\n#BEGIN TEX_COORDS2\n")
	w.Printf("%d\n", len(lines))
	for _, l := range lines {
		w.Printf("%s", l)
	}
	w.Printf("#END TEX_COORDS2\n")
	return len(lines)
}

// writeAnnotations writes the external annotation trailer the engine expects
// after every mesh definition.
func writeAnnotations(w *Writer, tag string) {
	w.Printf("\n#BEGIN PATCH\n")
	w.Printf("0\n")
	w.Printf("\n")
	w.Printf("0\n")
	w.Printf("#BEGIN GTEXTURE\n")
	w.Printf("NPRTexture\n")
	w.Printf("{\n")
	w.Printf("\tnpr_data_file\t{ %s }\n", tag)
	w.Printf("\t}\n")
	w.Printf("#END GTEXTURE\n")
	w.Printf("\n#BEGIN PATCHNAME\n")
	w.Printf("patch-0\n")
	w.Printf("#END PATCHNAME\n")
	w.Printf("#BEGIN COLOR\n")
	w.Printf("< 1 1 1 >\n")
	w.Printf("#END COLOR\n")
	w.Printf("#END PATCH\n")
}
