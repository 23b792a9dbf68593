// Package coord converts between the host editor's Z-up axis convention and the
// render engine's Y-up convention.
//
// Engine (x, y, z) = host (x, z, -y). Host matrices are row-vector matrices
// (translation in row 3, local basis vectors in rows 0-2); engine matrices are
// column-vector matrices.
package coord

import "github.com/go-gl/mathgl/mgl64"

// Matrix rows of a host transform.
const (
	RowX           = 0 // local X basis
	RowY           = 1 // local Y basis (up for cameras)
	RowZ           = 2 // local Z basis (cameras look down -Z)
	RowTranslation = 3
)

// axes maps host coordinates to engine coordinates.
var axes = mgl64.Mat4FromRows(
	mgl64.Vec4{1, 0, 0, 0},
	mgl64.Vec4{0, 0, 1, 0},
	mgl64.Vec4{0, -1, 0, 0},
	mgl64.Vec4{0, 0, 0, 1},
)

// ToEngine converts a host vector to engine convention.
func ToEngine(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[2], -v[1]}
}

// FromEngine converts an engine vector back to host convention.
func FromEngine(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], -v[2], v[1]}
}

// Matrix converts a host row-vector matrix into an engine column-vector matrix.
func Matrix(m mgl64.Mat4) mgl64.Mat4 {
	return axes.Mul4(m.Transpose()).Mul4(axes.Transpose())
}

// MatrixFromEngine is the inverse of Matrix.
func MatrixFromEngine(m mgl64.Mat4) mgl64.Mat4 {
	return axes.Transpose().Mul4(m).Mul4(axes).Transpose()
}

// Row returns the first three components of a host matrix row.
func Row(m mgl64.Mat4, row int) mgl64.Vec3 {
	return mgl64.Vec3{m.At(row, 0), m.At(row, 1), m.At(row, 2)}
}

// Point returns a host matrix row converted to engine convention.
func Point(m mgl64.Mat4, row int) mgl64.Vec3 {
	return ToEngine(Row(m, row))
}

// HostMatrix builds a host matrix from a row-major 4x4 grid.
func HostMatrix(grid [4][4]float64) mgl64.Mat4 {
	var m mgl64.Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m.Set(r, c, grid[r][c])
		}
	}
	return m
}

// Grid returns the row-major grid of a matrix.
func Grid(m mgl64.Mat4) [4][4]float64 {
	var g [4][4]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			g[r][c] = m.At(r, c)
		}
	}
	return g
}
