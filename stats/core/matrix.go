package core

import "gonum.org/v1/gonum/mat"

// Dims returns the dimensions of m, treating nil and empty matrices as 0×0.
func Dims(m mat.Matrix) (r, c int) {
	if m == nil {
		return 0, 0
	}
	if e, ok := m.(interface{ IsEmpty() bool }); ok && e.IsEmpty() {
		return 0, 0
	}
	return m.Dims()
}

// Row returns row i of m. Matrices that expose their backing storage are
// viewed without copying; otherwise the row is copied into buf, which must
// have length equal to the column count. The result must not be modified.
func Row(m mat.Matrix, i int, buf []float64) []float64 {
	if rv, ok := m.(mat.RawRowViewer); ok {
		return rv.RawRowView(i)
	}
	return mat.Row(buf, i, m)
}
