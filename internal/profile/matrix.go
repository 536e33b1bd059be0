// Package profile models the per-height-bin matrices produced by the
// analysis engine and the vertical profile object built from them.
package profile

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidVariant is returned for a selector other than Bio or All.
	ErrInvalidVariant = errors.New("invalid profile variant")
	// ErrNotComputed is returned when a matrix is read before compute ran.
	ErrNotComputed = errors.New("profile not computed")
	// ErrShape is returned when extents and buffer length disagree.
	ErrShape = errors.New("profile shape mismatch")
)

// Variant selects one of the two matrices. The numeric values are the
// engine's variant ids.
type Variant int

const (
	Bio Variant = 1 // biological scatterers only
	All Variant = 3 // all scatterers, including meteorological
)

// Valid reports whether v is Bio or All.
func (v Variant) Valid() bool {
	return v == Bio || v == All
}

func (v Variant) String() string {
	switch v {
	case Bio:
		return "bio"
	case All:
		return "all"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// Column is a fixed index into a profile row. Downstream readers parse by
// offset, so these values must not change.
type Column int

const (
	ColHeightBottom Column = iota // m
	ColHeightTop                  // m
	ColU                          // m/s, west to east
	ColV                          // m/s, south to north
	ColW                          // m/s, unreliable
	ColSpeed                      // m/s
	ColDirection                  // degrees from north
	ColDirectionAll               // degrees, all variant
	ColGap                        // 1 when an angular data gap was detected
	ColStdDev                     // m/s, radial velocity std-dev
	ColEta                        // cm^2/km^3
	ColDbz                        // dBZ
	ColDensity                    // birds/km^3
	ColNPoints                    // points in the bio VVP analysis

	// NColumns is the number of columns every matrix carries.
	NColumns = 14
)

// Columns reused with a different meaning in the All variant.
const (
	ColDensityAll = ColStdDev  // birds/km^3
	ColDbzAll     = ColEta     // total reflectivity factor, dBZ
	ColNPointsAll = ColNPoints // points in the all-scatterer VVP analysis
)

// Matrix is a dense row-major table with one row per height bin, ordered
// bottom to top. Element (r, c) lives at data[r*cols+c].
//
// A Matrix returned by the engine handle borrows the engine buffer and
// must not be retained past teardown; use Clone for an owned copy.
type Matrix struct {
	variant Variant
	rows    int
	cols    int
	data    []float64
}

// NewMatrix wraps data without copying it.
func NewMatrix(v Variant, rows, cols int, data []float64) (*Matrix, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVariant, int(v))
	}
	if rows < 0 || cols < NColumns {
		return nil, fmt.Errorf("%w: %d rows x %d cols (need at least %d cols)", ErrShape, rows, cols, NColumns)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d rows x %d cols but buffer holds %d values", ErrShape, rows, cols, len(data))
	}
	return &Matrix{variant: v, rows: rows, cols: cols, data: data}, nil
}

func (m *Matrix) Variant() Variant { return m.variant }
func (m *Matrix) Rows() int        { return m.rows }
func (m *Matrix) Cols() int        { return m.cols }

// Data returns the underlying row-major buffer.
func (m *Matrix) Data() []float64 { return m.data }

// At returns element (r, c). It panics when r is out of range.
func (m *Matrix) At(r int, c Column) float64 {
	if r < 0 || r >= m.rows {
		panic(fmt.Sprintf("profile: row %d out of range [0,%d)", r, m.rows))
	}
	return m.data[r*m.cols+int(c)]
}

// Row returns a named-field view of row r.
func (m *Matrix) Row(r int) Row {
	if r < 0 || r >= m.rows {
		panic(fmt.Sprintf("profile: row %d out of range [0,%d)", r, m.rows))
	}
	return Row{m: m, r: r}
}

// Clone returns a deep copy that no longer aliases the engine buffer.
func (m *Matrix) Clone() *Matrix {
	data := make([]float64, len(m.data))
	copy(data, m.data)
	return &Matrix{variant: m.variant, rows: m.rows, cols: m.cols, data: data}
}

// Dense exposes the matrix as a gonum Dense sharing the same buffer.
// It returns nil for a matrix without rows.
func (m *Matrix) Dense() *mat.Dense {
	if m.rows == 0 {
		return nil
	}
	return mat.NewDense(m.rows, m.cols, m.data)
}

// SameHeightBins reports whether a and b have the same rows and the same
// bin bounds row by row.
func SameHeightBins(a, b *Matrix) bool {
	if a.rows != b.rows {
		return false
	}
	for r := 0; r < a.rows; r++ {
		if a.At(r, ColHeightBottom) != b.At(r, ColHeightBottom) || a.At(r, ColHeightTop) != b.At(r, ColHeightTop) {
			return false
		}
	}
	return true
}

// Row is a view over one height bin of a Matrix.
type Row struct {
	m *Matrix
	r int
}

// Index returns the row number within the matrix.
func (r Row) Index() int { return r.r }

// Value returns the raw value of column c.
func (r Row) Value(c Column) float64 { return r.m.data[r.r*r.m.cols+int(c)] }

func (r Row) Bottom() float64 { return r.Value(ColHeightBottom) }
func (r Row) Top() float64    { return r.Value(ColHeightTop) }

// Height returns the bin midpoint in metres.
func (r Row) Height() float64 { return (r.Bottom() + r.Top()) / 2 }

func (r Row) U() float64            { return r.Value(ColU) }
func (r Row) V() float64            { return r.Value(ColV) }
func (r Row) W() float64            { return r.Value(ColW) }
func (r Row) Speed() float64        { return r.Value(ColSpeed) }
func (r Row) Direction() float64    { return r.Value(ColDirection) }
func (r Row) DirectionAll() float64 { return r.Value(ColDirectionAll) }

// Gap reports whether the engine flagged an angular data gap.
func (r Row) Gap() bool { return r.Value(ColGap) == 1 }

func (r Row) StdDev() float64  { return r.Value(ColStdDev) }
func (r Row) Eta() float64     { return r.Value(ColEta) }
func (r Row) Dbz() float64     { return r.Value(ColDbz) }
func (r Row) Density() float64 { return r.Value(ColDensity) }
func (r Row) NPoints() float64 { return r.Value(ColNPoints) }

// All-variant readings of the reused columns.
func (r Row) DensityAll() float64 { return r.Value(ColDensityAll) }
func (r Row) DbzAll() float64     { return r.Value(ColDbzAll) }
func (r Row) NPointsAll() float64 { return r.Value(ColNPointsAll) }
