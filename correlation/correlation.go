// Package correlation builds the instantaneous correlation between forward
// rates and its reduced-rank factor representation.
package correlation

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/timegrid"
)

const symmetryTolerance = 1e-12

// Matrix is a symmetric correlation matrix with unit diagonal.
type Matrix struct {
	sym *mat.SymDense
}

// ExponentialDecay builds ρ_ij = exp(-decay·|T_i - T_j|) over the period start
// times T_0..T_{n-1} of tenor. Negative decay is treated as 0.
func ExponentialDecay(decay float64, tenor timegrid.Discretization) (*Matrix, error) {
	n := tenor.NumberOfSteps()
	if n < 1 {
		return nil, errs.Configf("correlation.ExponentialDecay", "tenor grid needs at least two times")
	}
	decay = math.Max(decay, 0)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		sym.SetSym(i, i, 1)
		for j := 0; j < i; j++ {
			sym.SetSym(i, j, math.Exp(-decay*math.Abs(tenor.Time(i)-tenor.Time(j))))
		}
	}
	return &Matrix{sym: sym}, nil
}

// FromRows validates and wraps an explicit correlation matrix.
func FromRows(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, errs.Configf("correlation.FromRows", "empty matrix")
	}
	sym := mat.NewSymDense(n, nil)
	for i, row := range rows {
		if len(row) != n {
			return nil, errs.Configf("correlation.FromRows", "row %d has %d entries, want %d", i, len(row), n)
		}
		if math.Abs(row[i]-1) > symmetryTolerance {
			return nil, errs.Configf("correlation.FromRows", "diagonal entry %d is %v", i, row[i])
		}
		for j := 0; j < i; j++ {
			if math.Abs(row[j]-rows[j][i]) > symmetryTolerance {
				return nil, errs.Configf("correlation.FromRows", "not symmetric at (%d,%d)", i, j)
			}
			if math.IsNaN(row[j]) || math.Abs(row[j]) > 1 {
				return nil, errs.Configf("correlation.FromRows", "entry (%d,%d)=%v outside [-1,1]", i, j, row[j])
			}
			sym.SetSym(i, j, row[j])
		}
		sym.SetSym(i, i, 1)
	}
	return &Matrix{sym: sym}, nil
}

// Dim is the number of forward rates.
func (m *Matrix) Dim() int { return m.sym.SymmetricDim() }

// At returns ρ_ij.
func (m *Matrix) At(i, j int) float64 { return m.sym.At(i, j) }

// Symmetric exposes the matrix read-only to gonum routines.
func (m *Matrix) Symmetric() mat.Symmetric { return m.sym }

// Rows returns a dense copy.
func (m *Matrix) Rows() [][]float64 {
	n := m.Dim()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = m.sym.At(i, j)
		}
	}
	return out
}

// AverageAbsoluteError is the mean of |A_ij - A'_ij| over the strictly lower
// triangle. It is 0 for 1×1 matrices.
func AverageAbsoluteError(original, reduced *Matrix) (float64, error) {
	n := original.Dim()
	if reduced.Dim() != n {
		return 0, errs.Configf("correlation.AverageAbsoluteError", "dimensions %d and %d differ", n, reduced.Dim())
	}
	if n == 1 {
		return 0, nil
	}
	sum := 0.0
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			sum += math.Abs(original.At(i, j) - reduced.At(i, j))
		}
	}
	return 2 * sum / float64(n*(n-1)), nil
}
