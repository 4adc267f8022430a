package correlation

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/lmm/errs"
)

// Factors are the n×k loadings f with ρ ≈ f fᵀ. Every row has unit norm.
type Factors struct {
	loadings *mat.Dense
}

// FactorLoadings keeps the k largest eigenpairs of m. Loadings are
// v_ik·sqrt(λ_k), negative eigenvalues are floored at 0 and rows are rescaled
// to unit norm so the implied correlation keeps a unit diagonal.
func FactorLoadings(m *Matrix, k int) (*Factors, error) {
	n := m.Dim()
	if k < 1 || k > n {
		return nil, errs.Configf("correlation.FactorLoadings", "rank %d outside [1,%d]", k, n)
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(m.sym, true); !ok {
		return nil, errs.Configf("correlation.FactorLoadings", "eigen decomposition failed")
	}
	values := eig.Values(nil) // ascending
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	loadings := mat.NewDense(n, k, nil)
	for f := 0; f < k; f++ {
		col := n - 1 - f
		scale := math.Sqrt(math.Max(values[col], 0))
		for i := 0; i < n; i++ {
			loadings.Set(i, f, vectors.At(i, col)*scale)
		}
	}

	for i := 0; i < n; i++ {
		row := loadings.RawRowView(i)
		norm := floats.Norm(row, 2)
		if norm == 0 {
			// no weight on any retained factor: put the rate on the first one
			row[0] = 1
			continue
		}
		floats.Scale(1/norm, row)
	}
	return &Factors{loadings: loadings}, nil
}

// ReduceRank returns the correlation implied by the k-factor loadings of m.
func ReduceRank(m *Matrix, k int) (*Matrix, error) {
	f, err := FactorLoadings(m, k)
	if err != nil {
		return nil, err
	}
	return f.Correlation(), nil
}

// Dim is the number of forward rates (rows).
func (f *Factors) Dim() int {
	r, _ := f.loadings.Dims()
	return r
}

// Count is the number of factors (columns).
func (f *Factors) Count() int {
	_, c := f.loadings.Dims()
	return c
}

// At returns the loading of rate i on factor k.
func (f *Factors) At(i, k int) float64 { return f.loadings.At(i, k) }

// Row returns the loadings of rate i. The slice aliases internal storage and
// must not be modified.
func (f *Factors) Row(i int) []float64 { return f.loadings.RawRowView(i) }

// Correlation rebuilds the Gram matrix f fᵀ with an exact unit diagonal.
func (f *Factors) Correlation() *Matrix {
	n := f.Dim()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		sym.SetSym(i, i, 1)
		for j := 0; j < i; j++ {
			sym.SetSym(i, j, floats.Dot(f.Row(i), f.Row(j)))
		}
	}
	return &Matrix{sym: sym}
}
