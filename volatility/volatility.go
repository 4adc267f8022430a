// Package volatility builds the instantaneous volatility surface σ_i(t_j) of
// the forward rates from the four-parameter form d + (a + bτ)e^{-cτ}.
package volatility

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/timegrid"
)

// Dynamics selects how the volatility acts on the forward.
type Dynamics int

const (
	// Lognormal volatility is relative: dL = σ L dW.
	Lognormal Dynamics = iota
	// Normal volatility is absolute: dL = σ L(0) dW.
	Normal
)

func (d Dynamics) String() string {
	switch d {
	case Lognormal:
		return "lognormal"
	case Normal:
		return "normal"
	}
	return fmt.Sprintf("Dynamics(%d)", int(d))
}

// ParseDynamics accepts "lognormal" or "normal" in any case.
func ParseDynamics(s string) (Dynamics, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lognormal", "log-normal":
		return Lognormal, nil
	case "normal":
		return Normal, nil
	}
	return 0, errs.Mismatchf("volatility.ParseDynamics", "unknown dynamics %q", s)
}

// Valid reports whether d is a known dynamics.
func (d Dynamics) Valid() bool { return d == Lognormal || d == Normal }

// DisplacementFor is the blend weight reproducing d: 0 for lognormal, 1 for normal.
func DisplacementFor(d Dynamics) float64 {
	if d == Normal {
		return 1
	}
	return 0
}

// ClampDisplacement restricts a blend weight to [0,1].
func ClampDisplacement(b float64) float64 {
	if math.IsNaN(b) {
		return 0
	}
	return math.Min(math.Max(b, 0), 1)
}

// Parameters are the a, b, c, d of σ(τ) = d + (a + bτ)e^{-cτ}.
type Parameters struct {
	A, B, C, D float64
}

// Normalize floors c and d at 0.
func (p Parameters) Normalize() Parameters {
	p.C = math.Max(p.C, 0)
	p.D = math.Max(p.D, 0)
	return p
}

// At is σ at time to maturity tau; zero once the rate has fixed (tau <= 0).
func (p Parameters) At(tau float64) float64 {
	if tau <= 0 {
		return 0
	}
	return p.D + (p.A+p.B*tau)*math.Exp(-p.C*tau)
}

// Matrix holds σ_i(t_j): one row per simulation step, one column per forward.
type Matrix struct {
	m *mat.Dense
}

// Build evaluates the parametric form on every simulation step t_j (rows,
// excluding the final time) and forward T_i (columns, period starts). Under
// Normal dynamics column i is scaled by forwards[i].
func Build(p Parameters, sim, tenor timegrid.Discretization, dyn Dynamics, forwards []float64) (*Matrix, error) {
	if !dyn.Valid() {
		return nil, errs.Mismatchf("volatility.Build", "unknown dynamics %v", dyn)
	}
	rows, cols := sim.NumberOfSteps(), tenor.NumberOfSteps()
	if rows < 1 || cols < 1 {
		return nil, errs.Configf("volatility.Build", "need at least one simulation step and one tenor period, got %d and %d", rows, cols)
	}
	if dyn == Normal && len(forwards) != cols {
		return nil, errs.Configf("volatility.Build", "%d forwards for %d tenor periods", len(forwards), cols)
	}

	p = p.Normalize()
	dense := mat.NewDense(rows, cols, nil)
	for j := 0; j < rows; j++ {
		t := sim.Time(j)
		for i := 0; i < cols; i++ {
			tau := tenor.Time(i) - t
			if tau <= timegrid.Tolerance {
				continue
			}
			v := p.At(tau)
			if dyn == Normal {
				v *= forwards[i]
			}
			dense.Set(j, i, v)
		}
	}
	return &Matrix{m: dense}, nil
}

// FromRows wraps an explicit volatility matrix.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errs.Configf("volatility.FromRows", "empty matrix")
	}
	cols := len(rows[0])
	dense := mat.NewDense(len(rows), cols, nil)
	for j, row := range rows {
		if len(row) != cols {
			return nil, errs.Configf("volatility.FromRows", "row %d has %d entries, want %d", j, len(row), cols)
		}
		dense.SetRow(j, row)
	}
	return &Matrix{m: dense}, nil
}

// At returns σ_i(t_j).
func (v *Matrix) At(timeIndex, i int) float64 { return v.m.At(timeIndex, i) }

// Dims returns (simulation steps, forwards).
func (v *Matrix) Dims() (int, int) { return v.m.Dims() }

// Row returns σ(t_j) for every forward. The slice aliases internal storage
// and must not be modified.
func (v *Matrix) Row(timeIndex int) []float64 { return v.m.RawRowView(timeIndex) }
