package model

import (
	"math"

	"github.com/meenmo/lmm/correlation"
	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/timegrid"
)

// FactorError is the average absolute error of reducing the exponential
// decay correlation to Factors factors.
type FactorError struct {
	Decay   float64
	Factors int
	Error   float64
}

// DecayRange returns from, from+step, ... up to and including to.
func DecayRange(from, to, step float64) ([]float64, error) {
	if step <= 0 || to < from {
		return nil, errs.Configf("model.DecayRange", "range [%v,%v] step %v", from, to, step)
	}
	n := int(math.Floor((to-from)/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out, nil
}

// FactorSweep reports the factor reduction error on tenor for every pair of
// decay and factor count.
func FactorSweep(tenor timegrid.Discretization, decays []float64, factors []int) ([]FactorError, error) {
	out := make([]FactorError, 0, len(decays)*len(factors))
	for _, decay := range decays {
		full, err := correlation.ExponentialDecay(decay, tenor)
		if err != nil {
			return nil, err
		}
		for _, k := range factors {
			reduced, err := correlation.ReduceRank(full, k)
			if err != nil {
				return nil, err
			}
			e, err := correlation.AverageAbsoluteError(full, reduced)
			if err != nil {
				return nil, err
			}
			out = append(out, FactorError{Decay: decay, Factors: k, Error: e})
		}
	}
	return out, nil
}

// FactorSweep runs the sweep on the model's tenor grid.
func (m *Model) FactorSweep(decays []float64, factors []int) ([]FactorError, error) {
	return FactorSweep(m.curve.Tenor(), decays, factors)
}
