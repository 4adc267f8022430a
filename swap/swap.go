// Package swap values plain-vanilla payer swaps on a zero bond curve and
// bootstraps zero bonds from coupon bonds and par swap rates.
package swap

import (
	"github.com/meenmo/lmm/curve"
	"github.com/meenmo/lmm/errs"
)

// Swap is a swap with payment dates T_1 < ... < T_n. The floating leg pays
// the forward of [T_{k-1}, T_k] at T_k for k = 2..n; the fixed leg pays
// rate_k (T_k - T_{k-1}) at the same dates.
type Swap struct {
	times []float64
	bonds []float64 // P(0;T_k), aligned with times
}

// New builds a swap on explicit payment dates. curveValues are zero bond
// prices P(0;T_k) when isBondCurve is true, otherwise the forwards of the
// periods ending at each T_k (the first period starts at 0).
func New(times, curveValues []float64, isBondCurve bool) (*Swap, error) {
	if len(times) < 2 || len(times) != len(curveValues) {
		return nil, errs.Configf("swap.New", "%d dates for %d curve values", len(times), len(curveValues))
	}
	bonds := make([]float64, len(curveValues))
	if isBondCurve {
		copy(bonds, curveValues)
		// validates the grid and the bonds
		if _, err := curve.BondsToForwards(times, bonds); err != nil {
			return nil, err
		}
	} else {
		converted, err := curve.ForwardsToBonds(times, curveValues)
		if err != nil {
			return nil, err
		}
		bonds = converted
	}
	ts := make([]float64, len(times))
	copy(ts, times)
	return &Swap{times: ts, bonds: bonds}, nil
}

// NewUniform builds a swap whose payment dates are yearFraction, 2·yearFraction, ...
func NewUniform(yearFraction float64, curveValues []float64, isBondCurve bool) (*Swap, error) {
	if yearFraction <= 0 {
		return nil, errs.Configf("swap.NewUniform", "year fraction %v", yearFraction)
	}
	times := make([]float64, len(curveValues))
	for i := range times {
		times[i] = float64(i+1) * yearFraction
	}
	return New(times, curveValues, isBondCurve)
}

// Bonds returns P(0;T_k) for every payment date.
func (s *Swap) Bonds() []float64 {
	out := make([]float64, len(s.bonds))
	copy(out, s.bonds)
	return out
}

// Annuity is Σ_{k=2}^{n} (T_k - T_{k-1}) P(0;T_k).
func (s *Swap) Annuity() float64 {
	annuity := 0.0
	for k := 1; k < len(s.bonds); k++ {
		annuity += s.bonds[k] * (s.times[k] - s.times[k-1])
	}
	return annuity
}

// ParRate is the fixed rate that gives the swap zero value.
func (s *Swap) ParRate() float64 {
	return s.floatingLeg() / s.Annuity()
}

// Value returns floating minus fixed leg for one fixed rate per period.
func (s *Swap) Value(rates []float64) (float64, error) {
	if len(rates) != len(s.bonds)-1 {
		return 0, errs.Configf("swap.Value", "%d rates for %d periods", len(rates), len(s.bonds)-1)
	}
	fixed := 0.0
	for k, r := range rates {
		fixed += r * (s.times[k+1] - s.times[k]) * s.bonds[k+1]
	}
	return s.floatingLeg() - fixed, nil
}

// ValueAt returns the value for a single fixed rate on every period.
func (s *Swap) ValueAt(rate float64) float64 {
	return s.floatingLeg() - rate*s.Annuity()
}

func (s *Swap) floatingLeg() float64 {
	return s.bonds[0] - s.bonds[len(s.bonds)-1]
}
