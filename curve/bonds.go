// Package curve builds the initial term structure: forward curves from sparse
// fixings, discount curves, and conversions between zero bonds and forwards.
package curve

import (
	"math"

	"github.com/meenmo/lmm/errs"
)

// BondsToForwards converts zero bond prices P(0;t_i) into the simple forwards
// of the periods between consecutive payment times.
//
// payTimes are t_1 < ... < t_m (all > 0); P(0;0)=1 is implied, so the first
// forward covers [0, t_1].
func BondsToForwards(payTimes, bonds []float64) ([]float64, error) {
	if err := checkPaymentGrid("curve.BondsToForwards", payTimes, len(bonds)); err != nil {
		return nil, err
	}
	out := make([]float64, len(bonds))
	prevBond, prevTime := 1.0, 0.0
	for i, b := range bonds {
		if b <= 0 {
			return nil, errs.Configf("curve.BondsToForwards", "non-positive bond %v at %d", b, i)
		}
		out[i] = (prevBond - b) / (b * (payTimes[i] - prevTime))
		prevBond, prevTime = b, payTimes[i]
	}
	return out, nil
}

// ForwardsToBonds is the inverse of BondsToForwards on the same payment grid.
func ForwardsToBonds(payTimes, forwards []float64) ([]float64, error) {
	if err := checkPaymentGrid("curve.ForwardsToBonds", payTimes, len(forwards)); err != nil {
		return nil, err
	}
	out := make([]float64, len(forwards))
	prevBond, prevTime := 1.0, 0.0
	for i, f := range forwards {
		out[i] = prevBond / (1 + f*(payTimes[i]-prevTime))
		if out[i] <= 0 || math.IsInf(out[i], 0) {
			return nil, errs.Configf("curve.ForwardsToBonds", "forward %v at %d gives bond %v", f, i, out[i])
		}
		prevBond, prevTime = out[i], payTimes[i]
	}
	return out, nil
}

func checkPaymentGrid(op string, payTimes []float64, n int) error {
	if len(payTimes) != n || n == 0 {
		return errs.Configf(op, "%d times for %d values", len(payTimes), n)
	}
	prev := 0.0
	for i, t := range payTimes {
		if t <= prev {
			return errs.Configf(op, "payment times not increasing at %d", i)
		}
		prev = t
	}
	return nil
}
