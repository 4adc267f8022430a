package curve

import (
	"math"

	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/timegrid"
)

// ForwardCurve holds the time-zero forward rates L_i(0) of a tenor structure.
// Rate i accrues over [T_i, T_{i+1}].
type ForwardCurve struct {
	tenor    timegrid.Discretization
	forwards []float64
}

// NewForwardCurve builds a curve from one forward per tenor period.
func NewForwardCurve(tenor timegrid.Discretization, forwards []float64) (*ForwardCurve, error) {
	if tenor.NumberOfSteps() < 1 {
		return nil, errs.Configf("curve.NewForwardCurve", "tenor grid needs at least two times")
	}
	if len(forwards) != tenor.NumberOfSteps() {
		return nil, errs.Configf("curve.NewForwardCurve", "%d forwards for %d tenor periods", len(forwards), tenor.NumberOfSteps())
	}
	out := make([]float64, len(forwards))
	copy(out, forwards)
	return &ForwardCurve{tenor: tenor, forwards: out}, nil
}

// InterpolateForwards builds the initial forward curve from sparse observations.
//
// fixings are the period start times at which a forward was observed, values the
// observed forwards. Forwards for the remaining tenor periods are interpolated
// linearly in the value and extrapolated flat outside the observed fixings.
func InterpolateForwards(tenor timegrid.Discretization, fixings, values []float64) (*ForwardCurve, error) {
	if len(fixings) == 0 || len(fixings) != len(values) {
		return nil, errs.Configf("curve.InterpolateForwards", "%d fixings, %d values", len(fixings), len(values))
	}
	for i := 1; i < len(fixings); i++ {
		if fixings[i] <= fixings[i-1] {
			return nil, errs.Configf("curve.InterpolateForwards", "fixings not increasing at %d", i)
		}
	}

	forwards := make([]float64, tenor.NumberOfSteps())
	for i := range forwards {
		forwards[i] = linearFlat(fixings, values, tenor.Time(i))
	}
	return NewForwardCurve(tenor, forwards)
}

// Tenor returns the tenor grid T_0..T_n.
func (c *ForwardCurve) Tenor() timegrid.Discretization { return c.tenor }

// Len is the number of forward rates (tenor periods).
func (c *ForwardCurve) Len() int { return len(c.forwards) }

// Forward returns L_i(0).
func (c *ForwardCurve) Forward(i int) float64 { return c.forwards[i] }

// Forwards returns a copy of all initial forwards.
func (c *ForwardCurve) Forwards() []float64 {
	out := make([]float64, len(c.forwards))
	copy(out, c.forwards)
	return out
}

// PeriodLength returns δ_i = T_{i+1} - T_i.
func (c *ForwardCurve) PeriodLength(i int) float64 { return c.tenor.Step(i) }

// AllPositive reports whether every forward is strictly positive.
func (c *ForwardCurve) AllPositive() bool {
	for _, f := range c.forwards {
		if f <= 0 {
			return false
		}
	}
	return true
}

// DiscountCurve derives P(0;T_i) from the forwards.
func (c *ForwardCurve) DiscountCurve() *DiscountCurve {
	bonds := make([]float64, c.tenor.Len())
	bonds[0] = 1.0
	for i, f := range c.forwards {
		bonds[i+1] = bonds[i] / (1 + f*c.tenor.Step(i))
	}
	return &DiscountCurve{times: c.tenor.Times(), dfs: bonds}
}

// linearFlat interpolates linearly between nodes and extrapolates flat.
func linearFlat(xs, ys []float64, x float64) float64 {
	if len(xs) == 1 || x <= xs[0] {
		return ys[0]
	}
	if x >= xs[len(xs)-1] {
		return ys[len(ys)-1]
	}
	i1, i2 := bracket(xs, x)
	w := (x - xs[i1]) / (xs[i2] - xs[i1])
	return ys[i1] + w*(ys[i2]-ys[i1])
}

// DiscountCurve holds discount factors on a set of pillar times.
type DiscountCurve struct {
	times []float64
	dfs   []float64
}

// NewDiscountCurve builds a curve from pillar times and discount factors.
// A pillar at time 0 with discount factor 1 is added if missing.
func NewDiscountCurve(times, dfs []float64) (*DiscountCurve, error) {
	if len(times) == 0 || len(times) != len(dfs) {
		return nil, errs.Configf("curve.NewDiscountCurve", "%d times, %d discount factors", len(times), len(dfs))
	}
	ts := make([]float64, 0, len(times)+1)
	ds := make([]float64, 0, len(times)+1)
	if times[0] > timegrid.Tolerance {
		ts = append(ts, 0)
		ds = append(ds, 1)
	}
	for i := range times {
		if i > 0 && times[i] <= times[i-1] {
			return nil, errs.Configf("curve.NewDiscountCurve", "times not increasing at %d", i)
		}
		if dfs[i] <= 0 {
			return nil, errs.Configf("curve.NewDiscountCurve", "non-positive discount factor %v at %d", dfs[i], i)
		}
		ts = append(ts, times[i])
		ds = append(ds, dfs[i])
	}
	return &DiscountCurve{times: ts, dfs: ds}, nil
}

// DF returns P(0;t), log-linearly interpolated between pillars and
// extrapolated with the nearest flat forward.
func (c *DiscountCurve) DF(t float64) float64 {
	if len(c.times) == 1 {
		return c.dfs[0]
	}
	i1, i2 := bracket(c.times, t)
	t1, t2 := c.times[i1], c.times[i2]
	df1, df2 := c.dfs[i1], c.dfs[i2]
	if t1 == t2 {
		return df1
	}
	forwardRate := math.Log(df1/df2) / (t2 - t1)
	return df1 * math.Exp(-forwardRate*(t-t1))
}

// Times returns the pillar times.
func (c *DiscountCurve) Times() []float64 {
	out := make([]float64, len(c.times))
	copy(out, c.times)
	return out
}
