// Package timegrid provides the ordered time discretizations used for simulation
// stepping and for the tenor (fixing) structure.
package timegrid

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/utils"
)

// Tolerance is the distance under which two grid times are the same point.
const Tolerance = 1e-10

// Discretization is a strictly increasing, non-negative sequence of times.
// The zero value is an empty grid; use New or Uniform to build one.
type Discretization struct {
	times []float64
}

// New builds a discretization from explicit times.
func New(times ...float64) (Discretization, error) {
	if len(times) == 0 {
		return Discretization{}, errs.Configf("timegrid.New", "no times given")
	}
	out := make([]float64, len(times))
	copy(out, times)
	for i, t := range out {
		if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return Discretization{}, errs.Configf("timegrid.New", "invalid time %v at %d", t, i)
		}
		if i > 0 && t-out[i-1] <= Tolerance {
			return Discretization{}, errs.Configf("timegrid.New", "times not strictly increasing at %d (%v after %v)", i, t, out[i-1])
		}
	}
	return Discretization{times: out}, nil
}

// Uniform builds start, start+step, ..., start+steps*step.
//
// Times are computed as start + i*step (not by accumulation) so that grids with
// the same step line up exactly.
func Uniform(start float64, steps int, step float64) (Discretization, error) {
	if steps < 0 || step <= 0 {
		return Discretization{}, errs.Configf("timegrid.Uniform", "steps=%d step=%v", steps, step)
	}
	times := make([]float64, steps+1)
	for i := range times {
		times[i] = start + float64(i)*step
	}
	return New(times...)
}

// UniformHorizon builds 0, step, ..., horizon. The horizon must be a multiple of step.
func UniformHorizon(horizon, step float64) (Discretization, error) {
	if step <= 0 {
		return Discretization{}, errs.Configf("timegrid.UniformHorizon", "step=%v", step)
	}
	steps := math.Round(horizon / step)
	if math.Abs(steps*step-horizon) > 1e-9 {
		return Discretization{}, errs.Configf("timegrid.UniformHorizon", "horizon %v is not a multiple of step %v", horizon, step)
	}
	return Uniform(0, int(steps), step)
}

// FromDates maps calendar dates onto model time measured from anchor.
// The anchor itself is prepended when it is not already the first date.
func FromDates(anchor time.Time, dates []time.Time, dc utils.DayCount) (Discretization, error) {
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	utils.SortDates(sorted)

	times := []float64{0}
	for _, d := range sorted {
		yf := utils.YearFraction(anchor, d, dc)
		if yf <= Tolerance {
			continue
		}
		times = append(times, yf)
	}
	return New(times...)
}

// Refine splits every step of d into equal substeps no longer than maxStep.
// The result contains every time of d.
func Refine(d Discretization, maxStep float64) (Discretization, error) {
	if d.Len() == 0 || maxStep <= 0 {
		return Discretization{}, errs.Configf("timegrid.Refine", "%d times, max step %v", d.Len(), maxStep)
	}
	times := make([]float64, 0, d.Len())
	for i := 0; i < d.NumberOfSteps(); i++ {
		step := d.Step(i)
		m := int(math.Ceil(step/maxStep - 1e-9))
		if m < 1 {
			m = 1
		}
		for k := 0; k < m; k++ {
			times = append(times, d.times[i]+float64(k)*step/float64(m))
		}
	}
	times = append(times, d.Last())
	return New(times...)
}

// Len is the number of times.
func (d Discretization) Len() int { return len(d.times) }

// NumberOfSteps is Len()-1.
func (d Discretization) NumberOfSteps() int { return len(d.times) - 1 }

// Time returns the i-th time.
func (d Discretization) Time(i int) float64 { return d.times[i] }

// Last returns the final time.
func (d Discretization) Last() float64 { return d.times[len(d.times)-1] }

// Step returns times[i+1]-times[i].
func (d Discretization) Step(i int) float64 { return d.times[i+1] - d.times[i] }

// Times returns a copy of the underlying times.
func (d Discretization) Times() []float64 {
	out := make([]float64, len(d.times))
	copy(out, d.times)
	return out
}

// Index returns the index of t, or -1 if t is not a grid point.
func (d Discretization) Index(t float64) int {
	i := sort.SearchFloat64s(d.times, t-Tolerance)
	if i < len(d.times) && math.Abs(d.times[i]-t) <= Tolerance {
		return i
	}
	return -1
}

// IndexBefore returns the last index whose time is <= t, or -1 if t precedes the grid.
func (d Discretization) IndexBefore(t float64) int {
	i := sort.Search(len(d.times), func(i int) bool {
		return d.times[i] > t+Tolerance
	})
	return i - 1
}

// Contains reports whether every time of other is a point of d.
func (d Discretization) Contains(other Discretization) bool {
	for _, t := range other.times {
		if d.Index(t) < 0 {
			return false
		}
	}
	return true
}

func (d Discretization) String() string {
	return fmt.Sprintf("%v", d.times)
}
