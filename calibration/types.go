package calibration

import (
	"fmt"
	"strings"

	"github.com/meenmo/lmm/covariance"
	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/pricing"
)

// Grid selects which swaptions make up the instrument battery.
type Grid int

const (
	// GridStrikes uses the first fixing T_1 and the full window to T_n.
	GridStrikes Grid = iota
	// GridStrikesFixings uses every fixing T_1..T_{n-1}, each on the full window.
	GridStrikesFixings
	// GridFull uses every fixing and every window length.
	GridFull
)

func (g Grid) String() string {
	switch g {
	case GridStrikes:
		return "strikes"
	case GridStrikesFixings:
		return "strikes_fixings"
	case GridFull:
		return "full"
	}
	return fmt.Sprintf("Grid(%d)", int(g))
}

// ParseGrid accepts "strikes", "strikes_fixings" or "full".
func ParseGrid(s string) (Grid, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strikes", "":
		return GridStrikes, nil
	case "strikes_fixings", "strikes-fixings":
		return GridStrikesFixings, nil
	case "full":
		return GridFull, nil
	}
	return 0, errs.Mismatchf("calibration.ParseGrid", "unknown grid %q", s)
}

// Backend is the pricer used for targets and candidate models.
type Backend int

const (
	// MonteCarlo re-simulates every candidate with the same seed.
	MonteCarlo Backend = iota
	// Analytic uses the frozen-weights swaption approximation.
	Analytic
)

func (b Backend) String() string {
	switch b {
	case MonteCarlo:
		return "montecarlo"
	case Analytic:
		return "analytic"
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// ParseBackend accepts "montecarlo" or "analytic".
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "montecarlo", "monte-carlo", "mc", "":
		return MonteCarlo, nil
	case "analytic":
		return Analytic, nil
	}
	return 0, errs.Mismatchf("calibration.ParseBackend", "unknown backend %q", s)
}

// Weighting selects the objective weights.
type Weighting int

const (
	// Relative weighs each instrument by 1/target².
	Relative Weighting = iota
	// Uniform weighs every instrument by 1.
	Uniform
)

func (w Weighting) String() string {
	switch w {
	case Relative:
		return "relative"
	case Uniform:
		return "uniform"
	}
	return fmt.Sprintf("Weighting(%d)", int(w))
}

// ParseWeighting accepts "relative" or "uniform".
func ParseWeighting(s string) (Weighting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relative", "":
		return Relative, nil
	case "uniform":
		return Uniform, nil
	}
	return 0, errs.Mismatchf("calibration.ParseWeighting", "unknown weighting %q", s)
}

// State is the lifecycle of an Engine.
type State int

const (
	Init State = iota
	BuildInstruments
	Optimize
	Calibrated
	Failed
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case BuildInstruments:
		return "build_instruments"
	case Optimize:
		return "optimize"
	case Calibrated:
		return "calibrated"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Product is one calibration instrument. It is fixed once built.
type Product struct {
	Swaption pricing.Swaption
	// Fixing is T_Start, Maturity is T_End.
	Fixing   float64
	Maturity float64
	Target   float64
	Weight   float64
}

// Parameter names one of the six calibratable scalars.
type Parameter int

const (
	A Parameter = iota
	B
	C
	D
	Decay
	Displacement
)

var parameterNames = [covariance.NumParameters]string{"a", "b", "c", "d", "decay", "displacement"}

func (p Parameter) String() string {
	if p < 0 || int(p) >= len(parameterNames) {
		return fmt.Sprintf("Parameter(%d)", int(p))
	}
	return parameterNames[p]
}

// ParseParameter accepts a, b, c, d, decay or displacement.
func ParseParameter(s string) (Parameter, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range parameterNames {
		if n == name {
			return Parameter(i), nil
		}
	}
	return 0, errs.Mismatchf("calibration.ParseParameter", "unknown parameter %q", s)
}

// Parameters is a starting point together with the scalars held fixed.
type Parameters struct {
	Initial covariance.Parameters
	frozen  [covariance.NumParameters]bool
}

// NewParameters frees every scalar except those listed.
func NewParameters(initial covariance.Parameters, frozen ...Parameter) Parameters {
	p := Parameters{Initial: initial}
	for _, f := range frozen {
		if f >= 0 && int(f) < covariance.NumParameters {
			p.frozen[f] = true
		}
	}
	return p
}

// Frozen reports whether q is held at its initial value.
func (p Parameters) Frozen(q Parameter) bool { return p.frozen[q] }

// Free returns the calibrated parameters in vector order.
func (p Parameters) Free() []Parameter {
	var out []Parameter
	for i, f := range p.frozen {
		if !f {
			out = append(out, Parameter(i))
		}
	}
	return out
}

// pack extracts the free values of c.
func (p Parameters) pack(c covariance.Parameters) []float64 {
	v := c.Vector()
	x := make([]float64, 0, len(v))
	for i, f := range p.frozen {
		if !f {
			x = append(x, v[i])
		}
	}
	return x
}

// unpack fills the free slots of the initial vector from x.
func (p Parameters) unpack(x []float64) covariance.Parameters {
	v := p.Initial.Vector()
	k := 0
	for i, f := range p.frozen {
		if !f {
			v[i] = x[k]
			k++
		}
	}
	out, _ := covariance.ParametersFromVector(v)
	return out
}
