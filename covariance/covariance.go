// Package covariance combines volatility, correlation and dynamics into the
// immutable covariance structure that drives the forward rates.
package covariance

import (
	"math"

	"github.com/meenmo/lmm/correlation"
	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/timegrid"
	"github.com/meenmo/lmm/volatility"
)

// Parameters are the six scalars a calibration can move.
type Parameters struct {
	A, B, C, D   float64
	Decay        float64
	Displacement float64
}

// NumParameters is the length of Parameters.Vector.
const NumParameters = 6

// Volatility returns the (a, b, c, d) part.
func (p Parameters) Volatility() volatility.Parameters {
	return volatility.Parameters{A: p.A, B: p.B, C: p.C, D: p.D}
}

// Vector returns (a, b, c, d, decay, displacement).
func (p Parameters) Vector() []float64 {
	return []float64{p.A, p.B, p.C, p.D, p.Decay, p.Displacement}
}

// ParametersFromVector is the inverse of Vector.
func ParametersFromVector(x []float64) (Parameters, error) {
	if len(x) != NumParameters {
		return Parameters{}, errs.Configf("covariance.ParametersFromVector", "got %d values, want %d", len(x), NumParameters)
	}
	return Parameters{A: x[0], B: x[1], C: x[2], D: x[3], Decay: x[4], Displacement: x[5]}, nil
}

// Normalize floors c, d and decay at 0 and clamps displacement to [0,1].
func (p Parameters) Normalize() Parameters {
	v := p.Volatility().Normalize()
	p.C, p.D = v.C, v.D
	p.Decay = math.Max(p.Decay, 0)
	p.Displacement = volatility.ClampDisplacement(p.Displacement)
	return p
}

// Spec describes a parametric model.
type Spec struct {
	Simulation timegrid.Discretization
	Tenor      timegrid.Discretization
	// Forwards are L_i(0), one per tenor period.
	Forwards   []float64
	Volatility volatility.Parameters
	Dynamics   volatility.Dynamics
	// Displacement overrides DisplacementFor(Dynamics) when set.
	Displacement     *float64
	CorrelationDecay float64
	// Factors is the number of retained factors; 0 keeps all of them.
	Factors int
}

// Model is immutable once built. Derive variants with WithModified.
type Model struct {
	sim, tenor timegrid.Discretization
	forwards   []float64
	dynamics   volatility.Dynamics
	params     Parameters
	factorRank int

	// raw is the relative volatility σ_i(t_j) before any dynamics scaling.
	raw *volatility.Matrix
	// full is the correlation before factor reduction; corr is the Gram
	// matrix of the retained factors.
	full    *correlation.Matrix
	corr    *correlation.Matrix
	factors *correlation.Factors

	explicitVol, explicitCorr bool
}

// New builds the volatility matrix, the correlation and its factor loadings.
func New(spec Spec) (*Model, error) {
	if !spec.Dynamics.Valid() {
		return nil, errs.Mismatchf("covariance.New", "unknown dynamics %v", spec.Dynamics)
	}
	disp := volatility.DisplacementFor(spec.Dynamics)
	if spec.Displacement != nil {
		disp = *spec.Displacement
	}
	params := Parameters{
		A: spec.Volatility.A, B: spec.Volatility.B, C: spec.Volatility.C, D: spec.Volatility.D,
		Decay:        spec.CorrelationDecay,
		Displacement: disp,
	}.Normalize()

	raw, err := volatility.Build(params.Volatility(), spec.Simulation, spec.Tenor, volatility.Lognormal, nil)
	if err != nil {
		return nil, err
	}
	corr, err := correlation.ExponentialDecay(params.Decay, spec.Tenor)
	if err != nil {
		return nil, err
	}
	return assemble(spec.Simulation, spec.Tenor, spec.Forwards, spec.Dynamics, params, spec.Factors, raw, corr)
}

// NewFromMatrices builds a model around an explicit relative volatility matrix
// and correlation. Displacement is taken from params as given. Both matrices
// are kept through WithModified: SetFactors re-factors corr, while changes to
// (a, b, c, d) or the decay are rejected with errs.ErrTypeMismatch.
func NewFromMatrices(sim, tenor timegrid.Discretization, forwards []float64, dyn volatility.Dynamics,
	params Parameters, factors int, vol *volatility.Matrix, corr *correlation.Matrix) (*Model, error) {
	if !dyn.Valid() {
		return nil, errs.Mismatchf("covariance.NewFromMatrices", "unknown dynamics %v", dyn)
	}
	m, err := assemble(sim, tenor, forwards, dyn, params.Normalize(), factors, vol, corr)
	if err != nil {
		return nil, err
	}
	m.explicitVol, m.explicitCorr = true, true
	return m, nil
}

func assemble(sim, tenor timegrid.Discretization, forwards []float64, dyn volatility.Dynamics,
	params Parameters, rank int, raw *volatility.Matrix, corr *correlation.Matrix) (*Model, error) {
	n := tenor.NumberOfSteps()
	if len(forwards) != n {
		return nil, errs.Configf("covariance.New", "%d forwards for %d tenor periods", len(forwards), n)
	}
	rows, cols := raw.Dims()
	if cols != n || corr.Dim() != n {
		return nil, errs.Configf("covariance.New", "volatility has %d columns, correlation %d rows, want %d", cols, corr.Dim(), n)
	}
	if rows != sim.NumberOfSteps() {
		return nil, errs.Configf("covariance.New", "volatility has %d rows for %d simulation steps", rows, sim.NumberOfSteps())
	}
	// The numeraire and the integrated covariances start at T_0.
	if math.Abs(tenor.Time(0)-sim.Time(0)) > timegrid.Tolerance {
		return nil, errs.Configf("covariance.New", "tenor grid starts at %v, simulation grid at %v", tenor.Time(0), sim.Time(0))
	}
	if rank == 0 {
		rank = n
	}
	f, err := correlation.FactorLoadings(corr, rank)
	if err != nil {
		return nil, err
	}
	fw := make([]float64, n)
	copy(fw, forwards)
	return &Model{
		sim:        sim,
		tenor:      tenor,
		forwards:   fw,
		dynamics:   dyn,
		params:     params,
		factorRank: rank,
		raw:        raw,
		full:       corr,
		corr:       f.Correlation(),
		factors:    f,
	}, nil
}

// Simulation is the simulation grid t_0..t_m.
func (m *Model) Simulation() timegrid.Discretization { return m.sim }

// Tenor is the tenor grid T_0..T_n.
func (m *Model) Tenor() timegrid.Discretization { return m.tenor }

// NumberOfForwards is n.
func (m *Model) NumberOfForwards() int { return len(m.forwards) }

// InitialForward returns L_i(0).
func (m *Model) InitialForward(i int) float64 { return m.forwards[i] }

// InitialForwards returns a copy of L(0).
func (m *Model) InitialForwards() []float64 {
	out := make([]float64, len(m.forwards))
	copy(out, m.forwards)
	return out
}

// Dynamics is the volatility convention of the model.
func (m *Model) Dynamics() volatility.Dynamics { return m.dynamics }

// Displacement is the blend weight β.
func (m *Model) Displacement() float64 { return m.params.Displacement }

// IsBlended reports whether β differs from the pure value of the dynamics.
func (m *Model) IsBlended() bool {
	return m.params.Displacement != volatility.DisplacementFor(m.dynamics)
}

// Parameters returns the current six-scalar vector.
func (m *Model) Parameters() Parameters { return m.params }

// NumberOfFactors is the number of Brownian drivers.
func (m *Model) NumberOfFactors() int { return m.factorRank }

// Factors returns the unit-row loadings of the (possibly reduced) correlation.
func (m *Model) Factors() *correlation.Factors { return m.factors }

// Correlation returns the correlation implied by the retained factors.
func (m *Model) Correlation() *correlation.Matrix { return m.corr }

// Volatility is v_i(t_j): relative under Lognormal, scaled by L_i(0) under Normal.
func (m *Model) Volatility(timeIndex, i int) float64 {
	v := m.raw.At(timeIndex, i)
	if m.dynamics == volatility.Normal {
		v *= m.forwards[i]
	}
	return v
}

// AbsoluteVolatility is σ_i(t_j)·(β L_i(0) + (1-β) rate).
func (m *Model) AbsoluteVolatility(timeIndex, i int, rate float64) float64 {
	beta := m.params.Displacement
	return m.raw.At(timeIndex, i) * (beta*m.forwards[i] + (1-beta)*rate)
}

// FactorLoading is the absolute loading of rate i on factor k at t_j given the
// current rates.
func (m *Model) FactorLoading(timeIndex, i, k int, rates []float64) float64 {
	return m.AbsoluteVolatility(timeIndex, i, rates[i]) * m.factors.At(i, k)
}

// Covariance is the absolute instantaneous covariance of rates i and j at t_j.
func (m *Model) Covariance(timeIndex, i, j int, rates []float64) float64 {
	return m.AbsoluteVolatility(timeIndex, i, rates[i]) * m.AbsoluteVolatility(timeIndex, j, rates[j]) * m.corr.At(i, j)
}

// IntegratedCovariance is Σ v_i(t_s) v_j(t_s) ρ_ij Δt_s over the simulation
// steps [t_s, t_{s+1}) inside [from, to).
func (m *Model) IntegratedCovariance(i, j int, from, to float64) float64 {
	rho := m.corr.At(i, j)
	sum := 0.0
	for s := 0; s < m.sim.NumberOfSteps(); s++ {
		if m.sim.Time(s) < from-timegrid.Tolerance {
			continue
		}
		if m.sim.Time(s+1) > to+timegrid.Tolerance {
			break
		}
		sum += m.Volatility(s, i) * m.Volatility(s, j) * rho * m.sim.Step(s)
	}
	return sum
}
