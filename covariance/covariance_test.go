package covariance

import (
	"errors"
	"math"
	"testing"

	"github.com/meenmo/lmm/correlation"
	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/timegrid"
	"github.com/meenmo/lmm/volatility"
)

func testSpec(t *testing.T, dyn volatility.Dynamics) Spec {
	t.Helper()
	sim, err := timegrid.UniformHorizon(5, 0.1)
	if err != nil {
		t.Fatalf("simulation grid: %v", err)
	}
	tenor, err := timegrid.UniformHorizon(5, 0.5)
	if err != nil {
		t.Fatalf("tenor grid: %v", err)
	}
	forwards := make([]float64, tenor.NumberOfSteps())
	for i := range forwards {
		forwards[i] = 0.05
	}
	return Spec{
		Simulation:       sim,
		Tenor:            tenor,
		Forwards:         forwards,
		Volatility:       volatility.Parameters{A: 0.5, B: 0.7, C: 0.35, D: 0.1},
		Dynamics:         dyn,
		CorrelationDecay: 0.3,
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	m, err := New(testSpec(t, volatility.Lognormal))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.NumberOfFactors() != 10 || m.Displacement() != 0 || m.IsBlended() {
		t.Fatalf("factors=%d displacement=%v", m.NumberOfFactors(), m.Displacement())
	}
	n, err := New(testSpec(t, volatility.Normal))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n.Displacement() != 1 {
		t.Fatalf("normal dynamics should default to displacement 1, got %v", n.Displacement())
	}
	// σ·L(0) under normal dynamics
	if got, want := n.Volatility(3, 4), m.Volatility(3, 4)*0.05; math.Abs(got-want) > 1e-15 {
		t.Fatalf("normal volatility: got %v want %v", got, want)
	}
	if got, want := n.AbsoluteVolatility(3, 4, 0.2), n.Volatility(3, 4); math.Abs(got-want) > 1e-15 {
		t.Fatalf("normal absolute volatility must not depend on the rate: got %v want %v", got, want)
	}
	if got, want := m.AbsoluteVolatility(3, 4, 0.2), m.Volatility(3, 4)*0.2; math.Abs(got-want) > 1e-15 {
		t.Fatalf("lognormal absolute volatility: got %v want %v", got, want)
	}
}

func TestNew_DimensionMismatch(t *testing.T) {
	t.Parallel()

	spec := testSpec(t, volatility.Lognormal)
	spec.Forwards = spec.Forwards[:4]
	if _, err := New(spec); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	spec = testSpec(t, volatility.Lognormal)
	spec.Factors = 11
	if _, err := New(spec); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error for rank, got %v", err)
	}

	spec = testSpec(t, volatility.Lognormal)
	vol, _ := volatility.FromRows([][]float64{{0.1, 0.1}})
	corr, _ := correlation.ExponentialDecay(0.3, spec.Tenor)
	if _, err := NewFromMatrices(spec.Simulation, spec.Tenor, spec.Forwards, volatility.Lognormal, Parameters{}, 0, vol, corr); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error for volatility shape, got %v", err)
	}

	spec = testSpec(t, volatility.Dynamics(5))
	if _, err := New(spec); !errors.Is(err, errs.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
}

func TestIntegratedCovariance(t *testing.T) {
	t.Parallel()

	m, err := New(testSpec(t, volatility.Lognormal))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// rate 4 fixes at T=2: 20 steps of 0.1
	want := 0.0
	for s := 0; s < 20; s++ {
		v := m.Volatility(s, 4)
		want += v * v * 0.1
	}
	if got := m.IntegratedCovariance(4, 4, 0, 2); math.Abs(got-want) > 1e-14 {
		t.Fatalf("variance: got %.15f want %.15f", got, want)
	}
	// nothing accrues after the fixing
	if got := m.IntegratedCovariance(4, 4, 0, 5); math.Abs(got-want) > 1e-14 {
		t.Fatalf("variance to horizon: got %.15f want %.15f", got, want)
	}
	if got := m.IntegratedCovariance(4, 6, 1, 1); got != 0 {
		t.Fatalf("empty interval: got %v", got)
	}
	if a, b := m.IntegratedCovariance(3, 6, 0, 1.5), m.IntegratedCovariance(6, 3, 0, 1.5); a != b {
		t.Fatalf("not symmetric: %v vs %v", a, b)
	}
}

func TestWithModified(t *testing.T) {
	t.Parallel()

	m, err := New(testSpec(t, volatility.Lognormal))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	before := m.Parameters()
	vol36 := m.Volatility(3, 6)
	rho := m.Correlation().At(2, 7)

	decayed, err := m.WithModified(SetCorrelationDecay(1.2))
	if err != nil {
		t.Fatalf("WithModified: %v", err)
	}
	if m.Parameters() != before || m.Correlation().At(2, 7) != rho {
		t.Fatalf("original was modified")
	}
	if decayed.Parameters().Decay != 1.2 {
		t.Fatalf("decay: got %v", decayed.Parameters().Decay)
	}
	if want := math.Exp(-1.2 * 2.5); math.Abs(decayed.Correlation().At(2, 7)-want) > 1e-12 {
		t.Fatalf("correlation: got %v want %v", decayed.Correlation().At(2, 7), want)
	}
	if decayed.raw != m.raw {
		t.Fatalf("volatility matrix should be shared")
	}

	revol, err := m.WithModified(SetVolatility(volatility.Parameters{A: 0.2, B: 0.1, C: 0.5, D: 0.05}))
	if err != nil {
		t.Fatalf("WithModified: %v", err)
	}
	if revol.Volatility(3, 6) == vol36 || m.Volatility(3, 6) != vol36 {
		t.Fatalf("volatility not rebuilt or original changed")
	}
	if revol.factors != m.factors {
		t.Fatalf("factors should be shared")
	}

	blended, err := m.WithModified(SetDisplacement(1.7))
	if err != nil {
		t.Fatalf("WithModified: %v", err)
	}
	if blended.Displacement() != 1 || !blended.IsBlended() {
		t.Fatalf("displacement: got %v", blended.Displacement())
	}

	p := before
	p.C, p.Decay = -1, 0.6
	all, err := m.WithModified(SetParameters(p))
	if err != nil {
		t.Fatalf("WithModified: %v", err)
	}
	if got := all.Parameters(); got.C != 0 || got.Decay != 0.6 {
		t.Fatalf("parameters: got %+v", got)
	}

	reduced, err := m.WithModified(SetFactors(2))
	if err != nil {
		t.Fatalf("WithModified: %v", err)
	}
	if reduced.NumberOfFactors() != 2 || reduced.Factors().Count() != 2 {
		t.Fatalf("factors: got %d", reduced.NumberOfFactors())
	}
}

func TestParametersVector(t *testing.T) {
	t.Parallel()

	p := Parameters{A: 1, B: 2, C: 3, D: 4, Decay: 5, Displacement: 0.5}
	q, err := ParametersFromVector(p.Vector())
	if err != nil || q != p {
		t.Fatalf("got %+v, %v", q, err)
	}
	if _, err := ParametersFromVector([]float64{1}); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func explicitModel(t *testing.T) (*Model, *correlation.Matrix) {
	t.Helper()
	grid, err := timegrid.New(0, 0.5, 1, 1.5)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	vol, err := volatility.FromRows([][]float64{
		{0.2, 0.2, 0.2},
		{0, 0.2, 0.2},
		{0, 0, 0.2},
	})
	if err != nil {
		t.Fatalf("volatility: %v", err)
	}
	corr, err := correlation.FromRows([][]float64{
		{1, 0.1, 0.05},
		{0.1, 1, 0.2},
		{0.05, 0.2, 1},
	})
	if err != nil {
		t.Fatalf("correlation: %v", err)
	}
	m, err := NewFromMatrices(grid, grid, []float64{0.03, 0.03, 0.03}, volatility.Lognormal, Parameters{Decay: 0.3}, 0, vol, corr)
	if err != nil {
		t.Fatalf("NewFromMatrices: %v", err)
	}
	return m, corr
}

func TestWithModified_ExplicitMatrices(t *testing.T) {
	t.Parallel()

	m, corr := explicitModel(t)
	if math.Abs(m.Correlation().At(0, 1)-0.1) > 1e-12 {
		t.Fatalf("full rank correlation: got %v", m.Correlation().At(0, 1))
	}

	reduced, err := m.WithModified(SetFactors(2))
	if err != nil {
		t.Fatalf("WithModified: %v", err)
	}
	want, err := correlation.ReduceRank(corr, 2)
	if err != nil {
		t.Fatalf("ReduceRank: %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(reduced.Correlation().At(i, j)-want.At(i, j)) > 1e-12 {
				t.Fatalf("rho(%d,%d): got %v want %v", i, j, reduced.Correlation().At(i, j), want.At(i, j))
			}
		}
	}
	if reduced.raw != m.raw {
		t.Fatalf("volatility matrix should be shared")
	}

	restored, err := reduced.WithModified(SetFactors(3))
	if err != nil {
		t.Fatalf("WithModified: %v", err)
	}
	if math.Abs(restored.Correlation().At(1, 2)-0.2) > 1e-12 {
		t.Fatalf("re-factoring must start from the explicit matrix: got %v", restored.Correlation().At(1, 2))
	}

	shifted, err := m.WithModified(SetDisplacement(0.5))
	if err != nil {
		t.Fatalf("WithModified: %v", err)
	}
	if shifted.raw != m.raw || shifted.corr != m.corr || shifted.Displacement() != 0.5 {
		t.Fatalf("displacement change must keep both matrices")
	}

	if _, err := m.WithModified(SetVolatility(volatility.Parameters{A: 0.1})); !errors.Is(err, errs.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch for volatility parameters, got %v", err)
	}
	if _, err := m.WithModified(SetCorrelationDecay(1)); !errors.Is(err, errs.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch for decay, got %v", err)
	}
}

func TestNew_TenorStartsAfterSimulation(t *testing.T) {
	t.Parallel()

	spec := testSpec(t, volatility.Lognormal)
	tenor, err := timegrid.New(0.5, 1, 1.5, 2)
	if err != nil {
		t.Fatalf("tenor grid: %v", err)
	}
	spec.Tenor = tenor
	spec.Forwards = []float64{0.05, 0.05, 0.05}
	if _, err := New(spec); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
