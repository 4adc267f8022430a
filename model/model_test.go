package model

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/meenmo/lmm/calibration"
	"github.com/meenmo/lmm/config"
	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/simulation"
)

func smallConfig() config.Config {
	c, err := config.Parse([]byte(`
model:
  tenor_horizon: 2
  simulation_step: 0.25
  fixings: [0.5, 1.5]
  forwards: [0.03, 0.05]
  paths: 200
simulation:
  workers: 2
`))
	if err != nil {
		panic(err)
	}
	return c
}

func TestNew_FromConfig(t *testing.T) {
	t.Parallel()

	m, err := New(smallConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Curve().Len() != 4 {
		t.Fatalf("expected 4 forwards, got %d", m.Curve().Len())
	}
	want := []float64{0.03, 0.03, 0.04, 0.05}
	for i, w := range want {
		if math.Abs(m.Curve().Forward(i)-w) > 1e-15 {
			t.Fatalf("forward %d: got %v, want %v", i, m.Curve().Forward(i), w)
		}
	}
	if m.Covariance().Simulation().NumberOfSteps() != 8 {
		t.Fatalf("simulation steps: %d", m.Covariance().Simulation().NumberOfSteps())
	}
	opts := m.Options()
	if opts.Measure != simulation.Spot || opts.StateSpace != simulation.LognormalState || opts.Seed != 1897 {
		t.Fatalf("options: %+v", opts)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	c := smallConfig()
	c.Model.Dynamics = "cubic"
	if _, err := New(c, nil); !errors.Is(err, errs.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	c = smallConfig()
	c.Model.SimulationStep = 0.3
	if _, err := New(c, nil); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestWithCorrelationDecay(t *testing.T) {
	t.Parallel()

	m, err := New(smallConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	same, err := m.WithCorrelationDecay(m.Covariance().Parameters().Decay)
	if err != nil {
		t.Fatalf("WithCorrelationDecay: %v", err)
	}
	a, err := m.Simulate(context.Background())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	b, err := same.Simulate(context.Background())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	last := a.Simulation.NumberOfSteps()
	for p := 0; p < a.NumberOfPaths(); p += 37 {
		if a.Path(p).Forward(last, 3) != b.Path(p).Forward(last, 3) {
			t.Fatalf("path %d differs for an unchanged decay", p)
		}
	}

	other, err := m.WithCorrelationDecay(1.5)
	if err != nil {
		t.Fatalf("WithCorrelationDecay: %v", err)
	}
	if other.Covariance().Parameters().Decay != 1.5 || m.Covariance().Parameters().Decay != 0.3 {
		t.Fatalf("decays: clone %v, original %v", other.Covariance().Parameters().Decay, m.Covariance().Parameters().Decay)
	}
	if other.Options().Seed != m.Options().Seed {
		t.Fatalf("clone must keep the seed")
	}
	if got := other.Covariance().Correlation().At(0, 1); math.Abs(got-math.Exp(-1.5*0.5)) > 1e-12 {
		t.Fatalf("clone correlation: %v", got)
	}
}

func TestCalibrationOptions(t *testing.T) {
	t.Parallel()

	m, err := New(smallConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cc := config.DefaultConfig.Calibration
	cc.Backend = "analytic"
	cc.Frozen = []string{"decay", "displacement"}
	opts, err := m.CalibrationOptions(cc, 1)
	if err != nil {
		t.Fatalf("CalibrationOptions: %v", err)
	}
	if opts.Backend != calibration.Analytic || opts.Grid != calibration.GridStrikes || opts.Weighting != calibration.Relative {
		t.Fatalf("options: %+v", opts)
	}
	if !opts.Parameters.Frozen(calibration.Decay) || opts.Parameters.Frozen(calibration.A) {
		t.Fatalf("frozen flags wrong")
	}
	if opts.Parameters.Initial.Displacement != 0 {
		t.Fatalf("frozen displacement should follow the model, got %v", opts.Parameters.Initial.Displacement)
	}

	cc.Frozen = []string{"gamma"}
	if _, err := m.CalibrationOptions(cc, 1); !errors.Is(err, errs.ErrTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}

	e, err := m.Calibrator(config.DefaultConfig.Calibration, 1)
	if err != nil {
		t.Fatalf("Calibrator: %v", err)
	}
	if e.State() != calibration.Init {
		t.Fatalf("state: %v", e.State())
	}
}

func TestFactorSweep(t *testing.T) {
	t.Parallel()

	m, err := New(smallConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	decays, err := DecayRange(0, 0.4, 0.1)
	if err != nil {
		t.Fatalf("DecayRange: %v", err)
	}
	if len(decays) != 5 {
		t.Fatalf("expected 5 decays, got %v", decays)
	}
	rows, err := m.FactorSweep(decays, []int{1, 4})
	if err != nil {
		t.Fatalf("FactorSweep: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if r.Error < 0 {
			t.Fatalf("negative error %+v", r)
		}
		if r.Factors == 4 && r.Error > 1e-10 {
			t.Fatalf("full rank should reproduce the matrix: %+v", r)
		}
	}
	if rows[0].Error > 1e-10 {
		t.Fatalf("zero decay is rank one: %+v", rows[0])
	}
	if rows[8].Decay != decays[4] || rows[8].Factors != 1 || rows[8].Error <= 0 {
		t.Fatalf("one factor at decay 0.4 should lose information: %+v", rows[8])
	}

	if _, err := FactorSweep(m.Curve().Tenor(), decays, []int{5}); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := DecayRange(1, 0, 0.1); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNew_DatedSchedule(t *testing.T) {
	t.Parallel()

	c := smallConfig()
	c.Model.Schedule = &config.ScheduleConfig{
		Anchor:          "2025-01-15",
		End:             "2027-01-15",
		FrequencyMonths: 6,
		DayCount:        "ACT/360",
		Holidays:        []string{"2025-07-15"},
	}
	m, err := New(c, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tenor := m.Covariance().Tenor()
	if tenor.Len() != 5 {
		t.Fatalf("expected 5 tenor dates, got %s", tenor)
	}
	if math.Abs(tenor.Time(1)-182.0/360.0) > 1e-12 {
		t.Fatalf("first accrual %v", tenor.Time(1))
	}
	sim := m.Covariance().Simulation()
	if !sim.Contains(tenor) {
		t.Fatalf("simulation grid %s does not contain %s", sim, tenor)
	}
	if _, err := m.Simulate(context.Background()); err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	c.Model.Schedule.DayCount = "BUS/252"
	if _, err := New(c, nil); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
