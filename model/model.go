// Package model assembles the full LIBOR market model chain from a
// configuration: grids, initial curve, covariance and simulation setup.
package model

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/meenmo/lmm/calendar"
	"github.com/meenmo/lmm/calibration"
	"github.com/meenmo/lmm/config"
	"github.com/meenmo/lmm/covariance"
	"github.com/meenmo/lmm/curve"
	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/simulation"
	"github.com/meenmo/lmm/timegrid"
	"github.com/meenmo/lmm/utils"
	"github.com/meenmo/lmm/volatility"
)

// Model is a covariance model together with its initial curve and the
// options it is simulated with.
type Model struct {
	curve      *curve.ForwardCurve
	covariance *covariance.Model
	opts       simulation.Options
}

// StateSpaceFor returns the Euler state space used for dynamics d.
func StateSpaceFor(d volatility.Dynamics) simulation.StateSpace {
	if d == volatility.Normal {
		return simulation.NormalState
	}
	return simulation.LognormalState
}

// New builds the model described by cfg.Model and cfg.Simulation.
func New(cfg config.Config, log *logrus.Entry) (*Model, error) {
	mc := cfg.Model
	sim, tenor, err := grids(mc)
	if err != nil {
		return nil, err
	}

	fc, err := curve.InterpolateForwards(tenor, mc.Fixings, mc.Forwards)
	if err != nil {
		return nil, fmt.Errorf("model.New: %w", err)
	}
	dyn, err := volatility.ParseDynamics(mc.Dynamics)
	if err != nil {
		return nil, err
	}
	measure, err := simulation.ParseMeasure(mc.Measure)
	if err != nil {
		return nil, err
	}

	cov, err := covariance.New(covariance.Spec{
		Simulation: sim,
		Tenor:      tenor,
		Forwards:   fc.Forwards(),
		Volatility: volatility.Parameters{
			A: mc.Volatility.A, B: mc.Volatility.B, C: mc.Volatility.C, D: mc.Volatility.D,
		},
		Dynamics:         dyn,
		Displacement:     mc.Displacement,
		CorrelationDecay: mc.CorrelationDecay,
		Factors:          mc.Factors,
	})
	if err != nil {
		return nil, fmt.Errorf("model.New: %w", err)
	}

	return &Model{
		curve:      fc,
		covariance: cov,
		opts: simulation.Options{
			Measure:            measure,
			StateSpace:         StateSpaceFor(dyn),
			Paths:              mc.Paths,
			Seed:               mc.Seed,
			Workers:            cfg.Simulation.Workers,
			ChunkSize:          cfg.Simulation.ChunkSize,
			MaxDroppedFraction: cfg.Simulation.MaxDroppedFraction,
			Logger:             log,
		},
	}, nil
}

// grids builds the simulation and tenor grids: uniform, or from a dated
// schedule refined to the simulation step.
func grids(mc config.ModelConfig) (sim, tenor timegrid.Discretization, err error) {
	if sc := mc.Schedule; sc != nil {
		tenor, err = scheduleGrid(*sc)
		if err != nil {
			return sim, tenor, fmt.Errorf("model.New: tenor schedule: %w", err)
		}
		sim, err = timegrid.Refine(tenor, mc.SimulationStep)
		if err != nil {
			return sim, tenor, fmt.Errorf("model.New: simulation grid: %w", err)
		}
		return sim, tenor, nil
	}

	tenor, err = timegrid.UniformHorizon(mc.TenorHorizon, mc.TenorStep)
	if err != nil {
		return sim, tenor, fmt.Errorf("model.New: tenor grid: %w", err)
	}
	horizon := mc.SimulationHorizon
	if horizon == 0 {
		horizon = mc.TenorHorizon
	}
	sim, err = timegrid.UniformHorizon(horizon, mc.SimulationStep)
	if err != nil {
		return sim, tenor, fmt.Errorf("model.New: simulation grid: %w", err)
	}
	return sim, tenor, nil
}

func scheduleGrid(sc config.ScheduleConfig) (timegrid.Discretization, error) {
	anchor, err := utils.ParseDate(sc.Anchor)
	if err != nil {
		return timegrid.Discretization{}, errs.Configf("model.scheduleGrid", "anchor %q: %v", sc.Anchor, err)
	}
	end, err := utils.ParseDate(sc.End)
	if err != nil {
		return timegrid.Discretization{}, errs.Configf("model.scheduleGrid", "end %q: %v", sc.End, err)
	}
	if sc.FrequencyMonths <= 0 || !end.After(anchor) {
		return timegrid.Discretization{}, errs.Configf("model.scheduleGrid", "schedule %s to %s every %d months", sc.Anchor, sc.End, sc.FrequencyMonths)
	}
	dc, err := utils.ParseDayCount(sc.DayCount)
	if err != nil {
		return timegrid.Discretization{}, errs.Configf("model.scheduleGrid", "%v", err)
	}
	cal, err := calendar.Parse("schedule", sc.Holidays)
	if err != nil {
		return timegrid.Discretization{}, errs.Configf("model.scheduleGrid", "holidays: %v", err)
	}
	return timegrid.FromDates(anchor, cal.Schedule(anchor, end, sc.FrequencyMonths), dc)
}

// Curve returns the interpolated initial forward curve.
func (m *Model) Curve() *curve.ForwardCurve { return m.curve }

// Covariance returns the covariance model.
func (m *Model) Covariance() *covariance.Model { return m.covariance }

// Options returns the simulation options.
func (m *Model) Options() simulation.Options { return m.opts }

// Simulate runs the Euler scheme with the model's options.
func (m *Model) Simulate(ctx context.Context) (*simulation.Result, error) {
	s, err := simulation.New(m.covariance, m.opts)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}

// WithCovariance returns a model simulated with the same curve, seed and
// options but driven by cov.
func (m *Model) WithCovariance(cov *covariance.Model) *Model {
	out := *m
	out.covariance = cov
	return &out
}

// WithCorrelationDecay rebuilds the correlation with a new decay and keeps
// everything else. The clone shares the seed, so both models see the same
// Brownian increments.
func (m *Model) WithCorrelationDecay(decay float64) (*Model, error) {
	cov, err := m.covariance.WithModified(covariance.SetCorrelationDecay(decay))
	if err != nil {
		return nil, err
	}
	return m.WithCovariance(cov), nil
}

// CalibrationOptions translates cc into engine options calibrating against
// this model's simulation setup.
func (m *Model) CalibrationOptions(cc config.CalibrationConfig, workers int) (calibration.Options, error) {
	grid, err := calibration.ParseGrid(cc.Grid)
	if err != nil {
		return calibration.Options{}, err
	}
	backend, err := calibration.ParseBackend(cc.Backend)
	if err != nil {
		return calibration.Options{}, err
	}
	weighting, err := calibration.ParseWeighting(cc.Weighting)
	if err != nil {
		return calibration.Options{}, err
	}
	frozen := make([]calibration.Parameter, 0, len(cc.Frozen))
	for _, name := range cc.Frozen {
		p, err := calibration.ParseParameter(name)
		if err != nil {
			return calibration.Options{}, err
		}
		frozen = append(frozen, p)
	}

	initial := covariance.Parameters{
		A:            cc.Initial.A,
		B:            cc.Initial.B,
		C:            cc.Initial.C,
		D:            cc.Initial.D,
		Decay:        cc.Initial.Decay,
		Displacement: cc.Initial.Displacement,
	}
	// A frozen displacement stays at the reference value.
	params := calibration.NewParameters(initial, frozen...)
	if params.Frozen(calibration.Displacement) {
		initial.Displacement = m.covariance.Displacement()
		params = calibration.NewParameters(initial, frozen...)
	}

	return calibration.Options{
		Grid:              grid,
		StrikeLow:         cc.StrikeLow,
		StrikeHigh:        cc.StrikeHigh,
		NoiseAmplitude:    cc.NoiseAmplitude,
		NoiseSeed:         cc.NoiseSeed,
		Weighting:         weighting,
		Backend:           backend,
		Simulation:        m.opts,
		Parameters:        params,
		MaxIterations:     cc.MaxIterations,
		MaxEvaluations:    cc.MaxEvaluations,
		Runtime:           cc.Runtime,
		FunctionTolerance: cc.FunctionTolerance,
		Workers:           workers,
		Logger:            m.opts.Logger,
	}, nil
}

// Calibrator returns an engine calibrating against this model.
func (m *Model) Calibrator(cc config.CalibrationConfig, workers int) (*calibration.Engine, error) {
	opts, err := m.CalibrationOptions(cc, workers)
	if err != nil {
		return nil, err
	}
	return calibration.New(m.covariance, opts)
}
