// Package simulation evolves the forward rates of a covariance model with an
// Euler scheme and records the paths together with the numeraire.
package simulation

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/lmm/covariance"
	"github.com/meenmo/lmm/curve"
	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/logger"
)

const defaultChunkSize = 256

// Simulator runs a configured model. Run is not safe for concurrent use.
type Simulator struct {
	model *covariance.Model
	opts  Options
	log   *logrus.Entry
	state State

	// stepTenor[j] is the first tenor index with T_i > t_j.
	stepTenor []int
	// fixIndex[i] is the simulation index of T_i.
	fixIndex []int
}

// New validates the model against the options. Every configuration problem
// is reported here, before any path is drawn.
func New(model *covariance.Model, opts Options) (*Simulator, error) {
	if model == nil {
		return nil, errs.Configf("simulation.New", "nil model")
	}
	if opts.Measure != Spot && opts.Measure != Terminal {
		return nil, errs.Mismatchf("simulation.New", "unknown measure %v", opts.Measure)
	}
	if opts.StateSpace != LognormalState && opts.StateSpace != NormalState {
		return nil, errs.Mismatchf("simulation.New", "unknown state space %v", opts.StateSpace)
	}
	if opts.Paths < 1 {
		return nil, errs.Configf("simulation.New", "paths=%d", opts.Paths)
	}
	if opts.Workers < 0 || opts.ChunkSize < 0 {
		return nil, errs.Configf("simulation.New", "workers=%d chunk=%d", opts.Workers, opts.ChunkSize)
	}
	if opts.MaxDroppedFraction < 0 || opts.MaxDroppedFraction > 1 {
		return nil, errs.Configf("simulation.New", "max dropped fraction %v outside [0,1]", opts.MaxDroppedFraction)
	}

	sim, tenor := model.Simulation(), model.Tenor()
	if !sim.Contains(tenor) {
		return nil, errs.Configf("simulation.New", "tenor grid %s is not contained in simulation grid %s", tenor, sim)
	}
	initial, err := curve.NewForwardCurve(tenor, model.InitialForwards())
	if err != nil {
		return nil, fmt.Errorf("simulation.New: %w", err)
	}
	if opts.StateSpace == LognormalState && !initial.AllPositive() {
		return nil, errs.Configf("simulation.New", "lognormal state space needs positive forwards, got %v", initial.Forwards())
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = defaultChunkSize
	}

	stepTenor := make([]int, sim.Len())
	for j := range stepTenor {
		stepTenor[j] = tenor.IndexBefore(sim.Time(j)) + 1
	}
	fixIndex := make([]int, tenor.Len())
	for i := range fixIndex {
		fixIndex[i] = sim.Index(tenor.Time(i))
	}

	return &Simulator{
		model:     model,
		opts:      opts,
		log:       logger.OrDiscard(opts.Logger).WithField("component", "simulation"),
		state:     Configured,
		stepTenor: stepTenor,
		fixIndex:  fixIndex,
	}, nil
}

// State reports the lifecycle state of the last run.
func (s *Simulator) State() State { return s.state }

// Model returns the simulated model.
func (s *Simulator) Model() *covariance.Model { return s.model }

// Options returns the effective options (defaults filled in).
func (s *Simulator) Options() Options { return s.opts }

// Run simulates all paths. Paths are split in chunks over a bounded worker
// pool; each path draws from its own stream so results do not depend on the
// number of workers.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	s.state = Stepping
	start := time.Now()

	res := &Result{
		Simulation: s.model.Simulation(),
		Tenor:      s.model.Tenor(),
		Measure:    s.opts.Measure,
		StateSpace: s.opts.StateSpace,
		Seed:       s.opts.Seed,
		paths:      make([]Path, s.opts.Paths),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for lo := 0; lo < s.opts.Paths; lo += s.opts.ChunkSize {
		lo, hi := lo, min(lo+s.opts.ChunkSize, s.opts.Paths)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			w := s.newWorkspace()
			for p := lo; p < hi; p++ {
				res.paths[p] = s.simulatePath(p, w)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.state = Failed
		return nil, fmt.Errorf("simulation.Run: %w", err)
	}

	for i := range res.paths {
		if !res.paths[i].valid {
			res.Dropped++
		}
	}
	fraction := float64(res.Dropped) / float64(len(res.paths))
	s.log.WithFields(logrus.Fields{
		"paths":    s.opts.Paths,
		"dropped":  res.Dropped,
		"measure":  s.opts.Measure.String(),
		"state":    s.opts.StateSpace.String(),
		"factors":  s.model.NumberOfFactors(),
		"duration": time.Since(start).String(),
	}).Debug("simulation complete")

	if fraction > s.opts.MaxDroppedFraction {
		s.state = Failed
		return nil, fmt.Errorf("simulation.Run: %w: %d of %d paths non-finite", errs.ErrSimulationFailure, res.Dropped, len(res.paths))
	}
	s.state = Complete
	return res, nil
}

// workspace holds per-worker scratch buffers.
type workspace struct {
	vol   []float64 // absolute volatility per rate
	drift []float64
	next  []float64
	dw    []float64
}

func (s *Simulator) newWorkspace() *workspace {
	n := s.model.NumberOfForwards()
	return &workspace{
		vol:   make([]float64, n),
		drift: make([]float64, n),
		next:  make([]float64, n),
		dw:    make([]float64, s.model.NumberOfFactors()),
	}
}

func (s *Simulator) simulatePath(index int, w *workspace) Path {
	sim := s.model.Simulation()
	n := s.model.NumberOfForwards()
	steps := sim.NumberOfSteps()

	p := Path{
		n:         n,
		tenor:     s.model.Tenor(),
		rates:     make([]float64, (steps+1)*n),
		numeraire: make([]float64, steps+1),
		valid:     true,
	}
	copy(p.rates[:n], s.model.InitialForwards())

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(pathSeed(s.opts.Seed, index))}

	for j := 0; j < steps; j++ {
		dt := sim.Step(j)
		sq := math.Sqrt(dt)
		for k := range w.dw {
			w.dw[k] = normal.Rand() * sq
		}
		current := p.rates[j*n : (j+1)*n]
		next := p.rates[(j+1)*n : (j+2)*n]
		if !s.step(j, dt, current, next, w) {
			p.valid = false
			return p
		}
	}

	if !s.fillNumeraire(&p) {
		p.valid = false
	}
	return p
}

// step advances all live rates from t_j to t_{j+1}. It reports false when a
// rate became non-finite.
func (s *Simulator) step(j int, dt float64, current, next []float64, w *workspace) bool {
	n := len(current)
	first := s.stepTenor[j]
	copy(next, current)
	if first >= n {
		return true
	}

	tenor := s.model.Tenor()
	corr := s.model.Correlation()
	factors := s.model.Factors()

	for i := first; i < n; i++ {
		w.vol[i] = s.model.AbsoluteVolatility(j, i, current[i])
	}

	switch s.opts.Measure {
	case Spot:
		// μ_i = Σ_{l=first}^{i} δ_l c_il / (1 + δ_l L_l)
		for i := first; i < n; i++ {
			acc := 0.0
			for l := first; l <= i; l++ {
				delta := tenor.Step(l)
				acc += delta * w.vol[l] * corr.At(i, l) / (1 + delta*current[l])
			}
			w.drift[i] = w.vol[i] * acc
		}
	case Terminal:
		// μ_i = -Σ_{l=i+1}^{n-1} δ_l c_il / (1 + δ_l L_l)
		for i := first; i < n; i++ {
			acc := 0.0
			for l := i + 1; l < n; l++ {
				delta := tenor.Step(l)
				acc += delta * w.vol[l] * corr.At(i, l) / (1 + delta*current[l])
			}
			w.drift[i] = -w.vol[i] * acc
		}
	}

	for i := first; i < n; i++ {
		row := factors.Row(i)
		diffusion := 0.0
		for k, dw := range w.dw {
			diffusion += row[k] * dw
		}
		diffusion *= w.vol[i]

		switch s.opts.StateSpace {
		case LognormalState:
			l := current[i]
			rel := w.vol[i] / l
			next[i] = l * math.Exp((w.drift[i]/l-0.5*rel*rel)*dt+diffusion/l)
		case NormalState:
			next[i] = current[i] + w.drift[i]*dt + diffusion
		}
		if math.IsNaN(next[i]) || math.IsInf(next[i], 0) {
			return false
		}
	}
	return true
}

// fillNumeraire writes N(t_j) for every simulation time of p.
func (s *Simulator) fillNumeraire(p *Path) bool {
	sim := s.model.Simulation()
	tenor := s.model.Tenor()
	n := p.n

	// L_k(T_k), the fixings
	fixed := make([]float64, n)
	for k := 0; k < n; k++ {
		fixed[k] = p.Forward(s.fixIndex[k], k)
	}

	for j := 0; j < sim.Len(); j++ {
		t := sim.Time(j)
		k := s.stepTenor[j] - 1 // T_k <= t < T_{k+1}
		var v float64
		switch s.opts.Measure {
		case Spot:
			v = 1
			for l := 0; l < k && l < n; l++ {
				v *= 1 + tenor.Step(l)*fixed[l]
			}
			if k < n {
				v *= 1 + (t-tenor.Time(k))*fixed[k]
			}
		case Terminal:
			v = 1
			if k < n {
				v = 1 / (1 + (tenor.Time(k+1)-t)*fixed[k])
				for l := k + 1; l < n; l++ {
					v /= 1 + tenor.Step(l)*p.Forward(j, l)
				}
			}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
		p.numeraire[j] = v
	}
	return true
}
