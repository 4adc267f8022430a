// Package calibration fits the covariance parameters of a LIBOR market model
// to a battery of swaption prices.
package calibration

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/optimize"

	"github.com/meenmo/lmm/covariance"
	"github.com/meenmo/lmm/curve"
	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/logger"
	"github.com/meenmo/lmm/pricing"
	"github.com/meenmo/lmm/simulation"
)

// DefaultMaxIterations bounds the optimizer when Options sets no budget.
const DefaultMaxIterations = 1000

// Options configure an Engine.
type Options struct {
	Grid Grid
	// StrikeLow and StrikeHigh bound the strikes as multiples of the
	// window's forward swap rate; zero means 0.8 and 1.25.
	StrikeLow, StrikeHigh float64

	// NoiseAmplitude perturbs each target by 1 + amplitude*(U - 0.5).
	NoiseAmplitude float64
	NoiseSeed      uint64

	Weighting Weighting
	Backend   Backend

	// Simulation is used for targets and candidates under MonteCarlo.
	Simulation simulation.Options

	Parameters Parameters

	// MaxIterations caps the Nelder-Mead iterations. When no budget is set
	// at all it defaults to DefaultMaxIterations.
	MaxIterations     int
	MaxEvaluations    int
	Runtime           time.Duration
	FunctionTolerance float64

	// Workers bounds the instruments priced concurrently; 0 means GOMAXPROCS.
	Workers int
	Logger  *logrus.Entry
}

// Result is the outcome of Calibrate.
type Result struct {
	Model       *covariance.Model
	Parameters  covariance.Parameters
	Objective   float64
	Iterations  int
	Evaluations int
	Status      optimize.Status
	RunID       uuid.UUID
}

// Engine calibrates starting from a reference model. The reference supplies
// the grids, the initial curve, the dynamics and, through its prices, the
// targets. An Engine is not safe for concurrent use.
type Engine struct {
	reference *covariance.Model
	disc      *curve.DiscountCurve
	opts      Options
	runID     uuid.UUID
	log       *logrus.Entry

	state    State
	products []Product
}

// New validates opts against the reference model.
func New(reference *covariance.Model, opts Options) (*Engine, error) {
	if reference == nil {
		return nil, errs.Configf("calibration.New", "nil reference model")
	}
	if opts.Grid < GridStrikes || opts.Grid > GridFull {
		return nil, errs.Mismatchf("calibration.New", "unknown grid %v", opts.Grid)
	}
	if opts.Backend != MonteCarlo && opts.Backend != Analytic {
		return nil, errs.Mismatchf("calibration.New", "unknown backend %v", opts.Backend)
	}
	if opts.Weighting != Relative && opts.Weighting != Uniform {
		return nil, errs.Mismatchf("calibration.New", "unknown weighting %v", opts.Weighting)
	}
	if reference.NumberOfForwards() < 2 {
		return nil, errs.Configf("calibration.New", "need at least two forwards, got %d", reference.NumberOfForwards())
	}
	if opts.StrikeLow == 0 && opts.StrikeHigh == 0 {
		opts.StrikeLow, opts.StrikeHigh = 0.8, 1.25
	}
	if opts.StrikeLow <= 0 || opts.StrikeHigh < opts.StrikeLow {
		return nil, errs.Configf("calibration.New", "strike range [%v,%v]", opts.StrikeLow, opts.StrikeHigh)
	}
	if opts.NoiseAmplitude < 0 || opts.NoiseAmplitude >= 2 {
		return nil, errs.Configf("calibration.New", "noise amplitude %v outside [0,2)", opts.NoiseAmplitude)
	}
	if len(opts.Parameters.Free()) == 0 {
		return nil, errs.Configf("calibration.New", "every parameter is frozen")
	}
	if opts.Backend == Analytic && !opts.Parameters.Frozen(Displacement) {
		return nil, errs.Configf("calibration.New", "the analytic backend cannot calibrate the displacement")
	}
	if opts.MaxIterations < 0 || opts.MaxEvaluations < 0 || opts.Runtime < 0 {
		return nil, errs.Configf("calibration.New", "budget iterations=%d evaluations=%d runtime=%v",
			opts.MaxIterations, opts.MaxEvaluations, opts.Runtime)
	}
	if opts.MaxIterations == 0 && opts.MaxEvaluations == 0 && opts.Runtime == 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Workers < 0 {
		return nil, errs.Configf("calibration.New", "workers=%d", opts.Workers)
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Backend == MonteCarlo {
		// Fail on bad simulation options now rather than inside the optimizer.
		if _, err := simulation.New(reference, opts.Simulation); err != nil {
			return nil, err
		}
	}

	fc, err := curve.NewForwardCurve(reference.Tenor(), reference.InitialForwards())
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	return &Engine{
		reference: reference,
		disc:      fc.DiscountCurve(),
		opts:      opts,
		runID:     id,
		log: logger.OrDiscard(opts.Logger).WithFields(logrus.Fields{
			"component": "calibration",
			"run_id":    id.String(),
		}),
		state: Init,
	}, nil
}

// RunID identifies this engine in log entries and results.
func (e *Engine) RunID() uuid.UUID { return e.runID }

// State reports the lifecycle state.
func (e *Engine) State() State { return e.state }

// Products returns the instrument battery.
func (e *Engine) Products() []Product {
	out := make([]Product, len(e.products))
	copy(out, e.products)
	return out
}

// window is a swaption on periods [start, end).
type window struct{ start, end int }

func (e *Engine) windows() []window {
	n := e.reference.NumberOfForwards()
	var out []window
	switch e.opts.Grid {
	case GridStrikes:
		out = append(out, window{1, n})
	case GridStrikesFixings:
		for s := 1; s < n; s++ {
			out = append(out, window{s, n})
		}
	case GridFull:
		for s := 1; s < n; s++ {
			for end := n; end > s; end-- {
				out = append(out, window{s, end})
			}
		}
	}
	return out
}

// strikes spreads count strikes evenly over [low·rate, high·rate].
func strikes(rate, low, high float64, count int) []float64 {
	if count == 1 {
		return []float64{rate * (low + high) / 2}
	}
	out := make([]float64, count)
	step := (high - low) * rate / float64(count-1)
	for k := range out {
		out[k] = low*rate + float64(k)*step
	}
	return out
}

// BuildInstruments creates count swaptions per window of the grid and prices
// them with the reference model. Instruments whose target is not a positive
// finite price are left out.
func (e *Engine) BuildInstruments(ctx context.Context, count int) ([]Product, error) {
	if e.state == Optimize {
		return nil, errs.Configf("calibration.BuildInstruments", "engine is optimizing")
	}
	if count < 1 {
		return nil, errs.Configf("calibration.BuildInstruments", "count=%d", count)
	}
	e.state = BuildInstruments
	e.products = nil

	tenor := e.reference.Tenor()
	var candidates []Product
	for _, w := range e.windows() {
		rate, _, err := pricing.SwapRate(e.reference, e.disc, w.start, w.end)
		if err != nil {
			e.state = Failed
			return nil, err
		}
		for _, k := range strikes(rate, e.opts.StrikeLow, e.opts.StrikeHigh, count) {
			candidates = append(candidates, Product{
				Swaption: pricing.Swaption{Start: w.start, End: w.end, Strike: k, Notional: 1},
				Fixing:   tenor.Time(w.start),
				Maturity: tenor.Time(w.end),
			})
		}
	}

	prices, err := e.price(ctx, e.reference, candidates)
	if err != nil {
		e.state = Failed
		return nil, fmt.Errorf("calibration.BuildInstruments: %w", err)
	}

	noise := rand.New(rand.NewSource(e.opts.NoiseSeed))
	products := make([]Product, 0, len(candidates))
	for i, p := range candidates {
		u := noise.Float64()
		target := prices[i] * (1 + e.opts.NoiseAmplitude*(u-0.5))
		if !(target > 0) || math.IsInf(target, 0) {
			e.log.WithFields(logrus.Fields{
				"fixing": p.Fixing, "maturity": p.Maturity, "strike": p.Swaption.Strike,
			}).Debug("skipping instrument without a positive target")
			continue
		}
		p.Target = target
		p.Weight = 1
		if e.opts.Weighting == Relative {
			p.Weight = 1 / (target * target)
		}
		products = append(products, p)
	}
	if len(products) == 0 {
		e.state = Failed
		return nil, errs.Configf("calibration.BuildInstruments", "no instrument has a positive target")
	}
	e.products = products

	e.log.WithFields(logrus.Fields{
		"grid":        e.opts.Grid.String(),
		"instruments": len(products),
		"backend":     e.opts.Backend.String(),
	}).Info("instruments built")
	return e.Products(), nil
}

// price values products under model with the configured backend. The
// returned slice is indexed like products.
func (e *Engine) price(ctx context.Context, model *covariance.Model, products []Product) ([]float64, error) {
	var res *simulation.Result
	if e.opts.Backend == MonteCarlo {
		sim, err := simulation.New(model, e.opts.Simulation)
		if err != nil {
			return nil, err
		}
		res, err = sim.Run(ctx)
		if err != nil {
			return nil, err
		}
	}

	prices := make([]float64, len(products))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i := range products {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sw := products[i].Swaption
			if e.opts.Backend == Analytic {
				v, err := pricing.AnalyticSwaption(model, e.disc, sw.Start, sw.End, sw.Strike)
				if err != nil {
					return err
				}
				prices[i] = v
				return nil
			}
			est, err := pricing.Oracle{Workers: 1}.Price(gctx, sw, res)
			if err != nil {
				return err
			}
			prices[i] = est.Value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prices, nil
}

// objective is Σ w_k (m_k - t_k)². Non-finite terms count as zero.
func objective(products []Product, prices []float64) float64 {
	sum := 0.0
	for k, p := range products {
		d := prices[k] - p.Target
		term := p.Weight * d * d
		if math.IsNaN(term) || math.IsInf(term, 0) {
			continue
		}
		sum += term
	}
	return sum
}

// contextConverger stops the optimizer once ctx is done.
type contextConverger struct {
	ctx context.Context
	optimize.Converger
}

func (c contextConverger) Converged(l *optimize.Location) optimize.Status {
	if c.ctx.Err() != nil {
		return optimize.Failure
	}
	return c.Converger.Converged(l)
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.FunctionThreshold,
		optimize.GradientThreshold, optimize.StepConvergence, optimize.MethodConverge:
		return true
	}
	return false
}

// Calibrate minimises the weighted squared pricing error over the free
// parameters with Nelder-Mead. Candidates that cannot be priced score +Inf.
//
// When the budget runs out first the best point found is still returned,
// together with an error wrapping errs.ErrNonConvergence.
func (e *Engine) Calibrate(ctx context.Context) (*Result, error) {
	if len(e.products) == 0 {
		return nil, errs.Configf("calibration.Calibrate", "no instruments, call BuildInstruments first")
	}
	if e.state == Optimize {
		return nil, errs.Configf("calibration.Calibrate", "engine is already optimizing")
	}
	e.state = Optimize
	start := time.Now()

	params := e.opts.Parameters
	base, err := e.reference.WithModified(covariance.SetParameters(params.Initial))
	if err != nil {
		e.state = Failed
		return nil, err
	}
	if e.opts.Backend == Analytic && base.IsBlended() {
		e.state = Failed
		return nil, errs.Mismatchf("calibration.Calibrate", "displacement %v has no closed form under %v dynamics", base.Displacement(), base.Dynamics())
	}

	candidate := func(x []float64) (*covariance.Model, error) {
		return base.WithModified(covariance.SetParameters(params.unpack(x)))
	}

	evaluations := 0
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			evaluations++
			m, err := candidate(x)
			if err != nil {
				return math.Inf(1)
			}
			prices, err := e.price(ctx, m, e.products)
			if err != nil {
				e.log.WithError(err).Debug("candidate not priced")
				return math.Inf(1)
			}
			return objective(e.products, prices)
		},
	}

	tol := e.opts.FunctionTolerance
	if tol <= 0 {
		tol = 1e-10
	}
	settings := &optimize.Settings{
		MajorIterations: e.opts.MaxIterations,
		FuncEvaluations: e.opts.MaxEvaluations,
		Runtime:         e.opts.Runtime,
		Converger: contextConverger{
			ctx:       ctx,
			Converger: &optimize.FunctionConverge{Absolute: tol, Iterations: 100},
		},
	}

	res, optErr := optimize.Minimize(problem, params.pack(params.Initial), settings, &optimize.NelderMead{})
	if err := ctx.Err(); err != nil {
		e.state = Failed
		return nil, fmt.Errorf("calibration.Calibrate: %w", err)
	}
	if res == nil {
		e.state = Failed
		return nil, fmt.Errorf("calibration.Calibrate: %w: %v", errs.ErrNonConvergence, optErr)
	}

	best, err := candidate(res.X)
	if err != nil {
		e.state = Failed
		return nil, err
	}
	out := &Result{
		Model:       best,
		Parameters:  best.Parameters(),
		Objective:   res.F,
		Iterations:  res.MajorIterations,
		Evaluations: evaluations,
		Status:      res.Status,
		RunID:       e.runID,
	}

	fields := logrus.Fields{
		"status":      res.Status.String(),
		"objective":   res.F,
		"iterations":  out.Iterations,
		"evaluations": out.Evaluations,
		"elapsed_ms":  time.Since(start).Milliseconds(),
	}
	if !converged(res.Status) {
		e.state = Failed
		e.log.WithFields(fields).Info("calibration stopped before converging")
		return out, fmt.Errorf("calibration.Calibrate: %w: %s", errs.ErrNonConvergence, res.Status)
	}
	if optErr != nil {
		e.state = Failed
		return out, fmt.Errorf("calibration.Calibrate: %w: %v", errs.ErrNonConvergence, optErr)
	}
	e.state = Calibrated
	e.log.WithFields(fields).Info("calibrated")
	return out, nil
}

// ReportLine compares one instrument under a model with its target.
type ReportLine struct {
	Product       Product
	Model         float64
	Target        float64
	RelativeError float64
}

// Report is the per-instrument fit of a model.
type Report struct {
	Lines                []ReportLine
	AverageRelativeError float64
}

// Report prices the instruments under model with the engine's backend and
// compares them with the targets.
func (e *Engine) Report(ctx context.Context, model *covariance.Model) (*Report, error) {
	if len(e.products) == 0 {
		return nil, errs.Configf("calibration.Report", "no instruments")
	}
	if model == nil {
		return nil, errs.Configf("calibration.Report", "nil model")
	}
	prices, err := e.price(ctx, model, e.products)
	if err != nil {
		return nil, fmt.Errorf("calibration.Report: %w", err)
	}
	r := &Report{Lines: make([]ReportLine, len(e.products))}
	sum := 0.0
	for k, p := range e.products {
		rel := math.Abs(prices[k]-p.Target) / p.Target
		r.Lines[k] = ReportLine{Product: p, Model: prices[k], Target: p.Target, RelativeError: rel}
		sum += rel
	}
	r.AverageRelativeError = sum / float64(len(e.products))
	return r, nil
}
