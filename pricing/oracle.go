// Package pricing values products on simulated paths and provides the
// closed-form counterparts used to check and calibrate the engine.
package pricing

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/logger"
	"github.com/meenmo/lmm/simulation"
)

const defaultChunkSize = 1024

// Estimate is a Monte Carlo price.
type Estimate struct {
	Value         float64
	StandardError float64
	// Paths is the number of valid paths averaged.
	Paths int
}

// Oracle prices products on a simulation result.
type Oracle struct {
	// Workers bounds concurrent payoff goroutines; 0 means GOMAXPROCS.
	Workers int
	// ChunkSize is the number of paths per task; 0 means 1024.
	ChunkSize int
	Logger    *logrus.Entry
}

// Price values product with the default oracle.
func Price(ctx context.Context, product Product, res *simulation.Result) (Estimate, error) {
	return Oracle{}.Price(ctx, product, res)
}

// Price returns N(0)·mean(X/N(T_pay)) over the valid paths of res.
// Payoffs are evaluated in parallel into a slice indexed by path and
// reduced in path order, so the estimate does not depend on Workers.
func (o Oracle) Price(ctx context.Context, product Product, res *simulation.Result) (Estimate, error) {
	if product == nil || res == nil {
		return Estimate{}, errs.Configf("pricing.Price", "nil product or result")
	}
	if err := product.Validate(res); err != nil {
		return Estimate{}, err
	}

	workers := o.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := o.ChunkSize
	if chunk <= 0 {
		chunk = defaultChunkSize
	}

	n := res.NumberOfPaths()
	values := make([]float64, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for p := lo; p < hi; p++ {
				path := res.Path(p)
				if !path.Valid() {
					values[p] = math.NaN()
					continue
				}
				values[p] = product.Payoff(path, res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Estimate{}, fmt.Errorf("pricing.Price: %w", err)
	}

	valid := values[:0]
	for p := 0; p < n; p++ {
		if res.Path(p).Valid() {
			valid = append(valid, values[p])
		}
	}
	if len(valid) == 0 {
		return Estimate{}, fmt.Errorf("pricing.Price: %w: no valid paths", errs.ErrSimulationFailure)
	}

	mean, std := stat.MeanStdDev(valid, nil)
	se := 0.0
	if len(valid) > 1 {
		se = std / math.Sqrt(float64(len(valid)))
	}
	n0 := res.InitialNumeraire()
	est := Estimate{Value: n0 * mean, StandardError: n0 * se, Paths: len(valid)}

	logger.OrDiscard(o.Logger).WithFields(logrus.Fields{
		"component": "pricing",
		"product":   fmt.Sprintf("%T", product),
		"value":     est.Value,
		"stderr":    est.StandardError,
		"paths":     est.Paths,
	}).Debug("priced")
	return est, nil
}
