package covariance

import (
	"github.com/meenmo/lmm/correlation"
	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/volatility"
)

// Change is one modification applied by WithModified.
type Change func(*changeSet)

type changeSet struct {
	params       Parameters
	volChanged   bool
	decayChanged bool
	factors      int
}

// SetVolatility replaces (a, b, c, d).
func SetVolatility(p volatility.Parameters) Change {
	return func(c *changeSet) {
		c.params.A, c.params.B, c.params.C, c.params.D = p.A, p.B, p.C, p.D
		c.volChanged = true
	}
}

// SetCorrelationDecay replaces the exponential decay.
func SetCorrelationDecay(decay float64) Change {
	return func(c *changeSet) {
		c.params.Decay = decay
		c.decayChanged = true
	}
}

// SetDisplacement replaces the blend weight β.
func SetDisplacement(beta float64) Change {
	return func(c *changeSet) {
		c.params.Displacement = beta
	}
}

// SetParameters replaces all six scalars.
func SetParameters(p Parameters) Change {
	return func(c *changeSet) {
		if p.Volatility() != c.params.Volatility() {
			c.volChanged = true
		}
		if p.Decay != c.params.Decay {
			c.decayChanged = true
		}
		c.params = p
	}
}

// SetFactors changes the number of retained factors.
func SetFactors(k int) Change {
	return func(c *changeSet) {
		c.factors = k
	}
}

// WithModified returns a new model with changes applied. Parts not affected
// by a change are shared with m; m itself is never modified. On a model built
// from explicit matrices, changes to (a, b, c, d) or the decay fail with
// errs.ErrTypeMismatch.
func (m *Model) WithModified(changes ...Change) (*Model, error) {
	cs := changeSet{params: m.params}
	for _, apply := range changes {
		apply(&cs)
	}
	if cs.volChanged && m.explicitVol {
		return nil, errs.Mismatchf("covariance.WithModified", "volatility parameters of an explicit volatility matrix")
	}
	if cs.decayChanged && m.explicitCorr {
		return nil, errs.Mismatchf("covariance.WithModified", "correlation decay of an explicit correlation matrix")
	}
	if cs.factors < 0 {
		return nil, errs.Configf("covariance.WithModified", "factors=%d", cs.factors)
	}
	params := cs.params.Normalize()

	raw := m.raw
	if cs.volChanged {
		built, err := volatility.Build(params.Volatility(), m.sim, m.tenor, volatility.Lognormal, nil)
		if err != nil {
			return nil, err
		}
		raw = built
	}

	out := *m
	out.params = params
	out.raw = raw

	if cs.decayChanged || cs.factors > 0 {
		rank := m.factorRank
		if cs.factors > 0 {
			rank = cs.factors
		}
		full := m.full
		if cs.decayChanged {
			built, err := correlation.ExponentialDecay(params.Decay, m.tenor)
			if err != nil {
				return nil, err
			}
			full = built
		}
		f, err := correlation.FactorLoadings(full, rank)
		if err != nil {
			return nil, err
		}
		out.factorRank = rank
		out.full = full
		out.factors = f
		out.corr = f.Correlation()
	}
	return &out, nil
}
