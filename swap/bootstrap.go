package swap

import (
	"fmt"
	"math"

	"github.com/meenmo/lmm/config"
	"github.com/meenmo/lmm/errs"
)

// BootstrapCouponBonds recovers zero bonds P(0;T_i), T_i = i·yearFraction,
// from coupon bond prices. Bond i pays couponRates[i]·yearFraction at
// T_1..T_{i+1} and the principal at T_{i+1}.
func BootstrapCouponBonds(yearFraction float64, couponBonds, couponRates []float64) ([]float64, error) {
	if yearFraction <= 0 {
		return nil, errs.Configf("swap.BootstrapCouponBonds", "year fraction %v", yearFraction)
	}
	if len(couponBonds) == 0 || len(couponBonds) != len(couponRates) {
		return nil, errs.Configf("swap.BootstrapCouponBonds", "%d bonds, %d coupons", len(couponBonds), len(couponRates))
	}

	bonds := make([]float64, len(couponBonds))
	sum := 0.0 // Σ P(0;T_k) over bonds already solved
	for i, price := range couponBonds {
		c := couponRates[i] * yearFraction
		bonds[i] = (price - c*sum) / (1 + c)
		if bonds[i] <= 0 {
			return nil, errs.Configf("swap.BootstrapCouponBonds", "non-positive zero bond %v at %d", bonds[i], i)
		}
		sum += bonds[i]
	}
	return bonds, nil
}

// ParRateBootstrap extends a zero bond curve P(0;T_1), P(0;T_2), ... on a
// uniform grid one par swap quote at a time. Swaps start at T_1.
type ParRateBootstrap struct {
	yearFraction float64
	bonds        []float64
	// sum of all bonds except the first one
	sum float64
	cfg config.SolverConfig
}

// NewParRateBootstrap starts from the two given bonds P(0;T_1) and P(0;T_2).
func NewParRateBootstrap(first, second, yearFraction float64) (*ParRateBootstrap, error) {
	if first <= 0 || second <= 0 || yearFraction <= 0 {
		return nil, errs.Configf("swap.NewParRateBootstrap", "first=%v second=%v yearFraction=%v", first, second, yearFraction)
	}
	return &ParRateBootstrap{
		yearFraction: yearFraction,
		bonds:        []float64{first, second},
		sum:          second,
		cfg:          config.GetConfig().Solver,
	}, nil
}

// Next appends the bond implied by the par rate of the swap ending one
// period after the last known bond.
func (b *ParRateBootstrap) Next(parRate float64) {
	next := (b.bonds[0] - b.yearFraction*parRate*b.sum) / (1 + parRate*b.yearFraction)
	b.bonds = append(b.bonds, next)
	b.sum += next
}

// NextTwo appends two bonds from the par rate of the swap ending two periods
// after the last known bond. The intermediate bond is log-linearly
// interpolated, which leaves one unknown solved by Newton-Raphson.
func (b *ParRateBootstrap) NextTwo(parRate float64) error {
	last := b.bonds[len(b.bonds)-1]
	sd := parRate * b.yearFraction

	// residual is the swap value at par: P_1 - x - S δ (Σ + sqrt(last·x) + x)
	residual := func(x float64) float64 {
		return b.bonds[0] - x - sd*(b.sum+math.Sqrt(last*x)+x)
	}
	derivative := func(x float64) float64 {
		return -1 - sd*(0.5*math.Sqrt(last/x)+1)
	}

	x := last
	converged := false
	for iter := 0; iter < b.cfg.MaxIterations; iter++ {
		f := residual(x)
		if math.Abs(f) < b.cfg.ConvergenceTolerance {
			converged = true
			break
		}
		d := derivative(x)
		if math.Abs(d) < b.cfg.DerivativeThreshold {
			break
		}
		delta := f / d
		if maxStep := b.cfg.DampingFactor * x; math.Abs(delta) > maxStep {
			delta = math.Copysign(maxStep, delta)
		}
		x -= delta
		if x < b.cfg.MinDiscountFactor {
			x = b.cfg.MinDiscountFactor
		}
	}
	if !converged {
		return fmt.Errorf("swap.NextTwo: %w: residual %.3e at par rate %v", errs.ErrNonConvergence, residual(x), parRate)
	}

	mid := math.Sqrt(last * x)
	b.bonds = append(b.bonds, mid, x)
	b.sum += mid + x
	return nil
}

// Bonds returns the bonds computed so far, starting with P(0;T_1).
func (b *ParRateBootstrap) Bonds() []float64 {
	out := make([]float64, len(b.bonds))
	copy(out, b.bonds)
	return out
}
