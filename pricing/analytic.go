package pricing

import (
	"math"

	"github.com/meenmo/lmm/analytic"
	"github.com/meenmo/lmm/covariance"
	"github.com/meenmo/lmm/curve"
	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/volatility"
)

// discountCurve returns disc, or the curve implied by the model forwards.
func discountCurve(m *covariance.Model, disc *curve.DiscountCurve) (*curve.DiscountCurve, error) {
	if disc != nil {
		return disc, nil
	}
	fc, err := curve.NewForwardCurve(m.Tenor(), m.InitialForwards())
	if err != nil {
		return nil, err
	}
	return fc.DiscountCurve(), nil
}

// AnalyticCaplet prices the unit-notional caplet on period i with Black
// (lognormal dynamics) or Bachelier (normal dynamics), using the model's
// integrated variance up to T_i. Blended models have no closed form.
func AnalyticCaplet(m *covariance.Model, disc *curve.DiscountCurve, i int, strike float64) (float64, error) {
	if m.IsBlended() {
		return 0, errs.Mismatchf("pricing.AnalyticCaplet", "no closed form for displacement %v under %v dynamics", m.Displacement(), m.Dynamics())
	}
	if i < 0 || i >= m.NumberOfForwards() {
		return 0, errs.Configf("pricing.AnalyticCaplet", "period %d outside [0,%d)", i, m.NumberOfForwards())
	}
	dc, err := discountCurve(m, disc)
	if err != nil {
		return 0, err
	}

	tenor := m.Tenor()
	fix := tenor.Time(i)
	vol := 0.0
	if fix > 0 {
		vol = math.Sqrt(m.IntegratedCovariance(i, i, 0, fix) / fix)
	}
	c := analytic.Caplet{
		Forward:     m.InitialForward(i),
		Volatility:  vol,
		Strike:      strike,
		Fixing:      fix,
		Payment:     tenor.Time(i + 1),
		PaymentBond: dc.DF(tenor.Time(i + 1)),
		Notional:    1,
	}
	if m.Dynamics() == volatility.Normal {
		return c.Bachelier(), nil
	}
	return c.Black(), nil
}

// SwapRate returns the forward par swap rate over periods [start, end) and
// its annuity Σ δ_p P(0;T_{p+1}).
func SwapRate(m *covariance.Model, disc *curve.DiscountCurve, start, end int) (rate, annuity float64, err error) {
	if start < 0 || end > m.NumberOfForwards() || start >= end {
		return 0, 0, errs.Configf("pricing.SwapRate", "periods [%d,%d) outside %d forwards", start, end, m.NumberOfForwards())
	}
	dc, err := discountCurve(m, disc)
	if err != nil {
		return 0, 0, err
	}
	tenor := m.Tenor()
	for p := start; p < end; p++ {
		annuity += tenor.Step(p) * dc.DF(tenor.Time(p+1))
	}
	rate = (dc.DF(tenor.Time(start)) - dc.DF(tenor.Time(end))) / annuity
	return rate, annuity, nil
}

// AnalyticSwaption approximates the unit-notional payer swaption exercised at
// T_start on periods [start, end) by freezing the swap rate weights at time
// zero (Rebonato). The swap rate is then lognormal (or normal) with variance
// Σ_pq w_p w_q L_p L_q ∫σ_pσ_qρ_pq / S².
func AnalyticSwaption(m *covariance.Model, disc *curve.DiscountCurve, start, end int, strike float64) (float64, error) {
	if m.IsBlended() {
		return 0, errs.Mismatchf("pricing.AnalyticSwaption", "no closed form for displacement %v under %v dynamics", m.Displacement(), m.Dynamics())
	}
	dc, err := discountCurve(m, disc)
	if err != nil {
		return 0, err
	}
	rate, annuity, err := SwapRate(m, dc, start, end)
	if err != nil {
		return 0, err
	}

	tenor := m.Tenor()
	expiry := tenor.Time(start)
	normal := m.Dynamics() == volatility.Normal

	// w_p L_p for lognormal, w_p for normal; integrated covariance is in the
	// matching units.
	weights := make([]float64, end-start)
	for p := start; p < end; p++ {
		w := tenor.Step(p) * dc.DF(tenor.Time(p+1)) / annuity
		if !normal {
			w *= m.InitialForward(p)
		}
		weights[p-start] = w
	}

	variance := 0.0
	if expiry > 0 {
		for p := start; p < end; p++ {
			for q := start; q < end; q++ {
				variance += weights[p-start] * weights[q-start] * m.IntegratedCovariance(p, q, 0, expiry)
			}
		}
	}
	vol := 0.0
	if expiry > 0 && variance > 0 {
		if normal {
			vol = math.Sqrt(variance / expiry)
		} else {
			vol = math.Sqrt(variance/expiry) / rate
		}
	}

	if normal {
		return analytic.BachelierCall(rate, vol, expiry, strike, annuity), nil
	}
	return analytic.BlackCall(rate, vol, expiry, strike, annuity), nil
}
