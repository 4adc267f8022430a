package analytic

import "math"

// Period is a single accrual period [First, Second] with the bonds maturing at
// both ends, a log-normal forward volatility and a notional.
type Period struct {
	First, Second         float64
	FirstBond, SecondBond float64
	Volatility            float64
	Notional              float64
}

// PeriodFromForward builds a period from the time-zero forward instead of the
// first bond.
func PeriodFromForward(first, second, forward, secondBond, volatility, notional float64) Period {
	return Period{
		First:      first,
		Second:     second,
		FirstBond:  secondBond * (1 + forward*(second-first)),
		SecondBond: secondBond,
		Volatility: volatility,
		Notional:   notional,
	}
}

// Accrual is Second - First.
func (p Period) Accrual() float64 { return p.Second - p.First }

// Forward is L(First, Second; 0) implied by the two bonds.
func (p Period) Forward() float64 {
	return (p.FirstBond/p.SecondBond - 1) / p.Accrual()
}

// Valuation values a claim paid at Second as a function of the time-zero forward.
type Valuation func(p Period, forward float64) float64

// FloaterValuation pays Notional·δ·L(First) at Second.
func FloaterValuation(p Period, forward float64) float64 {
	return p.Notional * p.SecondBond * forward * p.Accrual()
}

// CapletValuation returns the Black caplet valuation for strike.
func CapletValuation(strike float64) Valuation {
	return func(p Period, forward float64) float64 {
		return BlackCall(forward, p.Volatility, p.First, strike, p.Notional*p.SecondBond*p.Accrual())
	}
}

// ConvexityAdjustment is δ L0 V(L0 e^{σ² T_1}), the extra value of paying at
// First what V pays at Second.
func ConvexityAdjustment(p Period, v Valuation) float64 {
	l0 := p.Forward()
	shifted := l0 * math.Exp(p.Volatility*p.Volatility*p.First)
	return p.Accrual() * l0 * v(p, shifted)
}

// InArrears values the claim paid at First instead of Second.
func InArrears(p Period, v Valuation) float64 {
	return v(p, p.Forward()) + ConvexityAdjustment(p, v)
}
