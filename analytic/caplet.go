package analytic

import "math"

// Caplet describes a single period [Fixing, Payment] on a notional, with the
// discount factor to the payment date.
type Caplet struct {
	Forward     float64 // L(T_fix, T_pay; 0)
	Volatility  float64
	Strike      float64
	Fixing      float64
	Payment     float64
	PaymentBond float64 // P(0;T_pay)
	Notional    float64
}

func (c Caplet) accrual() float64 { return c.Payment - c.Fixing }

func (c Caplet) unit() float64 { return c.Notional * c.PaymentBond * c.accrual() }

// Black prices the caplet with a log-normal forward.
func (c Caplet) Black() float64 {
	return BlackCall(c.Forward, c.Volatility, c.Fixing, c.Strike, c.unit())
}

// BlackFloorlet prices the matching floorlet with a log-normal forward.
func (c Caplet) BlackFloorlet() float64 {
	return BlackPut(c.Forward, c.Volatility, c.Fixing, c.Strike, c.unit())
}

// Bachelier prices the caplet with a normal forward; Volatility is absolute.
func (c Caplet) Bachelier() float64 {
	return BachelierCall(c.Forward, c.Volatility, c.Fixing, c.Strike, c.unit())
}

// Digital prices a caplet paying Notional·δ when the fixing ends above strike.
func (c Caplet) Digital() float64 {
	return BlackDigitalCall(c.Forward, c.Volatility, c.Fixing, c.Strike, c.unit())
}

// Quanto prices a caplet on a foreign forward paid in domestic currency at the
// fixed conversion quantoRate. fxVolatility is the volatility of the
// forward FX rate and correlation its correlation with the forward.
func (c Caplet) Quanto(fxVolatility, correlation, quantoRate float64) float64 {
	adjusted := c.Forward * math.Exp(-correlation*c.Volatility*fxVolatility*c.Fixing)
	return quantoRate * BlackCall(adjusted, c.Volatility, c.Fixing, c.Strike, c.unit())
}
