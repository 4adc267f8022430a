// Package analytic holds closed-form prices used as references for the Monte
// Carlo engine: Black and Bachelier options, caplets, quanto and in-arrears
// adjustments.
package analytic

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BlackCall is the generalized Black call: payoffUnit·(F Φ(d+) - K Φ(d-)).
// A non-positive maturity or volatility returns the discounted intrinsic value.
func BlackCall(forward, volatility, maturity, strike, payoffUnit float64) float64 {
	if maturity <= 0 || volatility <= 0 {
		return math.Max(forward-strike, 0) * payoffUnit
	}
	if strike <= 0 {
		return (forward - strike) * payoffUnit
	}
	dPlus, dMinus := blackD(forward, volatility, maturity, strike)
	return (forward*distuv.UnitNormal.CDF(dPlus) - strike*distuv.UnitNormal.CDF(dMinus)) * payoffUnit
}

// BlackPut is the generalized Black put: payoffUnit·(K Φ(-d-) - F Φ(-d+)).
func BlackPut(forward, volatility, maturity, strike, payoffUnit float64) float64 {
	if maturity <= 0 || volatility <= 0 {
		return math.Max(strike-forward, 0) * payoffUnit
	}
	if strike <= 0 {
		return 0
	}
	dPlus, dMinus := blackD(forward, volatility, maturity, strike)
	return (strike*distuv.UnitNormal.CDF(-dMinus) - forward*distuv.UnitNormal.CDF(-dPlus)) * payoffUnit
}

// BlackDigitalCall pays payoffUnit when the forward ends above strike.
func BlackDigitalCall(forward, volatility, maturity, strike, payoffUnit float64) float64 {
	if maturity <= 0 || volatility <= 0 || strike <= 0 {
		if forward > strike {
			return payoffUnit
		}
		return 0
	}
	_, dMinus := blackD(forward, volatility, maturity, strike)
	return distuv.UnitNormal.CDF(dMinus) * payoffUnit
}

// BachelierCall prices a call on a normally distributed forward with absolute
// volatility.
func BachelierCall(forward, volatility, maturity, strike, payoffUnit float64) float64 {
	if maturity <= 0 || volatility <= 0 {
		return math.Max(forward-strike, 0) * payoffUnit
	}
	stdev := volatility * math.Sqrt(maturity)
	d := (forward - strike) / stdev
	return ((forward-strike)*distuv.UnitNormal.CDF(d) + stdev*distuv.UnitNormal.Prob(d)) * payoffUnit
}

// BachelierPut prices a put on a normally distributed forward.
func BachelierPut(forward, volatility, maturity, strike, payoffUnit float64) float64 {
	return BachelierCall(forward, volatility, maturity, strike, payoffUnit) - (forward-strike)*payoffUnit
}

func blackD(forward, volatility, maturity, strike float64) (float64, float64) {
	stdev := volatility * math.Sqrt(maturity)
	dPlus := (math.Log(forward/strike) + 0.5*stdev*stdev) / stdev
	return dPlus, dPlus - stdev
}
