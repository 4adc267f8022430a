package analytic

import (
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/lmm/errs"
)

// CallPutDifferences returns Black call minus put at each strike.
func CallPutDifferences(forward, volatility, maturity, payoffUnit float64, strikes []float64) []float64 {
	out := make([]float64, len(strikes))
	for i, k := range strikes {
		out[i] = BlackCall(forward, volatility, maturity, k, payoffUnit) - BlackPut(forward, volatility, maturity, k, payoffUnit)
	}
	return out
}

// ForwardAndDiscount recovers the forward and the discount factor from
// call-put differences C-P = D·F - D·K quoted at exactly two strikes.
func ForwardAndDiscount(differences, strikes []float64) (forward, discount float64, err error) {
	if len(strikes) != 2 || len(differences) != 2 {
		return 0, 0, errs.Configf("analytic.ForwardAndDiscount", "need two strikes, got %d strikes and %d differences", len(strikes), len(differences))
	}
	a := mat.NewDense(2, 2, []float64{
		1, strikes[0],
		1, strikes[1],
	})
	b := mat.NewVecDense(2, []float64{differences[0], differences[1]})

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return 0, 0, errs.Configf("analytic.ForwardAndDiscount", "strikes %v: %v", strikes, err)
	}
	discount = -x.AtVec(1)
	if discount == 0 {
		return 0, 0, errs.Configf("analytic.ForwardAndDiscount", "zero discount factor")
	}
	return x.AtVec(0) / discount, discount, nil
}
