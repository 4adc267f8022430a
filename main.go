package main

import (
	"context"
	"fmt"

	"github.com/meenmo/lmm/config"
	"github.com/meenmo/lmm/model"
	"github.com/meenmo/lmm/pricing"
)

func main() {
	cfg, err := config.Parse(nil)
	if err != nil {
		panic(err)
	}
	cfg.Model.Paths = 20000

	m, err := model.New(cfg, nil)
	if err != nil {
		panic(err)
	}
	res, err := m.Simulate(context.Background())
	if err != nil {
		panic(err)
	}

	cov := m.Covariance()
	disc := m.Curve().DiscountCurve()
	for i := 1; i < cov.NumberOfForwards(); i++ {
		k := cov.InitialForward(i)
		est, err := pricing.Price(context.Background(), pricing.Caplet{Index: i, Strike: k}, res)
		if err != nil {
			panic(err)
		}
		black, err := pricing.AnalyticCaplet(cov, disc, i, k)
		if err != nil {
			panic(err)
		}
		fmt.Printf("Caplet %2d  T=%.2f  MC: %.6f (%.6f)  Black: %.6f\n",
			i, cov.Tenor().Time(i), est.Value, est.StandardError, black)
	}
}
