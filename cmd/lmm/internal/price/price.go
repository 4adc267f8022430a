package price

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/meenmo/lmm/cmd/lmm/internal/cli"
	"github.com/meenmo/lmm/model"
	"github.com/meenmo/lmm/pricing"
	"github.com/meenmo/lmm/swap"
)

// Output is the JSON written by `lmm price`.
type Output struct {
	Measure   string         `json:"measure,omitempty"`
	Dynamics  string         `json:"dynamics,omitempty"`
	Paths     int            `json:"paths,omitempty"`
	Dropped   int            `json:"dropped"`
	Caplets   []CapletLine   `json:"caplets,omitempty"`
	Swaptions []SwaptionLine `json:"swaptions,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type CapletLine struct {
	Period        int              `json:"period"`
	Fixing        float64          `json:"fixing"`
	Strike        *decimal.Decimal `json:"strike"`
	MonteCarlo    *decimal.Decimal `json:"monte_carlo"`
	StandardError *decimal.Decimal `json:"standard_error"`
	Analytic      *decimal.Decimal `json:"analytic,omitempty"`
}

type SwaptionLine struct {
	Fixing        float64          `json:"fixing"`
	Maturity      float64          `json:"maturity"`
	ParSwapRate   *decimal.Decimal `json:"par_swap_rate"`
	Strike        *decimal.Decimal `json:"strike"`
	MonteCarlo    *decimal.Decimal `json:"monte_carlo"`
	StandardError *decimal.Decimal `json:"standard_error"`
	Analytic      *decimal.Decimal `json:"analytic,omitempty"`
}

func Run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("price", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config path (optional; defaults apply otherwise)")
	strike := fs.Float64("strike", 0, "Strike for every product (default: at the money)")
	paths := fs.Int("paths", 0, "Override the number of simulated paths")
	help := fs.Bool("h", false, "Show help")
	fs.BoolVar(help, "help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		usage(stderr)
		return 0
	}

	cfg, log, err := cli.Setup(*configPath, "price")
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	if *paths > 0 {
		cfg.Model.Paths = *paths
	}

	m, err := model.New(cfg, log)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	out, err := priceAll(context.Background(), m, *strike, cfg.Simulation.Workers)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	return cli.WriteJSON(stdout, out)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  lmm price [-config cfg.yaml] [-strike K] [-paths N]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Simulate the configured model, price caplets and co-terminal swaptions,")
	fmt.Fprintln(w, "and compare with the closed-form approximations. Output is JSON.")
}

func priceAll(ctx context.Context, m *model.Model, strike float64, workers int) (Output, error) {
	res, err := m.Simulate(ctx)
	if err != nil {
		return Output{}, err
	}
	cov := m.Covariance()
	disc := m.Curve().DiscountCurve()
	tenor := cov.Tenor()
	n := cov.NumberOfForwards()
	oracle := pricing.Oracle{Workers: workers, Logger: m.Options().Logger}

	out := Output{
		Measure:  res.Measure.String(),
		Dynamics: cov.Dynamics().String(),
		Paths:    res.NumberOfPaths(),
		Dropped:  res.Dropped,
	}

	for i := 1; i < n; i++ {
		k := strike
		if k <= 0 {
			k = cov.InitialForward(i)
		}
		est, err := oracle.Price(ctx, pricing.Caplet{Index: i, Strike: k}, res)
		if err != nil {
			return Output{}, err
		}
		closed, cerr := pricing.AnalyticCaplet(cov, disc, i, k)
		out.Caplets = append(out.Caplets, CapletLine{
			Period:        i,
			Fixing:        tenor.Time(i),
			Strike:        cli.Amount(k),
			MonteCarlo:    cli.Amount(est.Value),
			StandardError: cli.Amount(est.StandardError),
			Analytic:      cli.OptionalAmount(closed, cerr == nil),
		})
	}

	times := tenor.Times()
	for s := 1; s < n; s++ {
		bonds := make([]float64, 0, n-s+1)
		for _, t := range times[s:] {
			bonds = append(bonds, disc.DF(t))
		}
		sw, err := swap.New(times[s:], bonds, true)
		if err != nil {
			return Output{}, err
		}
		par := sw.ParRate()
		k := strike
		if k <= 0 {
			k = par
		}
		est, err := oracle.Price(ctx, pricing.Swaption{Start: s, End: n, Strike: k}, res)
		if err != nil {
			return Output{}, err
		}
		closed, cerr := pricing.AnalyticSwaption(cov, disc, s, n, k)
		out.Swaptions = append(out.Swaptions, SwaptionLine{
			Fixing:        times[s],
			Maturity:      times[n],
			ParSwapRate:   cli.Amount(par),
			Strike:        cli.Amount(k),
			MonteCarlo:    cli.Amount(est.Value),
			StandardError: cli.Amount(est.StandardError),
			Analytic:      cli.OptionalAmount(closed, cerr == nil),
		})
	}
	return out, nil
}
