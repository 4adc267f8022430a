package calibrate

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/shopspring/decimal"

	"github.com/meenmo/lmm/calibration"
	"github.com/meenmo/lmm/cmd/lmm/internal/cli"
	"github.com/meenmo/lmm/covariance"
	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/model"
)

// Output is the JSON written by `lmm calibrate`.
type Output struct {
	RunID                string           `json:"run_id,omitempty"`
	Status               string           `json:"status,omitempty"`
	Converged            bool             `json:"converged"`
	Reference            *ParameterOutput `json:"reference,omitempty"`
	Calibrated           *ParameterOutput `json:"calibrated,omitempty"`
	Objective            *float64         `json:"objective"`
	Iterations           int              `json:"iterations"`
	Evaluations          int              `json:"evaluations"`
	Instruments          []InstrumentLine `json:"instruments,omitempty"`
	AverageRelativeError *float64         `json:"average_relative_error"`
	Error                string           `json:"error,omitempty"`
}

type ParameterOutput struct {
	A            float64 `json:"a"`
	B            float64 `json:"b"`
	C            float64 `json:"c"`
	D            float64 `json:"d"`
	Decay        float64 `json:"decay"`
	Displacement float64 `json:"displacement"`
}

type InstrumentLine struct {
	Fixing        float64         `json:"fixing"`
	Maturity      float64         `json:"maturity"`
	Strike        *decimal.Decimal `json:"strike"`
	Model         *decimal.Decimal `json:"model"`
	Target        *decimal.Decimal `json:"target"`
	RelativeError *float64         `json:"relative_error"`
}

func Run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("calibrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config path (optional; defaults apply otherwise)")
	backend := fs.String("backend", "", "Override the pricing backend: montecarlo | analytic")
	strikes := fs.Int("strikes", 0, "Override the number of strikes per window")
	help := fs.Bool("h", false, "Show help")
	fs.BoolVar(help, "help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		usage(stderr)
		return 0
	}

	cfg, log, err := cli.Setup(*configPath, "calibrate")
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	if *backend != "" {
		cfg.Calibration.Backend = *backend
	}
	if *strikes > 0 {
		cfg.Calibration.StrikeCount = *strikes
	}

	ref, err := model.New(cfg, log)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	engine, err := ref.Calibrator(cfg.Calibration, cfg.Simulation.Workers)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := engine.BuildInstruments(ctx, cfg.Calibration.StrikeCount); err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	res, err := engine.Calibrate(ctx)
	if err != nil && (res == nil || !errors.Is(err, errs.ErrNonConvergence)) {
		return cli.WriteError(stdout, err.Error())
	}

	out := Output{
		RunID:       res.RunID.String(),
		Status:      res.Status.String(),
		Converged:   err == nil,
		Reference:   parameters(ref.Covariance().Parameters()),
		Calibrated:  parameters(res.Parameters),
		Objective:   cli.Float(res.Objective),
		Iterations:  res.Iterations,
		Evaluations: res.Evaluations,
	}
	if err != nil {
		out.Error = err.Error()
	}

	report, rerr := engine.Report(ctx, res.Model)
	if rerr != nil {
		return cli.WriteError(stdout, rerr.Error())
	}
	out.AverageRelativeError = cli.Float(report.AverageRelativeError)
	for _, line := range report.Lines {
		out.Instruments = append(out.Instruments, instrument(line))
	}

	if code := cli.WriteJSON(stdout, out); code != 0 {
		return code
	}
	if err != nil {
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  lmm calibrate [-config cfg.yaml] [-backend montecarlo|analytic] [-strikes N]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Build a swaption battery from the configured reference model, calibrate the")
	fmt.Fprintln(w, "free parameters with Nelder-Mead and print the fit per instrument as JSON.")
}

func parameters(p covariance.Parameters) *ParameterOutput {
	return &ParameterOutput{A: p.A, B: p.B, C: p.C, D: p.D, Decay: p.Decay, Displacement: p.Displacement}
}

func instrument(l calibration.ReportLine) InstrumentLine {
	return InstrumentLine{
		Fixing:        l.Product.Fixing,
		Maturity:      l.Product.Maturity,
		Strike:        cli.Amount(l.Product.Swaption.Strike),
		Model:         cli.Amount(l.Model),
		Target:        cli.Amount(l.Target),
		RelativeError: cli.Float(l.RelativeError),
	}
}
