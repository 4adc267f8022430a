package factors

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/meenmo/lmm/cmd/lmm/internal/cli"
	"github.com/meenmo/lmm/model"
)

// Output is the JSON written by `lmm factors`.
type Output struct {
	Forwards int       `json:"forwards,omitempty"`
	Rows     []RowLine `json:"rows,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type RowLine struct {
	Decay   float64 `json:"decay"`
	Factors int     `json:"factors"`
	Error   float64 `json:"average_absolute_error"`
}

func Run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("factors", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config path (optional; defaults apply otherwise)")
	from := fs.Float64("from", 0, "First correlation decay")
	to := fs.Float64("to", 4, "Last correlation decay")
	step := fs.Float64("step", 0.1, "Decay increment")
	counts := fs.String("factors", "2", "Comma-separated factor counts, e.g. 1,2,3")
	help := fs.Bool("h", false, "Show help")
	fs.BoolVar(help, "help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		usage(stderr)
		return 0
	}

	ks, err := parseCounts(*counts)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	cfg, log, err := cli.Setup(*configPath, "factors")
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	m, err := model.New(cfg, log)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	decays, err := model.DecayRange(*from, *to, *step)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}
	rows, err := m.FactorSweep(decays, ks)
	if err != nil {
		return cli.WriteError(stdout, err.Error())
	}

	out := Output{Forwards: m.Covariance().NumberOfForwards()}
	for _, r := range rows {
		out.Rows = append(out.Rows, RowLine{Decay: r.Decay, Factors: r.Factors, Error: r.Error})
	}
	return cli.WriteJSON(stdout, out)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  lmm factors [-config cfg.yaml] [-from 0] [-to 4] [-step 0.1] [-factors 1,2]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Reduce the exponential decay correlation of the configured tenor grid to the")
	fmt.Fprintln(w, "given factor counts and print the average absolute error per decay as JSON.")
}

func parseCounts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid factor count %q: %w", part, err)
		}
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no factor counts in %q", s)
	}
	return out, nil
}
