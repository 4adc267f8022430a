// Package cli holds what the lmm subcommands share: config and logger setup
// and JSON output.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/meenmo/lmm/config"
	"github.com/meenmo/lmm/logger"
)

// Places is the number of decimals printed for prices and rates.
const Places = 8

// Setup loads the configuration at path (defaults when empty), installs it
// and the logger it describes, and returns both.
func Setup(path, component string) (config.Config, *logrus.Entry, error) {
	cfg := config.GetConfig()
	if p := strings.TrimSpace(path); p != "" {
		loaded, err := config.Load(p)
		if err != nil {
			return config.Config{}, nil, err
		}
		cfg = loaded
	} else if cfg.Model.SimulationHorizon == 0 {
		cfg.Model.SimulationHorizon = cfg.Model.TenorHorizon
	}
	config.SetConfig(cfg)

	l, err := logger.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger.SetLogger(l)
	return cfg, logger.WithComponent(component), nil
}

// Amount renders v at fixed precision. Non-finite values have no amount and
// marshal as null.
func Amount(v float64) *decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	d := decimal.NewFromFloat(v).Round(Places)
	return &d
}

// OptionalAmount is Amount for values that may be missing.
func OptionalAmount(v float64, ok bool) *decimal.Decimal {
	if !ok {
		return nil
	}
	return Amount(v)
}

// Float passes finite v through and maps NaN and ±Inf to null.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// WriteJSON prints v as one JSON line.
func WriteJSON(w io.Writer, v any) int {
	out, err := json.Marshal(v)
	if err != nil {
		return WriteError(w, fmt.Sprintf("failed to encode output: %v", err))
	}
	fmt.Fprintln(w, string(out))
	return 0
}

// WriteError prints {"error": msg} and returns the failure exit code.
func WriteError(w io.Writer, msg string) int {
	out, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{msg})
	fmt.Fprintln(w, string(out))
	return 1
}
