// Package config holds model, simulation, calibration and solver parameters.
// Values can be loaded from YAML; anything not set in the file keeps the
// value from DefaultConfig.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full parameter set of a run.
type Config struct {
	Model       ModelConfig       `yaml:"model"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Solver      SolverConfig      `yaml:"solver"`
	Log         LogConfig         `yaml:"log"`
}

// ModelConfig describes the reference model: grids, initial curve,
// volatility, correlation and the simulation setup.
type ModelConfig struct {
	// TenorHorizon is T_n; the tenor grid is 0, TenorStep, ..., TenorHorizon.
	TenorHorizon float64 `yaml:"tenor_horizon"`
	TenorStep    float64 `yaml:"tenor_step"`
	// SimulationHorizon defaults to TenorHorizon when zero.
	SimulationHorizon float64 `yaml:"simulation_horizon"`
	SimulationStep    float64 `yaml:"simulation_step"`

	// Fixings and Forwards are the sparse observations the initial curve is
	// interpolated from.
	Fixings  []float64 `yaml:"fixings"`
	Forwards []float64 `yaml:"forwards"`

	Volatility       VolatilityConfig `yaml:"volatility"`
	CorrelationDecay float64          `yaml:"correlation_decay"`
	// Factors is the number of retained Brownian factors; 0 means full rank.
	Factors int `yaml:"factors"`

	Dynamics string `yaml:"dynamics"` // lognormal | normal
	Measure  string `yaml:"measure"`  // spot | terminal
	// Displacement overrides the dynamics default (0 lognormal, 1 normal).
	Displacement *float64 `yaml:"displacement,omitempty"`

	Paths int    `yaml:"paths"`
	Seed  uint64 `yaml:"seed"`

	// Schedule, when set, replaces the uniform tenor grid by business-day
	// adjusted dates. The simulation grid then refines the tenor grid with
	// steps no longer than SimulationStep.
	Schedule *ScheduleConfig `yaml:"schedule,omitempty"`
}

// ScheduleConfig describes a dated tenor structure.
type ScheduleConfig struct {
	Anchor          string   `yaml:"anchor"` // YYYY-MM-DD, model time 0
	End             string   `yaml:"end"`
	FrequencyMonths int      `yaml:"frequency_months"`
	DayCount        string   `yaml:"day_count"` // ACT/360 | ACT/365F | 30/360
	Holidays        []string `yaml:"holidays"`
}

// VolatilityConfig holds the a, b, c, d of σ(τ) = d + (a + bτ)e^{-cτ}.
type VolatilityConfig struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
	C float64 `yaml:"c"`
	D float64 `yaml:"d"`
}

// SimulationConfig controls the path workers.
type SimulationConfig struct {
	// Workers bounds the number of concurrent path/pricing goroutines.
	// Zero means runtime.GOMAXPROCS(0).
	Workers int `yaml:"workers"`

	// ChunkSize is the number of paths handed to a worker at a time.
	ChunkSize int `yaml:"chunk_size"`

	// MaxDroppedFraction is the share of non-finite paths tolerated before a
	// run fails.
	MaxDroppedFraction float64 `yaml:"max_dropped_fraction"`
}

// CalibrationConfig controls the instrument battery and the optimizer.
type CalibrationConfig struct {
	Grid        string  `yaml:"grid"` // strikes | strikes_fixings | full
	StrikeCount int     `yaml:"strike_count"`
	StrikeLow   float64 `yaml:"strike_low"`
	StrikeHigh  float64 `yaml:"strike_high"`

	// NoiseAmplitude perturbs targets by 1 + amplitude*(U - 0.5).
	NoiseAmplitude float64 `yaml:"noise_amplitude"`
	NoiseSeed      uint64  `yaml:"noise_seed"`

	Weighting string `yaml:"weighting"` // relative | uniform
	Backend   string `yaml:"backend"`   // montecarlo | analytic

	MaxIterations     int           `yaml:"max_iterations"`
	MaxEvaluations    int           `yaml:"max_evaluations"`
	Runtime           time.Duration `yaml:"runtime"`
	FunctionTolerance float64       `yaml:"function_tolerance"`

	Initial ParameterConfig `yaml:"initial"`
	// Frozen lists parameters held at their initial value: a, b, c, d,
	// decay, displacement.
	Frozen []string `yaml:"frozen"`
}

// ParameterConfig is the starting point of a calibration.
type ParameterConfig struct {
	A            float64 `yaml:"a"`
	B            float64 `yaml:"b"`
	C            float64 `yaml:"c"`
	D            float64 `yaml:"d"`
	Decay        float64 `yaml:"decay"`
	Displacement float64 `yaml:"displacement"`
}

// SolverConfig holds root-finder settings for the curve bootstraps.
type SolverConfig struct {
	// ConvergenceTolerance is the residual tolerance for Newton-Raphson.
	ConvergenceTolerance float64 `yaml:"convergence_tolerance"`

	// MaxIterations is the maximum Newton iterations per bootstrap step.
	MaxIterations int `yaml:"max_iterations"`

	// DampingFactor limits a Newton step to DampingFactor * current guess.
	DampingFactor float64 `yaml:"damping_factor"`

	// MinDiscountFactor is the floor for a solved discount factor.
	MinDiscountFactor float64 `yaml:"min_discount_factor"`

	// DerivativeThreshold is the minimum derivative magnitude.
	// Below this, Newton iteration stops to avoid division by near-zero.
	DerivativeThreshold float64 `yaml:"derivative_threshold"`
}

// LogConfig selects level, format and an optional rotated file sink.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json | text
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultConfig reproduces the reference setup: 5y horizon, semi-annual
// tenor, 0.1 simulation step, flat 5% forwards.
var DefaultConfig = Config{
	Model: ModelConfig{
		TenorHorizon:     5,
		TenorStep:        0.5,
		SimulationStep:   0.1,
		Fixings:          []float64{0.5, 1, 2, 2.5, 3.5},
		Forwards:         []float64{0.05, 0.05, 0.05, 0.05, 0.05},
		Volatility:       VolatilityConfig{A: 0.5, B: 0.7, C: 0.35, D: 0.1},
		CorrelationDecay: 0.3,
		Dynamics:         "lognormal",
		Measure:          "spot",
		Paths:            10000,
		Seed:             1897,
	},
	Simulation: SimulationConfig{
		ChunkSize:          256,
		MaxDroppedFraction: 0.01,
	},
	Calibration: CalibrationConfig{
		Grid:              "strikes",
		StrikeCount:       10,
		StrikeLow:         0.8,
		StrikeHigh:        1.25,
		NoiseAmplitude:    0.05,
		NoiseSeed:         3141,
		Weighting:         "relative",
		Backend:           "montecarlo",
		MaxIterations:     1000,
		MaxEvaluations:    2000,
		FunctionTolerance: 1e-8,
		Initial:           ParameterConfig{A: 0.2, B: 0.2, C: 0.2, D: 0.2, Decay: 0.1},
		Frozen:            []string{"displacement"},
	},
	Solver: SolverConfig{
		ConvergenceTolerance: 1e-12,
		MaxIterations:        100,
		DampingFactor:        0.5,
		MinDiscountFactor:    1e-9,
		DerivativeThreshold:  1e-15,
	},
	Log: LogConfig{
		Level:      "info",
		Format:     "json",
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
	},
}

// cfg is the active configuration. Defaults to DefaultConfig.
var cfg = DefaultConfig

// SetConfig replaces the active configuration.
func SetConfig(c Config) {
	cfg = c
}

// GetConfig returns the active configuration.
func GetConfig() Config {
	return cfg
}

// Load reads a YAML file on top of DefaultConfig.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config.Load: cannot read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of DefaultConfig.
func Parse(data []byte) (Config, error) {
	c := DefaultConfig
	c.Model.Fixings = append([]float64(nil), DefaultConfig.Model.Fixings...)
	c.Model.Forwards = append([]float64(nil), DefaultConfig.Model.Forwards...)
	c.Calibration.Frozen = append([]string(nil), DefaultConfig.Calibration.Frozen...)
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config.Parse: cannot parse YAML: %w", err)
	}
	if c.Model.SimulationHorizon == 0 {
		c.Model.SimulationHorizon = c.Model.TenorHorizon
	}
	return c, nil
}
