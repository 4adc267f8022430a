package simulation

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/meenmo/lmm/errs"
)

// Measure is the pricing measure the drift is written under.
type Measure int

const (
	// Spot uses the discretely rolled bank account as numeraire.
	Spot Measure = iota
	// Terminal uses the zero bond maturing at the last tenor date.
	Terminal
)

func (m Measure) String() string {
	switch m {
	case Spot:
		return "spot"
	case Terminal:
		return "terminal"
	}
	return fmt.Sprintf("Measure(%d)", int(m))
}

// ParseMeasure accepts "spot" or "terminal".
func ParseMeasure(s string) (Measure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spot":
		return Spot, nil
	case "terminal":
		return Terminal, nil
	}
	return 0, errs.Mismatchf("simulation.ParseMeasure", "unknown measure %q", s)
}

// StateSpace is the variable the Euler scheme steps: the forward or its log.
type StateSpace int

const (
	// LognormalState steps log L; forwards stay positive.
	LognormalState StateSpace = iota
	// NormalState steps L directly.
	NormalState
)

func (s StateSpace) String() string {
	switch s {
	case LognormalState:
		return "lognormal"
	case NormalState:
		return "normal"
	}
	return fmt.Sprintf("StateSpace(%d)", int(s))
}

// ParseStateSpace accepts "lognormal" or "normal".
func ParseStateSpace(s string) (StateSpace, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lognormal", "log-normal":
		return LognormalState, nil
	case "normal":
		return NormalState, nil
	}
	return 0, errs.Mismatchf("simulation.ParseStateSpace", "unknown state space %q", s)
}

// State is the lifecycle of a Simulator.
type State int

const (
	Configured State = iota
	Stepping
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case Configured:
		return "configured"
	case Stepping:
		return "stepping"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configure a run.
type Options struct {
	Measure    Measure
	StateSpace StateSpace
	Paths      int
	Seed       uint64

	// Workers bounds concurrent path goroutines; 0 means GOMAXPROCS.
	Workers int
	// ChunkSize is the number of paths per worker task; 0 means 256.
	ChunkSize int
	// MaxDroppedFraction is the share of non-finite paths tolerated.
	MaxDroppedFraction float64

	Logger *logrus.Entry
}
