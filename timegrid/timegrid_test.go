package timegrid

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/utils"
)

func TestUniformHorizon(t *testing.T) {
	t.Parallel()

	g, err := UniformHorizon(5, 0.1)
	if err != nil {
		t.Fatalf("UniformHorizon: %v", err)
	}
	if g.Len() != 51 {
		t.Fatalf("expected 51 times, got %d", g.Len())
	}
	if math.Abs(g.Last()-5) > 1e-12 {
		t.Fatalf("last time: got %.15f", g.Last())
	}
	if idx := g.Index(2.5); idx != 25 {
		t.Fatalf("Index(2.5): got %d", idx)
	}
	if idx := g.Index(2.55); idx != -1 {
		t.Fatalf("Index(2.55): got %d", idx)
	}
	if idx := g.IndexBefore(2.55); idx != 25 {
		t.Fatalf("IndexBefore(2.55): got %d", idx)
	}
}

func TestUniformHorizon_NotMultiple(t *testing.T) {
	t.Parallel()

	if _, err := UniformHorizon(1, 0.3); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNew_RejectsNonIncreasing(t *testing.T) {
	t.Parallel()

	if _, err := New(0, 1, 1); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := New(-1, 1); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error for negative time, got %v", err)
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	sim, _ := UniformHorizon(5, 0.1)
	tenor, _ := UniformHorizon(5, 0.5)
	if !sim.Contains(tenor) {
		t.Fatalf("simulation grid should contain tenor grid")
	}
	odd, _ := New(0, 0.25, 0.5)
	if sim.Contains(odd) {
		t.Fatalf("simulation grid should not contain 0.25")
	}
}

func TestFromDates(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	g, err := FromDates(anchor, utils.MonthlySchedule(anchor, end, 12), utils.Act365F)
	if err != nil {
		t.Fatalf("FromDates: %v", err)
	}
	if g.Len() != 3 {
		t.Fatalf("expected 3 times, got %d (%s)", g.Len(), g)
	}
	if math.Abs(g.Time(1)-1) > 1e-12 {
		t.Fatalf("first year fraction: got %.12f", g.Time(1))
	}
}

func TestRefine(t *testing.T) {
	t.Parallel()

	tenor, _ := New(0, 0.5, 1.25, 2)
	g, err := Refine(tenor, 0.25)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if !g.Contains(tenor) {
		t.Fatalf("refined grid %s lost tenor times", g)
	}
	if g.Len() != 9 {
		t.Fatalf("expected 9 times, got %d (%s)", g.Len(), g)
	}
	for i := 0; i < g.NumberOfSteps(); i++ {
		if g.Step(i) > 0.25+1e-12 {
			t.Fatalf("step %d is %v", i, g.Step(i))
		}
	}
	if _, err := Refine(tenor, 0); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
