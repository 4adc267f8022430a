package utils

import (
	"math"
	"testing"
	"time"
)

func TestAddMonth_EndOfMonth(t *testing.T) {
	t.Parallel()

	got := AddMonth(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), 1)
	want := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("AddMonth: got %s want %s", got.Format(dateLayout), want.Format(dateLayout))
	}
}

func TestMonthlySchedule(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	dates := MonthlySchedule(anchor, end, 6)
	if len(dates) != 3 {
		t.Fatalf("expected 3 dates, got %d", len(dates))
	}
	if !dates[2].Equal(end) {
		t.Fatalf("last date: got %s", dates[2].Format(dateLayout))
	}
}

func TestYearFraction(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		dc   DayCount
		want float64
	}{
		{Act365F, 1.0},
		{Act360, 365.0 / 360.0},
		{Thirty, 1.0},
	}
	for _, tc := range cases {
		if got := YearFraction(start, end, tc.dc); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("%s: got %.12f want %.12f", tc.dc, got, tc.want)
		}
	}
}

func TestParseDayCount(t *testing.T) {
	t.Parallel()

	if dc, err := ParseDayCount(""); err != nil || dc != Act365F {
		t.Fatalf("empty day count: got %q, %v", dc, err)
	}
	if _, err := ParseDayCount("ACT/ACT"); err == nil {
		t.Fatalf("expected error for unsupported convention")
	}
}
