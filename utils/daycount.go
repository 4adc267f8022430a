package utils

import (
	"fmt"
	"time"
)

// DayCount names a year-fraction convention used to map calendar dates onto model time.
type DayCount string

const (
	Act360  DayCount = "ACT/360"
	Act365F DayCount = "ACT/365F"
	Thirty  DayCount = "30/360"
)

// ParseDayCount accepts the conventions supported by YearFraction.
// An empty string maps to ACT/365F, the curve time axis used throughout the module.
func ParseDayCount(s string) (DayCount, error) {
	switch DayCount(s) {
	case "":
		return Act365F, nil
	case Act360, Act365F, Thirty, "30E/360":
		return DayCount(s), nil
	default:
		return "", fmt.Errorf("unsupported day count %q", s)
	}
}

// YearFraction computes the year fraction between two dates.
// Supported conventions: ACT/360, ACT/365F, 30E/360, 30/360.
func YearFraction(start, end time.Time, convention DayCount) float64 {
	switch convention {
	case Act360:
		return Days(start, end) / 360.0
	case Thirty, "30E/360":
		// 30E/360: day of month capped at 30 on both ends.
		d1 := min(start.Day(), 30)
		d2 := min(end.Day(), 30)
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return Days(start, end) / 365.0
	}
}
