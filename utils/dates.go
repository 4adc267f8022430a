package utils

import (
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// SortDates sorts a slice of time.Time in ascending order.
func SortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// Days returns the number of calendar days between two dates.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// AddMonth behaves like Excel's EDATE, avoiding Go's month normalization surprises.
func AddMonth(t time.Time, months int) time.Time {
	target := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	if target.Month() == t.AddDate(0, months, 0).Month() {
		return t.AddDate(0, months, 0)
	}

	d := t.AddDate(0, months, 0)
	orig := d.Month()
	for d.Month() == orig {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// MonthlySchedule returns anchor, anchor+freq, ... up to and including the last
// date not after end. Dates roll with AddMonth from the anchor, not from the previous date.
func MonthlySchedule(anchor, end time.Time, freqMonths int) []time.Time {
	if freqMonths <= 0 {
		return []time.Time{anchor}
	}
	var out []time.Time
	for i := 0; ; i++ {
		d := AddMonth(anchor, i*freqMonths)
		if d.After(end) {
			break
		}
		out = append(out, d)
	}
	return out
}
