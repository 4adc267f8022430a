// Package calendar adjusts tenor dates to business days.
package calendar

import (
	"time"

	"github.com/meenmo/lmm/utils"
)

const dateKey = "2006-01-02"

// Calendar is a set of holidays on top of Saturday/Sunday weekends.
type Calendar struct {
	name     string
	holidays map[string]struct{}
}

// New builds a calendar from explicit holiday dates.
func New(name string, holidays ...time.Time) *Calendar {
	c := &Calendar{name: name, holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[h.Format(dateKey)] = struct{}{}
	}
	return c
}

// Parse builds a calendar from YYYY-MM-DD holiday strings.
func Parse(name string, holidays []string) (*Calendar, error) {
	dates := make([]time.Time, 0, len(holidays))
	for _, s := range holidays {
		d, err := utils.ParseDate(s)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return New(name, dates...), nil
}

// WeekendsOnly has no holidays.
func WeekendsOnly() *Calendar { return New("weekends") }

// Name identifies the calendar.
func (c *Calendar) Name() string { return c.name }

func (c *Calendar) isHoliday(t time.Time) bool {
	_, ok := c.holidays[t.Format(dateKey)]
	return ok
}

// IsBusinessDay checks weekends and the holiday set.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !c.isHoliday(t)
}

// Adjust applies Modified Following.
func (c *Calendar) Adjust(t time.Time) time.Time {
	origMonth := t.Month()
	for !c.IsBusinessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	if t.Month() != origMonth {
		t = t.AddDate(0, 0, -1)
		for !c.IsBusinessDay(t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// AdjustFollowing applies a simple Following convention (no month preservation).
func (c *Calendar) AdjustFollowing(t time.Time) time.Time {
	for !c.IsBusinessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func (c *Calendar) AddBusinessDays(t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if c.IsBusinessDay(t) {
			n -= step
		}
	}
	return t
}

// Schedule rolls freqMonths from anchor up to end and moves every date after
// the anchor to a business day. Rolling always starts from the unadjusted
// anchor, so adjustments do not accumulate.
func (c *Calendar) Schedule(anchor, end time.Time, freqMonths int) []time.Time {
	dates := utils.MonthlySchedule(anchor, end, freqMonths)
	for i := 1; i < len(dates); i++ {
		dates[i] = c.Adjust(dates[i])
	}
	return dates
}
