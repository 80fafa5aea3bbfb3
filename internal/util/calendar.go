package util

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Calendar enumerates index calculation days.
type Calendar struct {
	holidays map[civil.Date]bool
}

// NewCalendar creates a weekday calendar that skips the given holidays.
func NewCalendar(holidays []civil.Date) *Calendar {
	h := make(map[civil.Date]bool, len(holidays))
	for _, d := range holidays {
		h[d] = true
	}
	return &Calendar{holidays: h}
}

// IsBusinessDay reports whether d is a weekday that is not a holiday.
func (c *Calendar) IsBusinessDay(d civil.Date) bool {
	switch d.In(time.UTC).Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.holidays[d]
}

// Days returns the business days in [start, end] in ascending order.
func (c *Calendar) Days(start, end civil.Date) ([]civil.Date, error) {
	if !start.IsValid() || !end.IsValid() {
		return nil, fmt.Errorf("invalid range %s..%s", start, end)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end %s is before start %s", end, start)
	}

	var days []civil.Date
	for d := start; !d.After(end); d = d.AddDays(1) {
		if c.IsBusinessDay(d) {
			days = append(days, d)
		}
	}
	return days, nil
}

// Previous returns the last business day strictly before d.
func (c *Calendar) Previous(d civil.Date) civil.Date {
	p := d.AddDays(-1)
	for !c.IsBusinessDay(p) {
		p = p.AddDays(-1)
	}
	return p
}
