package index

import (
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"commodex/internal/domain"
)

// Accepted ISO-8601 date-time layouts. Fractional seconds are optional.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
}

// ToDate converts a civil.Date, civil.DateTime, time.Time, *time.Time or
// ISO-8601 string into a calendar date. Date-times keep the calendar date of
// their own location. Any other value yields a *ParseError.
func ToDate(v any) (civil.Date, error) {
	switch x := v.(type) {
	case civil.Date:
		if !x.IsValid() {
			return civil.Date{}, &ParseError{Value: v, Err: errors.New("invalid calendar date")}
		}
		return x, nil
	case civil.DateTime:
		return ToDate(x.Date)
	case time.Time:
		return civil.DateOf(x), nil
	case *time.Time:
		if x == nil {
			return civil.Date{}, &ParseError{Value: v, Err: errors.New("nil time")}
		}
		return civil.DateOf(*x), nil
	case string:
		return parseISODate(x)
	default:
		return civil.Date{}, &ParseError{Value: v}
	}
}

func parseISODate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	d, err := civil.ParseDate(s)
	if err == nil {
		return d, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, terr := time.Parse(layout, s); terr == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, &ParseError{Value: s, Err: err}
}

// NormalizeDates converts every value with ToDate and returns the result
// sorted ascending with duplicates removed.
func NormalizeDates(values ...any) ([]civil.Date, error) {
	dates := make([]civil.Date, 0, len(values))
	for _, v := range values {
		d, err := ToDate(v)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return uniqueSorted(dates), nil
}

// uniqueSorted returns a sorted, de-duplicated copy of dates.
func uniqueSorted(dates []civil.Date) []civil.Date {
	out := make([]civil.Date, len(dates))
	copy(out, dates)
	domain.SortDates(out)

	n := 0
	for i, d := range out {
		if i > 0 && d == out[n-1] {
			continue
		}
		out[n] = d
		n++
	}
	return out[:n]
}
