package util

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json")
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("warn logger should not be enabled at info")
	}
	logger.Warn("fallback", "commodity", "WTI")
	if !strings.Contains(buf.String(), `"commodity":"WTI"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}

	buf.Reset()
	NewLogger(&buf, "bogus", "text").Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("expected text output at default info level, got %q", buf.String())
	}
}

func TestCalendarDays(t *testing.T) {
	newYear := civil.Date{Year: 2024, Month: 1, Day: 1}
	cal := NewCalendar([]civil.Date{newYear})

	// 2024-01-01 is a Monday holiday; 2024-01-06/07 is a weekend.
	days, err := cal.Days(newYear, civil.Date{Year: 2024, Month: 1, Day: 9})
	if err != nil {
		t.Fatalf("Days returned error: %v", err)
	}
	want := []int{2, 3, 4, 5, 8, 9}
	if len(days) != len(want) {
		t.Fatalf("Days returned %v, want days %v", days, want)
	}
	for i, d := range days {
		if d.Day != want[i] {
			t.Errorf("days[%d] = %s, want day %d", i, d, want[i])
		}
	}

	if _, err := cal.Days(civil.Date{Year: 2024, Month: 1, Day: 9}, newYear); err == nil {
		t.Error("Days should reject an inverted range")
	}
}

func TestCalendarPrevious(t *testing.T) {
	cal := NewCalendar(nil)
	monday := civil.Date{Year: 2024, Month: 1, Day: 8}
	if got := cal.Previous(monday); got != (civil.Date{Year: 2024, Month: 1, Day: 5}) {
		t.Errorf("Previous(%s) = %s, want 2024-01-05", monday, got)
	}
}

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, nil, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("database is locked")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, nil, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("no such table")
	attempts := 0

	err := Retry(context.Background(), 5, 0, func(err error) bool { return !errors.Is(err, permanent) }, func() error {
		attempts++
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Fatalf("Retry returned %v, want %v", err, permanent)
	}
	if attempts != 1 {
		t.Errorf("Retry called fn %d times, want 1", attempts)
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, nil, func() error { return errors.New("busy") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry returned %v, want context.Canceled", err)
	}
}
