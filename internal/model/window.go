package model

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the provider's date format.
const DateLayout = "2006-01-02"

// Defaults for the transaction date window.
const (
	DefaultWindowDays = 40
	DefaultWindowEnd  = "2024-04-10"
)

// ErrInvalidWindow is returned for windows whose start is after their end.
var ErrInvalidWindow = errors.New("start date must not be after end date")

// DateWindow bounds a transactions query. Both ends are inclusive.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// NewDateWindow returns the window of the given number of days ending at end.
func NewDateWindow(end time.Time, days int) DateWindow {
	end = truncateDay(end)
	return DateWindow{
		Start: end.AddDate(0, 0, -days),
		End:   end,
	}
}

// DefaultDateWindow returns the 40-day window ending 2024-04-10.
func DefaultDateWindow() DateWindow {
	end, _ := time.Parse(DateLayout, DefaultWindowEnd)
	return NewDateWindow(end, DefaultWindowDays)
}

// ParseDateWindow builds a window from an end date string and a day count.
func ParseDateWindow(endDate string, days int) (DateWindow, error) {
	if days < 0 {
		return DateWindow{}, fmt.Errorf("%w: days must be non-negative, got %d", ErrInvalidWindow, days)
	}
	end, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return DateWindow{}, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	return NewDateWindow(end, days), nil
}

// Validate checks that the window is well formed.
func (w DateWindow) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("%w: window is unset", ErrInvalidWindow)
	}
	if w.Start.After(w.End) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidWindow, w.StartDate(), w.EndDate())
	}
	return nil
}

// StartDate formats the window start in the provider's layout.
func (w DateWindow) StartDate() string {
	return w.Start.Format(DateLayout)
}

// EndDate formats the window end in the provider's layout.
func (w DateWindow) EndDate() string {
	return w.End.Format(DateLayout)
}

// Contains reports whether t falls on a day inside the window.
func (w DateWindow) Contains(t time.Time) bool {
	day := truncateDay(t)
	return !day.Before(truncateDay(w.Start)) && !day.After(truncateDay(w.End))
}

func (w DateWindow) String() string {
	return w.StartDate() + ".." + w.EndDate()
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
