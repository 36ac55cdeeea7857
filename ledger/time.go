package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// TIME POINT - Calendar date of an attendance record
// =============================================================================

type TimePoint struct {
	Time time.Time
}

const DateLayout = "2006-01-02"

func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping t's calendar date in its own location.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

func Today() TimePoint {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return TimePoint{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (tp TimePoint) Equal(other TimePoint) bool { return tp.String() == other.String() }
func (tp TimePoint) Before(other TimePoint) bool {
	return tp.normalize().Before(other.normalize())
}

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }
func (tp TimePoint) String() string    { return tp.Time.Format(DateLayout) }

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }
func EndOfMonth(year int, month time.Month) TimePoint {
	return TimePoint{Time: time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}

// =============================================================================
// CLOCK TIME - HH:MM time of day
// =============================================================================

type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses H:MM or HH:MM with hour 0-23 and minute 0-59.
func ParseClock(s string) (ClockTime, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

// IsMorning reports whether the time is before noon.
func (c ClockTime) IsMorning() bool { return c.Hour < 12 }

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }
