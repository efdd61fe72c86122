package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// BUSINESS TIME - Fixed civil offset, no DST
// =============================================================================

// DefaultOffsetHours is the civil offset the engine assumes when none is
// configured. The source institution operates at UTC+8.
const DefaultOffsetHours = 8

// FixedOffsetLocation returns a time.Location at a fixed whole-hour offset
// from UTC. The engine deliberately does not support DST or named zones:
// attendance days are anchored to a single civil offset.
func FixedOffsetLocation(hours int) *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+03d", hours), hours*3600)
}

// =============================================================================
// CIVIL DATE - Day-granularity calendar date, no time component
// =============================================================================

// CivilDate identifies one calendar day in the business timezone.
// It is the date half of every ledger key.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

func NewCivilDate(year int, month time.Month, day int) CivilDate {
	return CivilDate{Year: year, Month: month, Day: day}
}

// CivilDateOf returns the civil date that contains t, evaluated in loc.
func CivilDateOf(t time.Time, loc *time.Location) CivilDate {
	lt := t.In(loc)
	return CivilDate{Year: lt.Year(), Month: lt.Month(), Day: lt.Day()}
}

// ParseCivilDate parses "2006-01-02".
func ParseCivilDate(s string) (CivilDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CivilDate{}, fmt.Errorf("invalid civil date %q: %w", s, err)
	}
	return CivilDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// Midnight returns the instant at which the civil date begins in loc.
func (d CivilDate) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d CivilDate) AddDays(n int) CivilDate {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return CivilDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d CivilDate) Before(other CivilDate) bool {
	return d.Midnight(time.UTC).Before(other.Midnight(time.UTC))
}

func (d CivilDate) Equal(other CivilDate) bool { return d == other }

func (d CivilDate) After(other CivilDate) bool {
	return d.Midnight(time.UTC).After(other.Midnight(time.UTC))
}

func (d CivilDate) IsZero() bool { return d == CivilDate{} }

func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// =============================================================================
// CLOCK TIME - "HH:MM" wall-clock time as minutes since midnight
// =============================================================================

// ClockTime is a wall-clock time of day with minute precision. Shift
// configuration is written in this form ("08:00", "17:30").
type ClockTime struct {
	Minutes int // minutes since midnight, [0, 1440)
}

// ParseClockTime parses "HH:MM". Malformed text yields an InvalidConfigError
// so callers can surface the offending field rather than silently defaulting.
func ParseClockTime(s string) (ClockTime, error) {
	hhText, mmText, ok := strings.Cut(s, ":")
	if !ok {
		return ClockTime{}, &InvalidConfigError{Value: s, Reason: "expected HH:MM"}
	}
	hh, err := strconv.Atoi(hhText)
	if err != nil {
		return ClockTime{}, &InvalidConfigError{Value: s, Reason: "expected HH:MM"}
	}
	mm, err := strconv.Atoi(mmText)
	if err != nil {
		return ClockTime{}, &InvalidConfigError{Value: s, Reason: "expected HH:MM"}
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return ClockTime{}, &InvalidConfigError{Value: s, Reason: "hour or minute out of range"}
	}
	return ClockTime{Minutes: hh*60 + mm}, nil
}

// MustClockTime parses "HH:MM" or panics. For constants and tests.
func MustClockTime(s string) ClockTime {
	ct, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return ct
}

// On anchors the clock time to a civil date, producing an absolute instant.
func (c ClockTime) On(date CivilDate, loc *time.Location) time.Time {
	return date.Midnight(loc).Add(time.Duration(c.Minutes) * time.Minute)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Minutes/60, c.Minutes%60)
}
