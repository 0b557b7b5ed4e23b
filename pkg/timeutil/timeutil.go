// Package timeutil provides calendar arithmetic and an injectable clock.
// All progress calculations (streak gaps, review scheduling, leaderboard
// windows, analytics buckets) operate on UTC calendar days, so the helpers
// here normalize everything to UTC before truncating.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLOCK
// ══════════════════════════════════════════════════════════════════════════════

// Clock abstracts the current time so engine components stay deterministic
// under test. Production code uses SystemClock; tests use FixedClock.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the real current time in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant. Advance it manually in tests.
type FixedClock struct {
	Current time.Time
}

// NewFixedClock creates a FixedClock pinned to t (normalized to UTC).
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{Current: t.UTC()}
}

// Now implements Clock.
func (c *FixedClock) Now() time.Time {
	return c.Current
}

// Advance moves the clock forward by d and returns the new time.
func (c *FixedClock) Advance(d time.Duration) time.Time {
	c.Current = c.Current.Add(d)
	return c.Current
}

// AdvanceDays moves the clock forward by whole calendar days.
func (c *FixedClock) AdvanceDays(days int) time.Time {
	c.Current = c.Current.AddDate(0, 0, days)
	return c.Current
}

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR BOUNDARIES
// ══════════════════════════════════════════════════════════════════════════════

// StartOfDay returns midnight UTC of the given time's calendar day.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last nanosecond of the given time's calendar day.
func EndOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 999999999, time.UTC)
}

// StartOfWeek returns Monday 00:00 UTC of the given time's ISO week.
func StartOfWeek(t time.Time) time.Time {
	u := t.UTC()
	weekday := int(u.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return StartOfDay(u.AddDate(0, 0, -(weekday - 1)))
}

// StartOfMonth returns the first day of the given time's month at 00:00 UTC.
func StartOfMonth(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last nanosecond of the given time's month.
func EndOfMonth(t time.Time) time.Time {
	return EndOfDay(StartOfMonth(t).AddDate(0, 1, -1))
}

// ══════════════════════════════════════════════════════════════════════════════
// DAY ARITHMETIC
// ══════════════════════════════════════════════════════════════════════════════

// DaysBetween returns the number of whole calendar days from the day of t1
// to the day of t2. Positive when t2 is on a later day, negative when
// earlier, zero for the same day. Clock-time within the day is ignored.
func DaysBetween(t1, t2 time.Time) int {
	d1 := StartOfDay(t1)
	d2 := StartOfDay(t2)
	return int(d2.Sub(d1).Hours() / 24)
}

// IsSameDay reports whether two times fall on the same UTC calendar day.
func IsSameDay(t1, t2 time.Time) bool {
	u1, u2 := t1.UTC(), t2.UTC()
	return u1.Year() == u2.Year() && u1.YearDay() == u2.YearDay()
}

// IsConsecutiveDay reports whether t2 falls on the day right after t1.
func IsConsecutiveDay(t1, t2 time.Time) bool {
	return DaysBetween(t1, t2) == 1
}

// ══════════════════════════════════════════════════════════════════════════════
// FORMATS
// ══════════════════════════════════════════════════════════════════════════════

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04:05"
)

// DateKey formats a time as a YYYY-MM-DD bucket key. Analytics rows and
// cache keys use this as the canonical per-day identifier.
func DateKey(t time.Time) string {
	return t.UTC().Format(FormatDate)
}

// ParseDateKey parses a YYYY-MM-DD bucket key back into midnight UTC.
func ParseDateKey(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, time.UTC)
}
