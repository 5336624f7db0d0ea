// Package metrics derives schedule, progress and cost figures from an activity.
// Every function is pure; a value that cannot be computed is nil, never an error.
package metrics

import (
	"math"
	"time"

	"sitediary/models"
)

const day = 24 * time.Hour

// ParseDate parses an ISO calendar day. Empty or malformed input yields ok=false.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DayDiff is finish - start in whole calendar days, without the inclusive adjustment.
func DayDiff(start, finish string) *int {
	s, ok1 := ParseDate(start)
	f, ok2 := ParseDate(finish)
	if !ok1 || !ok2 {
		return nil
	}
	return intPtr(daysBetween(s, f))
}

// InclusiveDays counts both endpoints: the same day is 1. An inverted range is negative.
func InclusiveDays(start, finish string) *int {
	s, ok1 := ParseDate(start)
	f, ok2 := ParseDate(finish)
	if !ok1 || !ok2 {
		return nil
	}
	return intPtr(daysBetween(s, f) + 1)
}

func inclusive(s, f time.Time) int {
	return daysBetween(s, f) + 1
}

func daysBetween(s, f time.Time) int {
	return int(math.Round(float64(f.Sub(s)) / float64(day)))
}

// truncateDay drops the clock part of t, keeping its calendar day in UTC.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
