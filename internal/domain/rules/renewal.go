package rules

import "time"

// ExtendedEnd computes the new expiry after a confirmed payment of
// durationDays. An active period is extended from its current end, an
// expired or missing one from now, so paying early never loses days and
// applying two distinct payments commutes.
func ExtendedEnd(now time.Time, currentEnd *time.Time, durationDays int) time.Time {
	base := now
	if currentEnd != nil && currentEnd.After(now) {
		base = *currentEnd
	}
	return base.AddDate(0, 0, durationDays)
}

// IsActive applies the lazy-expiry rule: a subscription counts as active
// only while its stored flag is set and the end date is in the future.
func IsActive(now time.Time, active bool, end *time.Time) bool {
	if !active || end == nil {
		return false
	}
	return end.After(now)
}

// DaysLeft rounds the remaining time up to whole days, never below zero.
func DaysLeft(now time.Time, end *time.Time) int {
	if end == nil || !end.After(now) {
		return 0
	}
	const day = 24 * time.Hour
	return int((end.Sub(now) + day - 1) / day)
}

// DayWindow returns the [start, end] of the calendar day lying daysAhead
// days after now, in the supplied location.
func DayWindow(now time.Time, daysAhead int, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	target := now.In(loc).AddDate(0, 0, daysAhead)
	start := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}
