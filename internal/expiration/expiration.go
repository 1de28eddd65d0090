// Package expiration computes availability and completion boundaries for jobs.
//
// Every function is total: an unlimited window is reported through the
// boolean result instead of a magic day value, so callers never have to
// guess whether zero means "today" or "no limit".
package expiration

import (
	"fmt"

	"github.com/ChuLiYu/questboard/pkg/types"
)

// ExpirationDay returns the last day the posting remains available.
// ok is false when the availability window is unlimited.
func ExpirationDay(job types.Job) (day int, ok bool) {
	if job.DurationAvailability <= 0 {
		return 0, false
	}
	return job.PostDate + job.DurationAvailability, true
}

// DeadlineDay returns the day a taken job must be resolved by.
// ok is false when the job was never taken or the completion window is unlimited.
func DeadlineDay(job types.Job) (day int, ok bool) {
	if job.TakenDate == nil || job.DurationCompletion <= 0 {
		return 0, false
	}
	return *job.TakenDate + job.DurationCompletion, true
}

// Boundary returns the day the job's current window closes: the completion
// deadline once taken, the availability expiration before that.
func Boundary(job types.Job) (day int, ok bool) {
	if job.TakenDate != nil {
		return DeadlineDay(job)
	}
	return ExpirationDay(job)
}

// DaysRemaining returns boundary - currentDay. Negative values mean overdue.
// ok is false when the relevant window is unlimited.
func DaysRemaining(job types.Job, currentDay int) (days int, ok bool) {
	boundary, ok := Boundary(job)
	if !ok {
		return 0, false
	}
	return boundary - currentDay, true
}

// IsOverdue reports whether the job's current window closed before currentDay.
func IsOverdue(job types.Job, currentDay int) bool {
	n, ok := DaysRemaining(job, currentDay)
	return ok && n < 0
}

// FormatDaysRemaining renders a remaining-day count for the operator.
func FormatDaysRemaining(n int) string {
	switch {
	case n < 0:
		return fmt.Sprintf("Overdue by %d day(s)", -n)
	case n == 0:
		return "Due today"
	default:
		return fmt.Sprintf("%d day(s) remaining", n)
	}
}

// Describe renders the remaining time of an open job, or "No deadline".
func Describe(job types.Job, currentDay int) string {
	n, ok := DaysRemaining(job, currentDay)
	if !ok {
		return "No deadline"
	}
	return FormatDaysRemaining(n)
}
