// ============================================================================
// Job lifecycle - status transition table
// ============================================================================
//
// Status state machine:
//
//	Posted ──take──▶ Taken ──complete──▶ Completed
//	  │                │
//	  │                ├──fail──▶ Failed
//	  │                └──deadline passed──▶ Expired
//	  ├──availability passed──▶ Expired
//	  └──cancel──▶ Cancelled
//
// Completed, Failed, Expired and Cancelled are terminal. Every pair not in
// the table is rejected with a TransitionError naming the pair.
// ============================================================================

package lifecycle

import (
	"fmt"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/expiration"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// precondition checks a legal edge against the job and the current day.
type precondition func(job types.Job, currentDay int) error

// transitions is the complete table of legal edges.
var transitions = map[types.JobStatus]map[types.JobStatus]precondition{
	types.StatusPosted: {
		types.StatusTaken:     nil,
		types.StatusExpired:   availabilityPassed,
		types.StatusCancelled: nil,
	},
	types.StatusTaken: {
		types.StatusCompleted: nil,
		types.StatusFailed:    nil,
		types.StatusExpired:   completionPassed,
	},
}

// Validate checks whether job may move from one status to another on currentDay.
// It never mutates job.
//
// Returns:
//   - nil when the transition is legal
//   - *errors.TransitionError (matches errors.ErrInvalidTransition) otherwise
func Validate(from, to types.JobStatus, job types.Job, currentDay int) error {
	if !from.Valid() || !to.Valid() {
		return &errors.TransitionError{From: string(from), To: string(to), Reason: "unknown status"}
	}
	if job.Status != from {
		return &errors.TransitionError{
			From:   string(from),
			To:     string(to),
			Reason: fmt.Sprintf("job is %s", job.Status),
		}
	}

	check, ok := transitions[from][to]
	if !ok {
		reason := ""
		if from.IsTerminal() {
			reason = fmt.Sprintf("%s is a terminal status", from)
		}
		return &errors.TransitionError{From: string(from), To: string(to), Reason: reason}
	}
	if check == nil {
		return nil
	}
	if err := check(job, currentDay); err != nil {
		return &errors.TransitionError{From: string(from), To: string(to), Reason: err.Error()}
	}
	return nil
}

// Allowed lists the statuses reachable from the given one, in canonical order.
func Allowed(from types.JobStatus) []types.JobStatus {
	var out []types.JobStatus
	for _, st := range types.AllStatuses {
		if _, ok := transitions[from][st]; ok {
			out = append(out, st)
		}
	}
	return out
}

// IsLegalEdge reports whether (from, to) appears in the table, ignoring preconditions.
func IsLegalEdge(from, to types.JobStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

func availabilityPassed(job types.Job, currentDay int) error {
	day, ok := expiration.ExpirationDay(job)
	if !ok {
		return errors.New("availability is unlimited")
	}
	if currentDay <= day {
		return errors.Newf("availability runs until day %d (current day %d)", day, currentDay)
	}
	return nil
}

func completionPassed(job types.Job, currentDay int) error {
	day, ok := expiration.DeadlineDay(job)
	if !ok {
		return errors.New("completion window is unlimited")
	}
	if currentDay <= day {
		return errors.Newf("deadline is day %d (current day %d)", day, currentDay)
	}
	return nil
}
