package board

import (
	"context"
	"fmt"
	"time"

	"github.com/ChuLiYu/questboard/internal/calendar"
	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/events"
	"github.com/ChuLiYu/questboard/internal/expiration"
	"github.com/ChuLiYu/questboard/internal/lifecycle"
	"github.com/ChuLiYu/questboard/internal/notify"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// SweepFailure is one job the sweep could not process.
type SweepFailure struct {
	JobID types.JobID
	Title string
	Err   error
}

// SweepReport summarises one expiration sweep.
type SweepReport struct {
	From     int
	To       int
	Checked  int
	Expired  []types.JobID
	Warnings []notify.Notification
	Failures []SweepFailure
}

// HandleDayAdvanced runs the expiration sweep for a calendar advance.
//
// Each open, non-archived job whose current window closed before ev.To is
// moved to Expired, its OnExpiration impacts are applied and an AutoExpired
// status change is published. Jobs that crossed a deadline threshold get a
// warning instead. A failing job is logged, reported and skipped; only a
// failure to list jobs aborts the sweep.
func (b *Board) HandleDayAdvanced(ctx context.Context, ev calendar.DayAdvanced) (SweepReport, error) {
	start := b.now()
	report := SweepReport{From: ev.From, To: ev.To}

	jobs, err := b.repo.ListAll(ctx, false)
	if err != nil {
		err = errors.Persistence(err, "list jobs for sweep")
		b.logger.Errorw("sweep aborted", "day", ev.To, "error", err)
		b.notifier.Notify(ctx, notify.Notification{
			Kind:    notify.SweepFailure,
			Day:     ev.To,
			Message: fmt.Sprintf("expiration sweep aborted: %v", err),
		})
		return report, err
	}

	for _, job := range jobs {
		if !job.Status.IsOpen() {
			continue
		}
		report.Checked++

		remaining, ok := expiration.DaysRemaining(job, ev.To)
		if !ok {
			continue
		}

		if remaining < 0 {
			expired, err := b.expire(ctx, job, ev.To)
			if expired {
				report.Expired = append(report.Expired, job.ID)
			}
			if err != nil {
				b.recordFailure(ctx, &report, job, err)
			}
			continue
		}

		if b.cfg.NotifyOnDeadlines {
			if n, ok := b.deadlineWarning(job, ev, remaining); ok {
				report.Warnings = append(report.Warnings, n)
				b.notifier.Notify(ctx, n)
			}
		}
	}

	if b.observer != nil {
		b.observer.RecordSweep(ev.To, time.Since(start), len(report.Warnings), len(report.Failures))
	}
	b.logger.Infow("sweep finished",
		"from", ev.From,
		"to", ev.To,
		"checked", report.Checked,
		"expired", len(report.Expired),
		"warnings", len(report.Warnings),
		"failures", len(report.Failures))
	return report, nil
}

// Sweep runs an expiration pass for the current day without a day change.
// Used at startup to catch up on jobs that went overdue while stopped.
func (b *Board) Sweep(ctx context.Context) (SweepReport, error) {
	day, err := b.Today(ctx)
	if err != nil {
		return SweepReport{}, err
	}
	return b.HandleDayAdvanced(ctx, calendar.DayAdvanced{From: day, To: day})
}

// Listener adapts the sweep to a calendar listener.
func (b *Board) Listener() calendar.Listener {
	return func(ctx context.Context, ev calendar.DayAdvanced) error {
		_, err := b.HandleDayAdvanced(ctx, ev)
		return err
	}
}

// expire moves job to Expired. expired reports whether the new status was
// saved; the event and notification go out whenever it was, even if the
// OnExpiration impacts could not be applied.
func (b *Board) expire(ctx context.Context, job types.Job, day int) (expired bool, err error) {
	from := job.Status
	if err := lifecycle.Validate(from, types.StatusExpired, job, day); err != nil {
		return false, err
	}

	next := job.WithStatus(types.StatusExpired)
	next.ResolvedDate = types.Day(day)
	if err := b.save(ctx, next); err != nil {
		return false, err
	}

	// the job stays Expired; impacts are not retried
	err = b.applyExpirationImpacts(ctx, job, day)

	b.publish(events.StatusChanged(next, from, events.ReasonAutoExpired, day))
	b.logger.Infow("job expired", "job_id", string(job.ID), "title", job.Title, "from", string(from), "day", day)

	if b.cfg.NotifyOnExpirations {
		b.notifier.Notify(ctx, notify.Notification{
			Kind:    notify.AutoExpired,
			JobID:   job.ID,
			Title:   job.Title,
			Day:     day,
			Message: fmt.Sprintf("expired while %s", from),
		})
	}
	return true, err
}

func (b *Board) applyExpirationImpacts(ctx context.Context, job types.Job, day int) error {
	impacts := job.ImpactsFor(types.OnExpiration)
	if len(impacts) == 0 {
		return nil
	}
	if err := b.reputation.Apply(ctx, job.ID, day, impacts); err != nil {
		return errors.WithHint(
			errors.Persistence(err, "apply expiration reputation"),
			"the job is already expired; adjust reputation manually")
	}
	return nil
}

// deadlineWarning reports the tightest threshold crossed between ev.From and
// ev.To. Nothing is emitted when no threshold lies in that range.
func (b *Board) deadlineWarning(job types.Job, ev calendar.DayAdvanced, remaining int) (notify.Notification, bool) {
	previous, _ := expiration.DaysRemaining(job, ev.From)
	crossed := false
	for _, t := range b.cfg.DeadlineThresholds {
		if remaining <= t && previous > t {
			crossed = true
			break
		}
	}
	if !crossed {
		return notify.Notification{}, false
	}

	what := "availability"
	if job.Status == types.StatusTaken {
		what = "completion"
	}
	return notify.Notification{
		Kind:    notify.DeadlineWarning,
		JobID:   job.ID,
		Title:   job.Title,
		Day:     ev.To,
		Message: fmt.Sprintf("%s deadline: %s", what, expiration.FormatDaysRemaining(remaining)),
	}, true
}

func (b *Board) recordFailure(ctx context.Context, report *SweepReport, job types.Job, err error) {
	report.Failures = append(report.Failures, SweepFailure{JobID: job.ID, Title: job.Title, Err: err})
	b.logger.Errorw("sweep failed for job", "job_id", string(job.ID), "title", job.Title, "day", report.To, "error", err)
	b.notifier.Notify(ctx, notify.Notification{
		Kind:    notify.SweepFailure,
		JobID:   job.ID,
		Title:   job.Title,
		Day:     report.To,
		Message: fmt.Sprintf("sweep failed for job: %v", err),
	})
}
