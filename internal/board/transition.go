package board

import (
	"context"

	"github.com/ChuLiYu/questboard/internal/events"
	"github.com/ChuLiYu/questboard/internal/lifecycle"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// TransitionRequest asks for a manual status change.
type TransitionRequest struct {
	JobID  types.JobID
	Target types.JobStatus
}

// Transition validates and applies a manual status change.
//
// Taking a job stamps TakenDate; reaching a terminal status stamps
// ResolvedDate. A manual expiration also applies OnExpiration impacts; if
// that fails the saved job is returned together with the error. Nothing is
// published when the save fails.
func (b *Board) Transition(ctx context.Context, req TransitionRequest) (types.Job, error) {
	day, err := b.Today(ctx)
	if err != nil {
		return types.Job{}, err
	}
	job, err := b.get(ctx, req.JobID)
	if err != nil {
		return types.Job{}, err
	}

	from := job.Status
	if err := lifecycle.Validate(from, req.Target, job, day); err != nil {
		return types.Job{}, err
	}

	next := job.WithStatus(req.Target)
	if req.Target == types.StatusTaken {
		next.TakenDate = types.Day(day)
	}
	if req.Target.IsTerminal() {
		next.ResolvedDate = types.Day(day)
	}
	if err := b.save(ctx, next); err != nil {
		return types.Job{}, err
	}

	var impactErr error
	if req.Target == types.StatusExpired {
		impactErr = b.applyExpirationImpacts(ctx, job, day)
	}

	b.publish(events.StatusChanged(next, from, events.ReasonManual, day))
	b.logger.Infow("job status changed",
		"job_id", string(job.ID),
		"from", string(from),
		"to", string(req.Target),
		"day", day)
	if impactErr != nil {
		b.logger.Errorw("expiration reputation not applied", "job_id", string(job.ID), "error", impactErr)
		return next, impactErr
	}
	return next, nil
}

// Take marks a posted job as accepted by the party.
func (b *Board) Take(ctx context.Context, id types.JobID) (types.Job, error) {
	return b.Transition(ctx, TransitionRequest{JobID: id, Target: types.StatusTaken})
}

// Complete resolves a taken job successfully.
func (b *Board) Complete(ctx context.Context, id types.JobID) (types.Job, error) {
	return b.Transition(ctx, TransitionRequest{JobID: id, Target: types.StatusCompleted})
}

// Fail resolves a taken job unsuccessfully.
func (b *Board) Fail(ctx context.Context, id types.JobID) (types.Job, error) {
	return b.Transition(ctx, TransitionRequest{JobID: id, Target: types.StatusFailed})
}

// Cancel withdraws a posted job.
func (b *Board) Cancel(ctx context.Context, id types.JobID) (types.Job, error) {
	return b.Transition(ctx, TransitionRequest{JobID: id, Target: types.StatusCancelled})
}
