package board

import (
	"context"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/events"
	"github.com/ChuLiYu/questboard/internal/rewards"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// Rewards computes the payout for a job and whether the game master should
// review it before distribution.
func (b *Board) Rewards(ctx context.Context, id types.JobID) (rewards.Result, bool, error) {
	job, err := b.get(ctx, id)
	if err != nil {
		return rewards.Result{}, false, err
	}
	res := rewards.Calculate(job)
	return res, rewards.ShouldPromptGMReview(job, res, b.cfg.ReviewThreshold), nil
}

// DistributeRewards pays out a completed or failed job exactly once.
//
// The job is saved with RewardsDistributed set before any ledger is
// credited, so a crash can lose a payout but never double it.
func (b *Board) DistributeRewards(ctx context.Context, id types.JobID) (rewards.Result, error) {
	day, err := b.Today(ctx)
	if err != nil {
		return rewards.Result{}, err
	}
	job, err := b.get(ctx, id)
	if err != nil {
		return rewards.Result{}, err
	}

	if job.RewardsDistributed {
		return rewards.Result{}, errors.Mark(
			errors.Newf("rewards for job %s were already distributed", id),
			errors.ErrAlreadyDistributed)
	}
	if !rewards.Distributable(job) {
		return rewards.Result{}, errors.WithHint(
			errors.Mark(errors.Newf("job %s is %s", id, job.Status), errors.ErrValidation),
			"only completed or failed jobs pay out")
	}

	res := rewards.Calculate(job)

	next := job.Clone()
	next.RewardsDistributed = true
	if err := b.save(ctx, next); err != nil {
		return rewards.Result{}, err
	}

	if res.Gold != 0 || res.XP != 0 || len(res.Items) > 0 {
		credit := types.Credit{JobID: id, Day: day, Gold: res.Gold, XP: res.XP, Items: res.Items}
		if err := b.party.Credit(ctx, credit); err != nil {
			return res, errors.WithHint(
				errors.Persistence(err, "credit party ledger"),
				"the job is marked as distributed; credit the party manually")
		}
	}
	if len(res.ReputationImpacts) > 0 {
		if err := b.reputation.Apply(ctx, id, day, res.ReputationImpacts); err != nil {
			return res, errors.WithHint(
				errors.Persistence(err, "apply reputation"),
				"the job is marked as distributed; adjust reputation manually")
		}
	}

	b.publish(events.Of(events.JobRewardsDistributed, next, day))
	b.logger.Infow("rewards distributed",
		"job_id", string(id),
		"gold", res.Gold,
		"xp", res.XP,
		"items", len(res.Items),
		"impacts", len(res.ReputationImpacts))
	return res, nil
}
