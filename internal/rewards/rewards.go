// Package rewards derives the payout and reputation consequences of a resolved job.
package rewards

import (
	"fmt"
	"strings"

	"github.com/ChuLiYu/questboard/pkg/types"
)

// DefaultReviewThreshold is the |value| at which a single reputation impact
// is considered large enough to warrant a game-master review.
const DefaultReviewThreshold = 10

// Result is the concrete reward payload for a job.
type Result struct {
	JobID             types.JobID              `json:"job_id"`
	Status            types.JobStatus          `json:"status"`
	Gold              float64                  `json:"gold"`
	XP                float64                  `json:"xp"`
	Items             []types.RewardItem       `json:"items,omitempty"`
	ReputationImpacts []types.ReputationImpact `json:"reputation_impacts,omitempty"`
	Warnings          []string                 `json:"warnings,omitempty"`
}

// IsEmpty reports whether the result pays nothing and moves no reputation.
func (r Result) IsEmpty() bool {
	return r.Gold == 0 && r.XP == 0 && len(r.Items) == 0 && len(r.ReputationImpacts) == 0
}

// OutcomeCondition maps a terminal status to the reputation condition it
// settles. Expiration is settled by the board at expiry time, so it is
// deliberately absent here.
func OutcomeCondition(status types.JobStatus) (types.Condition, bool) {
	switch status {
	case types.StatusCompleted:
		return types.OnSuccess, true
	case types.StatusFailed:
		return types.OnFailure, true
	}
	return "", false
}

// Calculate derives the reward payload for job.
//
// Currency, XP and items are payable only for completed jobs. Reputation
// impacts are filtered to the condition matching the job's outcome.
func Calculate(job types.Job) Result {
	res := Result{JobID: job.ID, Status: job.Status}

	if cond, ok := OutcomeCondition(job.Status); ok {
		res.ReputationImpacts = job.ImpactsFor(cond)
	}

	switch job.Status {
	case types.StatusCompleted:
		res.Gold = job.RewardFunds
		res.XP = job.RewardXP
		if len(job.RewardItems) > 0 {
			res.Items = append([]types.RewardItem(nil), job.RewardItems...)
		}
		if res.Gold == 0 && res.XP == 0 && len(res.Items) == 0 {
			res.Warnings = append(res.Warnings,
				"job was completed but defines no currency, XP or item rewards")
		}
	case types.StatusFailed:
		res.Warnings = append(res.Warnings, "job failed; no currency, XP or items are payable")
	case types.StatusExpired:
		res.Warnings = append(res.Warnings,
			"job expired; expiration reputation was applied when it expired")
	default:
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("job is %s; rewards are only settled for completed or failed jobs", job.Status))
	}

	if job.RewardsDistributed {
		res.Warnings = append(res.Warnings, "rewards for this job were already distributed")
	}
	return res
}

// ShouldPromptGMReview reports whether distributing res blindly is risky: the
// job carries a narrative consequence, or any impact in the result reaches
// threshold in magnitude. A threshold <= 0 falls back to DefaultReviewThreshold.
func ShouldPromptGMReview(job types.Job, res Result, threshold int) bool {
	if strings.TrimSpace(job.NarrativeConsequence) != "" {
		return true
	}
	if threshold <= 0 {
		threshold = DefaultReviewThreshold
	}
	for _, imp := range res.ReputationImpacts {
		if abs(imp.Value) >= threshold {
			return true
		}
	}
	return false
}

// Distributable reports whether rewards may be paid out for job.
func Distributable(job types.Job) bool {
	_, ok := OutcomeCondition(job.Status)
	return ok && !job.RewardsDistributed
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
