package lifecycle

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// MaxTitleLength is the longest accepted job title, in characters.
const MaxTitleLength = 200

// ValidateJob checks every field-level invariant of a job and reports all
// failures at once.
func ValidateJob(job types.Job) error {
	ve := &errors.ValidationError{}

	title := strings.TrimSpace(job.Title)
	if title == "" {
		ve.Add("title", "must not be empty")
	} else if utf8.RuneCountInString(job.Title) > MaxTitleLength {
		ve.Add("title", "must be at most %d characters", MaxTitleLength)
	}
	if !job.Status.Valid() {
		ve.Add("status", "unknown status %q", job.Status)
	}
	if job.DurationAvailability < 0 {
		ve.Add("duration_availability", "must be >= 0, got %d", job.DurationAvailability)
	}
	if job.DurationCompletion < 0 {
		ve.Add("duration_completion", "must be >= 0, got %d", job.DurationCompletion)
	}
	if job.RewardFunds < 0 || math.IsNaN(job.RewardFunds) {
		ve.Add("reward_funds", "must be >= 0")
	}
	if job.RewardXP < 0 || math.IsNaN(job.RewardXP) {
		ve.Add("reward_xp", "must be >= 0")
	}
	for i, item := range job.RewardItems {
		if strings.TrimSpace(item.Item) == "" {
			ve.Add(indexed("reward_items", i, "item"), "must not be empty")
		}
		if item.Quantity < 1 {
			ve.Add(indexed("reward_items", i, "quantity"), "must be >= 1, got %d", item.Quantity)
		}
	}
	for i, imp := range job.ReputationImpacts {
		if !imp.TargetType.Valid() {
			ve.Add(indexed("reputation_impacts", i, "target_type"), "unknown target type %q", imp.TargetType)
		}
		if strings.TrimSpace(imp.TargetEntity) == "" {
			ve.Add(indexed("reputation_impacts", i, "target_entity"), "must not be empty")
		}
		if !imp.Condition.Valid() {
			ve.Add(indexed("reputation_impacts", i, "condition"), "unknown condition %q", imp.Condition)
		}
	}

	// takenDate is set iff the job passed through Taken
	switch job.Status {
	case types.StatusTaken, types.StatusCompleted, types.StatusFailed:
		if job.TakenDate == nil {
			ve.Add("taken_date", "required once a job has been taken")
		}
	case types.StatusPosted:
		if job.TakenDate != nil {
			ve.Add("taken_date", "must be empty while posted")
		}
	}
	if job.TakenDate != nil && *job.TakenDate < job.PostDate {
		ve.Add("taken_date", "must not precede post date %d", job.PostDate)
	}

	return ve.OrNil()
}

func indexed(field string, i int, sub string) string {
	return fmt.Sprintf("%s[%d].%s", field, i, sub)
}
