package board

import (
	"context"

	"github.com/google/uuid"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/events"
	"github.com/ChuLiYu/questboard/internal/lifecycle"
	"github.com/ChuLiYu/questboard/internal/query"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// Draft holds the operator-editable fields of a job. It is also the import
// format for job files.
type Draft struct {
	Title                string                   `json:"title" yaml:"title"`
	Description          string                   `json:"description,omitempty" yaml:"description,omitempty"`
	Questgiver           string                   `json:"questgiver,omitempty" yaml:"questgiver,omitempty"`
	Location             string                   `json:"location,omitempty" yaml:"location,omitempty"`
	PostDate             *int                     `json:"post_date,omitempty" yaml:"post_date,omitempty"`
	DurationAvailability int                      `json:"duration_availability" yaml:"duration_availability"`
	DurationCompletion   int                      `json:"duration_completion" yaml:"duration_completion"`
	RewardFunds          float64                  `json:"reward_funds" yaml:"reward_funds"`
	RewardXP             float64                  `json:"reward_xp" yaml:"reward_xp"`
	RewardItems          []types.RewardItem       `json:"reward_items,omitempty" yaml:"reward_items,omitempty"`
	ReputationImpacts    []types.ReputationImpact `json:"reputation_impacts,omitempty" yaml:"reputation_impacts,omitempty"`
	HideFromPlayers      bool                     `json:"hide_from_players" yaml:"hide_from_players"`
	NarrativeConsequence string                   `json:"narrative_consequence,omitempty" yaml:"narrative_consequence,omitempty"`
	Notes                string                   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// DraftOf extracts the editable fields of job.
func DraftOf(job types.Job) Draft {
	c := job.Clone()
	return Draft{
		Title:                c.Title,
		Description:          c.Description,
		Questgiver:           c.Questgiver,
		Location:             c.Location,
		PostDate:             types.Day(c.PostDate),
		DurationAvailability: c.DurationAvailability,
		DurationCompletion:   c.DurationCompletion,
		RewardFunds:          c.RewardFunds,
		RewardXP:             c.RewardXP,
		RewardItems:          c.RewardItems,
		ReputationImpacts:    c.ReputationImpacts,
		HideFromPlayers:      c.HideFromPlayers,
		NarrativeConsequence: c.NarrativeConsequence,
		Notes:                c.Notes,
	}
}

// applyTo copies the draft onto job. Identity, status, dates and
// bookkeeping flags are left alone.
func (d Draft) applyTo(job types.Job) types.Job {
	job.Title = d.Title
	job.Description = d.Description
	job.Questgiver = d.Questgiver
	job.Location = d.Location
	job.DurationAvailability = d.DurationAvailability
	job.DurationCompletion = d.DurationCompletion
	job.RewardFunds = d.RewardFunds
	job.RewardXP = d.RewardXP
	job.RewardItems = append([]types.RewardItem(nil), d.RewardItems...)
	job.ReputationImpacts = append([]types.ReputationImpact(nil), d.ReputationImpacts...)
	job.HideFromPlayers = d.HideFromPlayers
	job.NarrativeConsequence = d.NarrativeConsequence
	job.Notes = d.Notes
	return job
}

func newJobID() types.JobID {
	return types.JobID(uuid.NewString())
}

// Post validates a draft and adds it to the board as a Posted job. The post
// date defaults to the current day.
func (b *Board) Post(ctx context.Context, d Draft) (types.Job, error) {
	day, err := b.Today(ctx)
	if err != nil {
		return types.Job{}, err
	}
	job := d.applyTo(types.Job{
		ID:       b.newID(),
		Status:   types.StatusPosted,
		PostDate: day,
	})
	if d.PostDate != nil {
		job.PostDate = *d.PostDate
	}
	if err := lifecycle.ValidateJob(job); err != nil {
		return types.Job{}, err
	}
	if err := b.save(ctx, job); err != nil {
		return types.Job{}, err
	}

	b.publish(events.Of(events.JobCreated, job, day))
	b.logger.Infow("job posted", "job_id", string(job.ID), "title", job.Title, "day", day)
	return job, nil
}

// Update replaces the editable fields of a job.
func (b *Board) Update(ctx context.Context, id types.JobID, d Draft) (types.Job, error) {
	return b.modify(ctx, id, func(job types.Job) types.Job {
		return d.applyTo(job)
	})
}

// SetArchived moves a job in or out of the archive.
func (b *Board) SetArchived(ctx context.Context, id types.JobID, archived bool) (types.Job, error) {
	return b.modify(ctx, id, func(job types.Job) types.Job {
		job.Archived = archived
		return job
	})
}

// SetHidden hides a job from players or reveals it.
func (b *Board) SetHidden(ctx context.Context, id types.JobID, hidden bool) (types.Job, error) {
	return b.modify(ctx, id, func(job types.Job) types.Job {
		job.HideFromPlayers = hidden
		return job
	})
}

func (b *Board) modify(ctx context.Context, id types.JobID, edit func(types.Job) types.Job) (types.Job, error) {
	day, err := b.Today(ctx)
	if err != nil {
		return types.Job{}, err
	}
	job, err := b.get(ctx, id)
	if err != nil {
		return types.Job{}, err
	}

	next := edit(job.Clone())
	if err := lifecycle.ValidateJob(next); err != nil {
		return types.Job{}, err
	}
	if err := b.save(ctx, next); err != nil {
		return types.Job{}, err
	}
	b.publish(events.Of(events.JobUpdated, next, day))
	return next, nil
}

// Delete removes a job from the board.
func (b *Board) Delete(ctx context.Context, id types.JobID) error {
	day, err := b.Today(ctx)
	if err != nil {
		return err
	}
	job, err := b.get(ctx, id)
	if err != nil {
		return err
	}
	if err := b.repo.Delete(ctx, id); err != nil {
		if errors.IsNotFoundError(err) {
			return err
		}
		return errors.Persistence(err, "delete job "+string(id))
	}
	b.publish(events.Of(events.JobDeleted, job, day))
	b.logger.Infow("job deleted", "job_id", string(id), "title", job.Title)
	return nil
}

// Get returns one job.
func (b *Board) Get(ctx context.Context, id types.JobID) (types.Job, error) {
	return b.get(ctx, id)
}

// List returns every job, archived ones only when asked.
func (b *Board) List(ctx context.Context, includeArchived bool) ([]types.Job, error) {
	jobs, err := b.repo.ListAll(ctx, includeArchived)
	if err != nil {
		return nil, errors.Persistence(err, "list jobs")
	}
	return jobs, nil
}

// Query filters, sorts and groups the board as of the current day.
func (b *Board) Query(ctx context.Context, opts query.Options) ([]query.Group, int, error) {
	day, err := b.Today(ctx)
	if err != nil {
		return nil, 0, err
	}
	jobs, err := b.List(ctx, opts.Filters.IncludeArchived)
	if err != nil {
		return nil, 0, err
	}
	return query.Run(jobs, opts, day), day, nil
}
