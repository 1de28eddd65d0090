// ============================================================================
// questboard board - job lifecycle orchestrator
// ============================================================================
//
// Package: internal/board
//
// The board is the only stateful component. It reacts to two inputs:
//
//   1. Calendar day advances -> expiration sweep over every open job
//   2. Operator actions      -> validated manual transitions and edits
//
// Every mutation follows the same order:
//
//   load -> validate (lifecycle) -> new Job value -> Save -> side effects
//        -> publish event -> notify
//
// A failed Save aborts the operation before anything is published, so
// subscribers (journal, metrics) only ever see persisted state.
//
// Sweeps are sequential and idempotent: a job already Expired is skipped,
// so re-running a sweep for the same day changes nothing.
//
// ============================================================================

package board

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/events"
	"github.com/ChuLiYu/questboard/internal/notify"
	"github.com/ChuLiYu/questboard/internal/rewards"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// ============================================================================
// Collaborators
// ============================================================================

// Repository stores job records.
type Repository interface {
	ListAll(ctx context.Context, includeArchived bool) ([]types.Job, error)
	// Get returns an error matching errors.ErrNotFound for unknown ids.
	Get(ctx context.Context, id types.JobID) (types.Job, error)
	// Save inserts or replaces the job.
	Save(ctx context.Context, job types.Job) error
	Delete(ctx context.Context, id types.JobID) error
}

// Clock reports the current in-world day.
type Clock interface {
	Now(ctx context.Context) (int, error)
}

// Publisher carries lifecycle events to subscribers.
type Publisher interface {
	Publish(e events.Event)
}

// ReputationLedger records standing changes.
type ReputationLedger interface {
	Apply(ctx context.Context, jobID types.JobID, day int, impacts []types.ReputationImpact) error
}

// PartyLedger records reward payouts.
type PartyLedger interface {
	Credit(ctx context.Context, c types.Credit) error
}

// SweepObserver is told about every finished sweep.
type SweepObserver interface {
	RecordSweep(day int, elapsed time.Duration, warnings, failures int)
}

// ============================================================================
// Configuration
// ============================================================================

// Config tunes board behaviour.
type Config struct {
	NotifyOnDeadlines   bool
	NotifyOnExpirations bool
	// DeadlineThresholds are remaining-day counts that trigger a warning
	// when a sweep crosses them.
	DeadlineThresholds []int
	// ReviewThreshold is the |value| at which a reputation impact asks for
	// a game-master review before distribution.
	ReviewThreshold int
}

// DefaultConfig warns at 3, 1 and 0 days remaining and announces expirations.
func DefaultConfig() Config {
	return Config{
		NotifyOnDeadlines:   true,
		NotifyOnExpirations: true,
		DeadlineThresholds:  []int{3, 1, 0},
		ReviewThreshold:     rewards.DefaultReviewThreshold,
	}
}

// Deps are the board's collaborators. Repository and Clock are required;
// the rest fall back to no-op implementations.
type Deps struct {
	Repository Repository
	Clock      Clock
	Publisher  Publisher
	Notifier   notify.Sink
	Reputation ReputationLedger
	Party      PartyLedger
	Observer   SweepObserver
	Logger     *zap.SugaredLogger
}

// Board orchestrates the job lifecycle.
type Board struct {
	repo       Repository
	clock      Clock
	pub        Publisher
	notifier   notify.Sink
	reputation ReputationLedger
	party      PartyLedger
	observer   SweepObserver
	logger     *zap.SugaredLogger
	cfg        Config

	now   func() time.Time
	newID func() types.JobID
}

// New creates a board.
func New(deps Deps, cfg Config) (*Board, error) {
	if deps.Repository == nil {
		return nil, errors.New("board: repository is required")
	}
	if deps.Clock == nil {
		return nil, errors.New("board: clock is required")
	}
	b := &Board{
		repo:       deps.Repository,
		clock:      deps.Clock,
		pub:        deps.Publisher,
		notifier:   deps.Notifier,
		reputation: deps.Reputation,
		party:      deps.Party,
		observer:   deps.Observer,
		logger:     deps.Logger,
		cfg:        cfg,
		now:        time.Now,
		newID:      newJobID,
	}
	if b.pub == nil {
		b.pub = nopPublisher{}
	}
	if b.notifier == nil {
		b.notifier = notify.Discard
	}
	if b.reputation == nil {
		b.reputation = nopLedger{}
	}
	if b.party == nil {
		b.party = nopLedger{}
	}
	if b.logger == nil {
		b.logger = zap.NewNop().Sugar()
	}
	return b, nil
}

// Config returns the active configuration.
func (b *Board) Config() Config { return b.cfg }

// Today returns the current in-world day.
func (b *Board) Today(ctx context.Context) (int, error) {
	day, err := b.clock.Now(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "read current day")
	}
	return day, nil
}

// save persists job, marking any failure as a persistence error.
func (b *Board) save(ctx context.Context, job types.Job) error {
	if err := b.repo.Save(ctx, job); err != nil {
		return errors.Persistence(err, "save job "+string(job.ID))
	}
	return nil
}

// get loads a job; not-found errors pass through unchanged.
func (b *Board) get(ctx context.Context, id types.JobID) (types.Job, error) {
	job, err := b.repo.Get(ctx, id)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return types.Job{}, err
		}
		return types.Job{}, errors.Persistence(err, "load job "+string(id))
	}
	return job, nil
}

func (b *Board) publish(e events.Event) {
	if e.At.IsZero() {
		e.At = b.now()
	}
	b.pub.Publish(e)
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}

type nopLedger struct{}

func (nopLedger) Apply(context.Context, types.JobID, int, []types.ReputationImpact) error {
	return nil
}

func (nopLedger) Credit(context.Context, types.Credit) error { return nil }
