// ============================================================================
// questboard in-memory store
// ============================================================================
//
// Package: internal/storage/memory
//
// Store keeps the whole board in process memory: jobs, the in-world day,
// the party ledger and the reputation history. It satisfies every storage
// contract the board needs and is the base the snapshot-backed file store
// builds on.
//
// Layout:
//   jobs map[JobID]*Job   - single source of truth
//   order []JobID         - insertion order, so listings are deterministic
//   byStatus              - status index kept in sync on every Save
//
// Concurrency: one RWMutex guards everything. Values are cloned on the way
// in and out so callers never share memory with the store.
//
// ============================================================================

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// SchemaVersion is written into every snapshot.
const SchemaVersion = 1

// Store is a thread-safe in-memory repository.
type Store struct {
	mu       sync.RWMutex
	jobs     map[types.JobID]*types.Job
	order    []types.JobID
	byStatus map[types.JobStatus]map[types.JobID]struct{}

	day    int
	daySet bool

	ledger     types.LedgerData
	reputation []types.StandingChange
}

// New creates an empty store.
func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.jobs = make(map[types.JobID]*types.Job)
	s.order = nil
	s.byStatus = make(map[types.JobStatus]map[types.JobID]struct{}, len(types.AllStatuses))
	for _, st := range types.AllStatuses {
		s.byStatus[st] = make(map[types.JobID]struct{})
	}
	s.day, s.daySet = 0, false
	s.ledger = types.LedgerData{Items: make(map[string]int)}
	s.reputation = nil
}

// ============================================================================
// Jobs
// ============================================================================

// ListAll returns jobs in insertion order.
func (s *Store) ListAll(_ context.Context, includeArchived bool) ([]types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Job, 0, len(s.order))
	for _, id := range s.order {
		job := s.jobs[id]
		if job.Archived && !includeArchived {
			continue
		}
		out = append(out, job.Clone())
	}
	return out, nil
}

// Get returns the job with id, or an error matching errors.ErrNotFound.
func (s *Store) Get(_ context.Context, id types.JobID) (types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return types.Job{}, errors.NotFound("job %s not found", id)
	}
	return job.Clone(), nil
}

// Save inserts or replaces job.
func (s *Store) Save(_ context.Context, job types.Job) error {
	if job.ID == "" {
		return errors.Mark(errors.New("job has no id"), errors.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(job.Clone())
	return nil
}

func (s *Store) put(job types.Job) {
	if prev, ok := s.jobs[job.ID]; ok {
		delete(s.byStatus[prev.Status], job.ID)
	} else {
		s.order = append(s.order, job.ID)
	}
	s.jobs[job.ID] = &job
	if idx, ok := s.byStatus[job.Status]; ok {
		idx[job.ID] = struct{}{}
	}
}

// Delete removes the job with id.
func (s *Store) Delete(_ context.Context, id types.JobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return errors.NotFound("job %s not found", id)
	}
	delete(s.byStatus[job.Status], id)
	delete(s.jobs, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// IDsWithStatus returns the ids currently in status, sorted.
func (s *Store) IDsWithStatus(status types.JobStatus) []types.JobID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]types.JobID, 0, len(s.byStatus[status]))
	for id := range s.byStatus[status] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Stats counts jobs per status, archived jobs included.
func (s *Store) Stats(context.Context) (types.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(types.Stats, len(types.AllStatuses))
	for _, st := range types.AllStatuses {
		stats[st] = len(s.byStatus[st])
	}
	return stats, nil
}

// ============================================================================
// Calendar
// ============================================================================

// LoadDay returns the stored day; ok is false if none was saved yet.
func (s *Store) LoadDay(context.Context) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.day, s.daySet, nil
}

// SaveDay stores the current day.
func (s *Store) SaveDay(_ context.Context, day int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day, s.daySet = day, true
	return nil
}

// ============================================================================
// Ledgers
// ============================================================================

// Apply records one standing change per impact.
func (s *Store) Apply(_ context.Context, jobID types.JobID, day int, impacts []types.ReputationImpact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, imp := range impacts {
		s.reputation = append(s.reputation, types.StandingChange{
			JobID:        jobID,
			Day:          day,
			TargetType:   imp.TargetType,
			TargetEntity: imp.TargetEntity,
			Value:        imp.Value,
			Condition:    imp.Condition,
		})
	}
	return nil
}

// Standings aggregates the reputation history per entity, sorted by type then name.
func (s *Store) Standings(context.Context) ([]types.Standing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Aggregate(s.reputation), nil
}

// History returns every applied standing change in order.
func (s *Store) History(context.Context) ([]types.StandingChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.StandingChange(nil), s.reputation...), nil
}

// Credit adds a payout to the party ledger.
func (s *Store) Credit(_ context.Context, c types.Credit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.Funds += c.Gold
	s.ledger.XP += c.XP
	for _, it := range c.Items {
		s.ledger.Items[it.Item] += it.Quantity
	}
	return nil
}

// Balance returns the party ledger totals.
func (s *Store) Balance(context.Context) (types.LedgerData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyLedger(s.ledger), nil
}

// Aggregate sums standing changes per target, sorted by type then entity.
func Aggregate(changes []types.StandingChange) []types.Standing {
	type key struct {
		t types.TargetType
		e string
	}
	totals := make(map[key]int)
	var keys []key
	for _, c := range changes {
		k := key{c.TargetType, c.TargetEntity}
		if _, ok := totals[k]; !ok {
			keys = append(keys, k)
		}
		totals[k] += c.Value
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].t != keys[j].t {
			return keys[i].t < keys[j].t
		}
		return keys[i].e < keys[j].e
	})

	out := make([]types.Standing, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Standing{TargetType: k.t, TargetEntity: k.e, Value: totals[k]})
	}
	return out
}

// ============================================================================
// Snapshot & restore
// ============================================================================

// Snapshot deep-copies the full store state.
func (s *Store) Snapshot() types.SnapshotData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make(map[types.JobID]*types.Job, len(s.jobs))
	for id, job := range s.jobs {
		c := job.Clone()
		jobs[id] = &c
	}
	return types.SnapshotData{
		Jobs:       jobs,
		Order:      append([]types.JobID(nil), s.order...),
		CurrentDay: s.day,
		DaySet:     s.daySet,
		Ledger:     copyLedger(s.ledger),
		Reputation: append([]types.StandingChange(nil), s.reputation...),
		SchemaVer:  SchemaVersion,
	}
}

// Restore replaces the store state with data.
func (s *Store) Restore(data types.SnapshotData) error {
	if data.SchemaVer != 0 && data.SchemaVer != SchemaVersion {
		return errors.Newf("unsupported snapshot schema version %d", data.SchemaVer)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	seen := make(map[types.JobID]bool, len(data.Jobs))
	for _, id := range data.Order {
		if job, ok := data.Jobs[id]; ok && !seen[id] {
			s.put(job.Clone())
			seen[id] = true
		}
	}
	// jobs missing from Order go last, sorted by post date then id
	var rest []types.Job
	for id, job := range data.Jobs {
		if !seen[id] && job != nil {
			rest = append(rest, job.Clone())
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		if rest[i].PostDate != rest[j].PostDate {
			return rest[i].PostDate < rest[j].PostDate
		}
		return rest[i].ID < rest[j].ID
	})
	for _, job := range rest {
		s.put(job)
	}

	s.day, s.daySet = data.CurrentDay, data.DaySet
	s.ledger = copyLedger(data.Ledger)
	s.reputation = append([]types.StandingChange(nil), data.Reputation...)
	return nil
}

func copyLedger(l types.LedgerData) types.LedgerData {
	items := make(map[string]int, len(l.Items))
	for k, v := range l.Items {
		items[k] = v
	}
	return types.LedgerData{Funds: l.Funds, XP: l.XP, Items: items}
}
