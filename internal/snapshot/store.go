package snapshot

import (
	"context"
	"sync"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/storage/memory"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// Store is a memory store persisted to a snapshot file after every mutation.
// A mutation whose snapshot cannot be written is rolled back in memory.
type Store struct {
	*memory.Store
	mu      sync.Mutex
	manager *Manager
	backups int
}

// Open loads the snapshot at path into a new Store. keepBackups > 0 keeps
// that many previous snapshots next to the file.
func Open(path string, keepBackups int) (*Store, error) {
	m := NewManager(path)
	data, err := m.Load()
	if err != nil {
		return nil, errors.Persistence(err, "load snapshot")
	}
	mem := memory.New()
	if err := mem.Restore(data); err != nil {
		return nil, errors.Persistence(err, "restore snapshot")
	}
	return &Store{Store: mem, manager: m, backups: keepBackups}, nil
}

// Manager exposes the underlying snapshot manager.
func (s *Store) Manager() *Manager { return s.manager }

func (s *Store) flush() error {
	data := s.Store.Snapshot()
	var err error
	if s.backups > 0 {
		err = s.manager.WriteWithBackup(data, s.backups)
	} else {
		err = s.manager.Write(data)
	}
	return errors.Persistence(err, "write snapshot")
}

// commit applies op to memory and writes the snapshot. If the write fails,
// memory is restored to its state before op.
func (s *Store) commit(op func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.Store.Snapshot()
	if err := op(); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		if rerr := s.Store.Restore(before); rerr != nil {
			return errors.CombineErrors(err, errors.Wrap(rerr, "roll back memory state"))
		}
		return err
	}
	return nil
}

// Save implements the board repository.
func (s *Store) Save(ctx context.Context, job types.Job) error {
	return s.commit(func() error { return s.Store.Save(ctx, job) })
}

// Delete implements the board repository.
func (s *Store) Delete(ctx context.Context, id types.JobID) error {
	return s.commit(func() error { return s.Store.Delete(ctx, id) })
}

// SaveDay implements calendar.DayStore.
func (s *Store) SaveDay(ctx context.Context, day int) error {
	return s.commit(func() error { return s.Store.SaveDay(ctx, day) })
}

// Apply implements the reputation ledger.
func (s *Store) Apply(ctx context.Context, jobID types.JobID, day int, impacts []types.ReputationImpact) error {
	if len(impacts) == 0 {
		return nil
	}
	return s.commit(func() error { return s.Store.Apply(ctx, jobID, day, impacts) })
}

// Credit implements the party ledger.
func (s *Store) Credit(ctx context.Context, c types.Credit) error {
	return s.commit(func() error { return s.Store.Credit(ctx, c) })
}

// Close is a no-op; every mutation is already on disk.
func (s *Store) Close() error { return nil }
