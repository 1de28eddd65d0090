// Package events carries job lifecycle events from the board to its subscribers.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ChuLiYu/questboard/pkg/types"
)

// Type names the kind of lifecycle event.
type Type string

const (
	JobCreated            Type = "JobCreated"
	JobUpdated            Type = "JobUpdated"
	JobStatusChanged      Type = "JobStatusChanged"
	JobDeleted            Type = "JobDeleted"
	JobRewardsDistributed Type = "JobRewardsDistributed"
)

// Reason records what triggered a status change.
type Reason string

const (
	ReasonManual      Reason = "Manual"
	ReasonAutoExpired Reason = "AutoExpired"
)

// Event is a single lifecycle fact. Day is the in-world day it happened on;
// At is wall-clock time and only informative.
type Event struct {
	Type           Type            `json:"type"`
	JobID          types.JobID     `json:"job_id"`
	Title          string          `json:"title,omitempty"`
	PreviousStatus types.JobStatus `json:"previous_status,omitempty"`
	NewStatus      types.JobStatus `json:"new_status,omitempty"`
	Reason         Reason          `json:"reason,omitempty"`
	Day            int             `json:"day"`
	At             time.Time       `json:"at"`
}

// StatusChanged builds a JobStatusChanged event.
func StatusChanged(job types.Job, from types.JobStatus, reason Reason, day int) Event {
	return Event{
		Type:           JobStatusChanged,
		JobID:          job.ID,
		Title:          job.Title,
		PreviousStatus: from,
		NewStatus:      job.Status,
		Reason:         reason,
		Day:            day,
	}
}

// Of builds an event of type t about job.
func Of(t Type, job types.Job, day int) Event {
	return Event{Type: t, JobID: job.ID, Title: job.Title, NewStatus: job.Status, Day: day}
}

// Handler consumes an event. A returned error is logged by the bus and does
// not stop delivery to other handlers.
type Handler func(Event) error

// ============================================================================
// Bus
// ============================================================================

// Bus fans events out to every subscriber synchronously, in subscription order.
type Bus struct {
	logger *zap.SugaredLogger
	now    func() time.Time

	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id      int
	name    string
	handler Handler
}

// NewBus creates an empty bus. A nil logger discards handler errors.
func NewBus(logger *zap.SugaredLogger) *Bus {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Bus{logger: logger, now: time.Now}
}

// Subscribe registers h under name and returns a function removing it.
func (b *Bus) Subscribe(name string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, name: name, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to all current subscribers. At is stamped when unset.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = b.now()
	}

	b.mu.RLock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler(e); err != nil {
			b.logger.Warnw("event handler failed",
				"subscriber", s.name,
				"event", e.Type,
				"job_id", e.JobID,
				"error", err)
		}
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Recorder is a handler that keeps every event it sees. Useful in tests and
// for the CLI to report what a command did.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Handle implements Handler.
func (r *Recorder) Handle(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Publish lets a Recorder stand in for a Bus.
func (r *Recorder) Publish(e Event) {
	_ = r.Handle(e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
