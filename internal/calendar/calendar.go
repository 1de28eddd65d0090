// Package calendar tracks the in-world day and announces when it moves forward.
package calendar

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ChuLiYu/questboard/internal/errors"
)

// DayAdvanced is delivered to listeners after the day moved forward.
type DayAdvanced struct {
	From int
	To   int
}

// Days returns the number of days advanced.
func (d DayAdvanced) Days() int { return d.To - d.From }

// DayStore persists the current day.
type DayStore interface {
	LoadDay(ctx context.Context) (day int, ok bool, err error)
	SaveDay(ctx context.Context, day int) error
}

// Listener reacts to a day advance. The board's expiration sweep is one.
type Listener func(ctx context.Context, ev DayAdvanced) error

// Calendar is the in-world clock.
type Calendar struct {
	store    DayStore
	startDay int
	logger   *zap.SugaredLogger

	mu        sync.Mutex
	listeners []Listener
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithStartDay sets the day reported before anything was persisted.
func WithStartDay(day int) Option {
	return func(c *Calendar) { c.startDay = day }
}

// WithLogger sets the calendar logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Calendar) { c.logger = l }
}

// New creates a calendar backed by store.
func New(store DayStore, opts ...Option) *Calendar {
	c := &Calendar{store: store, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnAdvance registers a listener called synchronously on every advance.
func (c *Calendar) OnAdvance(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// CurrentDay returns the persisted day, or the start day if none was saved.
func (c *Calendar) CurrentDay(ctx context.Context) (int, error) {
	day, ok, err := c.store.LoadDay(ctx)
	if err != nil {
		return 0, errors.Persistence(err, "load current day")
	}
	if !ok {
		return c.startDay, nil
	}
	return day, nil
}

// Now implements the board clock.
func (c *Calendar) Now(ctx context.Context) (int, error) {
	return c.CurrentDay(ctx)
}

// Advance moves the clock forward by days, persists the new day and then
// notifies every listener in registration order. The first listener error
// is returned after all listeners ran; the new day stays persisted.
func (c *Calendar) Advance(ctx context.Context, days int) (DayAdvanced, error) {
	if days < 1 {
		return DayAdvanced{}, errors.Mark(
			errors.Newf("cannot advance by %d days", days), errors.ErrValidation)
	}
	from, err := c.CurrentDay(ctx)
	if err != nil {
		return DayAdvanced{}, err
	}
	ev := DayAdvanced{From: from, To: from + days}
	if err := c.store.SaveDay(ctx, ev.To); err != nil {
		return DayAdvanced{}, errors.Persistence(err, "save current day")
	}
	c.logger.Infow("day advanced", "from", ev.From, "to", ev.To)
	return ev, c.notify(ctx, ev)
}

// Set corrects the current day. Moving forward notifies listeners like
// Advance; moving backward only persists the new value.
func (c *Calendar) Set(ctx context.Context, day int) (DayAdvanced, error) {
	from, err := c.CurrentDay(ctx)
	if err != nil {
		return DayAdvanced{}, err
	}
	if err := c.store.SaveDay(ctx, day); err != nil {
		return DayAdvanced{}, errors.Persistence(err, "save current day")
	}
	ev := DayAdvanced{From: from, To: day}
	if day <= from {
		if day < from {
			c.logger.Warnw("day moved backwards, no sweep run", "from", from, "to", day)
		}
		return ev, nil
	}
	c.logger.Infow("day set", "from", from, "to", day)
	return ev, c.notify(ctx, ev)
}

func (c *Calendar) notify(ctx context.Context, ev DayAdvanced) error {
	c.mu.Lock()
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	var first error
	for _, l := range listeners {
		if err := l(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// MemoryStore is a DayStore kept in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	day int
	set bool
}

// LoadDay implements DayStore.
func (m *MemoryStore) LoadDay(context.Context) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.day, m.set, nil
}

// SaveDay implements DayStore.
func (m *MemoryStore) SaveDay(_ context.Context, day int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.day, m.set = day, true
	return nil
}
