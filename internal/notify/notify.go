// Package notify delivers operator notifications produced by the board.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/ChuLiYu/questboard/pkg/types"
)

// Kind classifies a notification.
type Kind string

const (
	DeadlineWarning Kind = "DeadlineWarning"
	AutoExpired     Kind = "AutoExpired"
	SweepFailure    Kind = "SweepFailure"
)

// Notification is one message for the game master.
type Notification struct {
	Kind    Kind        `json:"kind"`
	JobID   types.JobID `json:"job_id"`
	Title   string      `json:"title"`
	Day     int         `json:"day"`
	Message string      `json:"message"`
}

func (n Notification) String() string {
	if n.Title == "" {
		return fmt.Sprintf("[day %d] %s", n.Day, n.Message)
	}
	return fmt.Sprintf("[day %d] %s: %s", n.Day, n.Title, n.Message)
}

// Sink receives notifications. Delivery is best effort.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// ============================================================================
// Sinks
// ============================================================================

// LogSink writes notifications to a structured logger.
type LogSink struct {
	Logger *zap.SugaredLogger
}

// Notify implements Sink.
func (s LogSink) Notify(_ context.Context, n Notification) {
	if s.Logger == nil {
		return
	}
	kv := []interface{}{"kind", string(n.Kind), "job_id", string(n.JobID), "title", n.Title, "day", n.Day}
	switch n.Kind {
	case SweepFailure:
		s.Logger.Errorw(n.Message, kv...)
	case DeadlineWarning:
		s.Logger.Warnw(n.Message, kv...)
	default:
		s.Logger.Infow(n.Message, kv...)
	}
}

// ConsoleSink prints notifications for an interactive operator.
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink prints to w, or stdout when w is nil.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{w: w}
}

// Notify implements Sink.
func (s *ConsoleSink) Notify(_ context.Context, n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p pterm.PrefixPrinter
	switch n.Kind {
	case SweepFailure:
		p = pterm.Error
	case DeadlineWarning:
		p = pterm.Warning
	default:
		p = pterm.Info
	}
	p.WithWriter(s.w).Println(n.String())
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify implements Sink.
func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// OfKind returns the recorded notifications of kind k.
func (r *Recorder) OfKind(k Kind) []Notification {
	var out []Notification
	for _, n := range r.All() {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// Multi forwards every notification to each sink in order.
type Multi []Sink

// Notify implements Sink.
func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, n)
		}
	}
}

// Discard drops every notification.
var Discard Sink = discard{}

type discard struct{}

func (discard) Notify(context.Context, Notification) {}
