package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ChuLiYu/questboard/pkg/types"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(nil)
	var order []string
	bus.Subscribe("first", func(e Event) error { order = append(order, "first"); return nil })
	bus.Subscribe("second", func(e Event) error { order = append(order, "second"); return nil })

	bus.Publish(Event{Type: JobCreated, JobID: "j1"})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestBusStampsTime(t *testing.T) {
	bus := NewBus(nil)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bus.now = func() time.Time { return fixed }

	rec := &Recorder{}
	bus.Subscribe("rec", rec.Handle)
	bus.Publish(Event{Type: JobCreated})

	require.Len(t, rec.Events(), 1)
	assert.Equal(t, fixed, rec.Events()[0].At)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(nil)
	rec := &Recorder{}
	unsub := bus.Subscribe("rec", rec.Handle)
	bus.Publish(Event{Type: JobCreated})
	unsub()
	bus.Publish(Event{Type: JobDeleted})

	assert.Len(t, rec.Events(), 1)
	assert.Equal(t, 0, bus.Len())
	unsub()
}

func TestBusHandlerErrorDoesNotStopDelivery(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	bus := NewBus(zap.New(core).Sugar())

	rec := &Recorder{}
	bus.Subscribe("broken", func(Event) error { return errors.New("disk full") })
	bus.Subscribe("rec", rec.Handle)

	bus.Publish(Event{Type: JobUpdated, JobID: "j1"})
	assert.Len(t, rec.Events(), 1)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "event handler failed", logs.All()[0].Message)
}

func TestStatusChanged(t *testing.T) {
	job := types.Job{ID: "j1", Title: "Ferry", Status: types.StatusExpired}
	e := StatusChanged(job, types.StatusPosted, ReasonAutoExpired, 16)

	assert.Equal(t, JobStatusChanged, e.Type)
	assert.Equal(t, types.StatusPosted, e.PreviousStatus)
	assert.Equal(t, types.StatusExpired, e.NewStatus)
	assert.Equal(t, ReasonAutoExpired, e.Reason)
	assert.Equal(t, 16, e.Day)
}

func TestRecorderOfType(t *testing.T) {
	rec := &Recorder{}
	rec.Publish(Event{Type: JobCreated})
	rec.Publish(Event{Type: JobStatusChanged})
	rec.Publish(Event{Type: JobCreated})

	assert.Len(t, rec.OfType(JobCreated), 2)
	rec.Reset()
	assert.Empty(t, rec.Events())
}
