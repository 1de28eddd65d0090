package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNotificationString(t *testing.T) {
	n := Notification{Kind: AutoExpired, Title: "Ferry the pilgrims", Day: 16, Message: "job expired"}
	assert.Equal(t, "[day 16] Ferry the pilgrims: job expired", n.String())

	n.Title = ""
	assert.Equal(t, "[day 16] job expired", n.String())
}

func TestLogSinkLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := LogSink{Logger: zap.New(core).Sugar()}
	ctx := context.Background()

	sink.Notify(ctx, Notification{Kind: DeadlineWarning, JobID: "j1", Message: "due soon"})
	sink.Notify(ctx, Notification{Kind: AutoExpired, JobID: "j2", Message: "expired"})
	sink.Notify(ctx, Notification{Kind: SweepFailure, JobID: "j3", Message: "save failed"})

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "j3", entries[2].ContextMap()["job_id"])
}

func TestConsoleSink(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)
	sink.Notify(context.Background(), Notification{Kind: DeadlineWarning, Title: "Hunt", Day: 3, Message: "1 day(s) remaining"})

	assert.Contains(t, buf.String(), "Hunt: 1 day(s) remaining")
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, nil, b, Discard}

	m.Notify(context.Background(), Notification{Kind: AutoExpired})
	m.Notify(context.Background(), Notification{Kind: SweepFailure})

	assert.Len(t, a.All(), 2)
	assert.Len(t, b.OfKind(SweepFailure), 1)
}
