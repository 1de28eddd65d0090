package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/events"
	"github.com/ChuLiYu/questboard/pkg/types"
)

func sampleEvent(id string, day int) events.Event {
	return events.Event{
		Type:           events.JobStatusChanged,
		JobID:          types.JobID(id),
		PreviousStatus: types.StatusPosted,
		NewStatus:      types.StatusExpired,
		Reason:         events.ReasonAutoExpired,
		Day:            day,
		At:             time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	j, err := Open(path, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestAppendAndReplay(t *testing.T) {
	j, _ := openTemp(t)

	for i := 1; i <= 3; i++ {
		rec, err := j.Append(sampleEvent("job", i))
		require.NoError(t, err)
		assert.Equal(t, uint64(i), rec.Seq)
	}

	var seen []Record
	require.NoError(t, j.Replay(func(r Record) error {
		seen = append(seen, r)
		return nil
	}))
	require.Len(t, seen, 3)
	assert.Equal(t, 2, seen[1].Event.Day)
	assert.Equal(t, events.ReasonAutoExpired, seen[2].Event.Reason)
}

func TestReopenResumesSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	j, err := Open(path, false)
	require.NoError(t, err)
	_, err = j.Append(sampleEvent("a", 1))
	require.NoError(t, err)
	_, err = j.Append(sampleEvent("b", 2))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	again, err := Open(path, false)
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, uint64(2), again.LastSeq())

	rec, err := again.Append(sampleEvent("c", 3))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rec.Seq)
}

func TestTail(t *testing.T) {
	j, _ := openTemp(t)
	for i := 1; i <= 5; i++ {
		require.NoError(t, j.Handle(sampleEvent("job", i)))
	}

	tail, err := j.Tail(2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, uint64(4), tail[0].Seq)
	assert.Equal(t, uint64(5), tail[1].Seq)

	all, err := j.Tail(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestReplayDetectsTampering(t *testing.T) {
	j, path := openTemp(t)
	_, err := j.Append(sampleEvent("job-1", 16))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(raw), `"day":16`, `"day":61`, 1)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0o644))

	err = j.Replay(func(Record) error { return nil })
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
}

func TestReplayDetectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0o644))

	_, err := Open(path, false)
	assert.True(t, errors.Is(err, ErrCorrupted))
}

func TestReplayStopsOnHandlerError(t *testing.T) {
	j, _ := openTemp(t)
	for i := 0; i < 3; i++ {
		_, err := j.Append(sampleEvent("job", i))
		require.NoError(t, err)
	}

	calls := 0
	err := j.Replay(func(Record) error {
		calls++
		return errors.New("stop")
	})
	assert.EqualError(t, err, "stop")
	assert.Equal(t, 1, calls)
}

func TestRotateKeepsSequence(t *testing.T) {
	j, _ := openTemp(t)
	_, err := j.Append(sampleEvent("a", 1))
	require.NoError(t, err)

	archive, err := j.Rotate()
	require.NoError(t, err)

	rec, err := j.Append(sampleEvent("b", 2))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rec.Seq)

	current, err := j.Tail(0)
	require.NoError(t, err)
	require.Len(t, current, 1)

	var archived []Record
	require.NoError(t, ReplayArchive(archive, func(r Record) error {
		archived = append(archived, r)
		return nil
	}))
	require.Len(t, archived, 1)
	assert.Equal(t, types.JobID("a"), archived[0].Event.JobID)
}

func TestAppendAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	j, err := Open(path, false)
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	_, err = j.Append(sampleEvent("a", 1))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestChecksumCoversSequence(t *testing.T) {
	e := sampleEvent("a", 1)
	a, err := Checksum(1, e)
	require.NoError(t, err)
	b, err := Checksum(2, e)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
