package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

func newTestJob(id string, status types.JobStatus) types.Job {
	return types.Job{
		ID:                types.JobID(id),
		Title:             "job " + id,
		Status:            status,
		PostDate:          1,
		RewardItems:       []types.RewardItem{{Item: "Rope", Quantity: 1}},
		ReputationImpacts: []types.ReputationImpact{{TargetType: types.TargetNPC, TargetEntity: "Maren", Value: 2, Condition: types.OnSuccess}},
	}
}

// ============================================================================
// Unit Tests
// ============================================================================

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	job := newTestJob("a", types.StatusPosted)
	require.NoError(t, s.Save(ctx, job))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, job, got)
}

func TestGetMissing(t *testing.T) {
	_, err := New().Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSaveRejectsEmptyID(t *testing.T) {
	err := New().Save(context.Background(), types.Job{Title: "x"})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestStoreIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	s := New()
	job := newTestJob("a", types.StatusPosted)
	require.NoError(t, s.Save(ctx, job))

	job.RewardItems[0].Quantity = 99
	got, _ := s.Get(ctx, "a")
	assert.Equal(t, 1, got.RewardItems[0].Quantity)

	got.Title = "changed"
	again, _ := s.Get(ctx, "a")
	assert.Equal(t, "job a", again.Title)
}

func TestListAllOrderAndArchive(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Save(ctx, newTestJob(id, types.StatusPosted)))
	}
	archived := newTestJob("a", types.StatusPosted)
	archived.Archived = true
	require.NoError(t, s.Save(ctx, archived))

	open, err := s.ListAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, types.JobID("c"), open[0].ID)
	assert.Equal(t, types.JobID("b"), open[1].ID)

	all, err := s.ListAll(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, types.JobID("a"), all[1].ID, "upsert keeps insertion position")
}

func TestStatusIndexFollowsSaves(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Save(ctx, newTestJob("a", types.StatusPosted)))
	require.NoError(t, s.Save(ctx, newTestJob("b", types.StatusPosted)))

	taken := newTestJob("a", types.StatusTaken)
	taken.TakenDate = types.Day(2)
	require.NoError(t, s.Save(ctx, taken))

	assert.Equal(t, []types.JobID{"b"}, s.IDsWithStatus(types.StatusPosted))
	assert.Equal(t, []types.JobID{"a"}, s.IDsWithStatus(types.StatusTaken))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats[types.StatusPosted])
	assert.Equal(t, 1, stats[types.StatusTaken])
	assert.Equal(t, 2, stats.Total())
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Save(ctx, newTestJob("a", types.StatusPosted)))
	require.NoError(t, s.Delete(ctx, "a"))

	_, err := s.Get(ctx, "a")
	assert.True(t, errors.IsNotFoundError(err))
	assert.Empty(t, s.IDsWithStatus(types.StatusPosted))

	assert.True(t, errors.IsNotFoundError(s.Delete(ctx, "a")))
}

func TestDayStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, ok, err := s.LoadDay(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveDay(ctx, 42))
	day, ok, _ := s.LoadDay(ctx)
	assert.True(t, ok)
	assert.Equal(t, 42, day)
}

func TestLedgers(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Credit(ctx, types.Credit{JobID: "a", Gold: 50, XP: 100, Items: []types.RewardItem{{Item: "Rope", Quantity: 2}}}))
	require.NoError(t, s.Credit(ctx, types.Credit{JobID: "b", Gold: 25, Items: []types.RewardItem{{Item: "Rope", Quantity: 1}}}))

	bal, err := s.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 75.0, bal.Funds)
	assert.Equal(t, 100.0, bal.XP)
	assert.Equal(t, 3, bal.Items["Rope"])

	require.NoError(t, s.Apply(ctx, "a", 5, []types.ReputationImpact{
		{TargetType: types.TargetNPC, TargetEntity: "Maren", Value: 3, Condition: types.OnSuccess},
		{TargetType: types.TargetFaction, TargetEntity: "Watch", Value: -2, Condition: types.OnSuccess},
	}))
	require.NoError(t, s.Apply(ctx, "b", 6, []types.ReputationImpact{
		{TargetType: types.TargetNPC, TargetEntity: "Maren", Value: -1, Condition: types.OnExpiration},
	}))

	standings, err := s.Standings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Standing{
		{TargetType: types.TargetFaction, TargetEntity: "Watch", Value: -2},
		{TargetType: types.TargetNPC, TargetEntity: "Maren", Value: 2},
	}, standings)

	history, _ := s.History(ctx)
	assert.Len(t, history, 3)
	assert.Equal(t, 6, history[2].Day)
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"z", "y"} {
		require.NoError(t, s.Save(ctx, newTestJob(id, types.StatusPosted)))
	}
	require.NoError(t, s.SaveDay(ctx, 9))
	require.NoError(t, s.Credit(ctx, types.Credit{Gold: 10}))

	data := s.Snapshot()
	assert.Equal(t, SchemaVersion, data.SchemaVer)

	restored := New()
	require.NoError(t, restored.Restore(data))

	jobs, _ := restored.ListAll(ctx, true)
	require.Len(t, jobs, 2)
	assert.Equal(t, types.JobID("z"), jobs[0].ID)
	day, ok, _ := restored.LoadDay(ctx)
	assert.True(t, ok)
	assert.Equal(t, 9, day)
	bal, _ := restored.Balance(ctx)
	assert.Equal(t, 10.0, bal.Funds)
	assert.Equal(t, []types.JobID{"y", "z"}, restored.IDsWithStatus(types.StatusPosted))
}

func TestRestoreWithoutOrder(t *testing.T) {
	data := types.SnapshotData{Jobs: map[types.JobID]*types.Job{
		"b": {ID: "b", PostDate: 2, Status: types.StatusPosted},
		"a": {ID: "a", PostDate: 2, Status: types.StatusPosted},
		"c": {ID: "c", PostDate: 1, Status: types.StatusTaken},
	}}
	s := New()
	require.NoError(t, s.Restore(data))

	jobs, _ := s.ListAll(context.Background(), true)
	assert.Equal(t, types.JobID("c"), jobs[0].ID)
	assert.Equal(t, types.JobID("a"), jobs[1].ID)
}

func TestRestoreRejectsFutureSchema(t *testing.T) {
	err := New().Restore(types.SnapshotData{SchemaVer: SchemaVersion + 1})
	assert.Error(t, err)
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = s.Save(ctx, newTestJob(fmt.Sprintf("job-%03d", n), types.StatusPosted))
			_, _ = s.ListAll(ctx, false)
		}(i)
	}
	wg.Wait()

	stats, _ := s.Stats(ctx)
	assert.Equal(t, 50, stats[types.StatusPosted])
}
