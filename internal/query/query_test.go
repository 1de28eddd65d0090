package query

import (
	"testing"

	"github.com/ChuLiYu/questboard/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(jobs []types.Job) []types.JobID {
	out := make([]types.JobID, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.ID)
	}
	return out
}

func board() []types.Job {
	return []types.Job{
		{ID: "a", Title: "Ferry the pilgrims", Questgiver: "Abbot Tull", Location: "Saltmarsh", Status: types.StatusPosted, PostDate: 3, DurationAvailability: 10},
		{ID: "b", Title: "Clear the cellar", Questgiver: "Ferryman Oskar", Location: "Riverford", Status: types.StatusPosted, PostDate: 1, DurationAvailability: 2},
		{ID: "c", Title: "Escort the caravan", Questgiver: "Merchant Ila", Location: "FERRY crossing", Status: types.StatusTaken, PostDate: 2, TakenDate: types.Day(4), DurationCompletion: 5},
		{ID: "d", Title: "Hunt the wyvern", Questgiver: "Captain Rook", Location: "Riverford", Status: types.StatusPosted, PostDate: 5},
		{ID: "e", Title: "Ferry crossing repairs", Location: "Saltmarsh", Status: types.StatusCompleted, PostDate: 4, Archived: true},
		{ID: "f", Title: "Secret meeting", Location: "", Status: types.StatusPosted, PostDate: 6, DurationAvailability: 1, HideFromPlayers: true},
	}
}

func TestFilterScenarioStatusAndSearch(t *testing.T) {
	f := DefaultFilters()
	f.Statuses = []types.JobStatus{types.StatusPosted}
	f.SearchText = "ferry"

	got := Filter(board(), f)
	assert.Equal(t, []types.JobID{"a", "b"}, ids(got))
}

func TestFilterSearchCoversLocation(t *testing.T) {
	got := Filter(board(), Filters{SearchText: "  Ferry ", IncludeHidden: true})
	assert.Equal(t, []types.JobID{"a", "b", "c"}, ids(got))
}

func TestFilterArchivedAndHidden(t *testing.T) {
	assert.NotContains(t, ids(Filter(board(), DefaultFilters())), types.JobID("e"))

	withArchived := DefaultFilters()
	withArchived.IncludeArchived = true
	assert.Contains(t, ids(Filter(board(), withArchived)), types.JobID("e"))

	players := Filters{}
	assert.NotContains(t, ids(Filter(board(), players)), types.JobID("f"))
}

func TestFilterLocations(t *testing.T) {
	got := Filter(board(), Filters{Locations: []string{"riverford"}, IncludeHidden: true})
	assert.Equal(t, []types.JobID{"b", "d"}, ids(got))
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	in := board()
	_ = Filter(in, Filters{Statuses: []types.JobStatus{types.StatusTaken}})
	assert.Equal(t, board(), in)
}

func TestSortPostDate(t *testing.T) {
	in := Filter(board(), DefaultFilters())
	asc := Sort(in, SortSpec{Field: SortPostDate, Direction: Ascending}, 0)
	assert.Equal(t, []types.JobID{"b", "c", "a", "d", "f"}, ids(asc))

	desc := Sort(in, SortSpec{Field: SortPostDate, Direction: Descending}, 0)
	assert.Equal(t, []types.JobID{"f", "d", "a", "c", "b"}, ids(desc))
}

func TestSortStatusCanonicalOrder(t *testing.T) {
	in := []types.Job{
		{ID: "1", Status: types.StatusCancelled},
		{ID: "2", Status: types.StatusTaken},
		{ID: "3", Status: types.StatusPosted},
		{ID: "4", Status: types.StatusExpired},
	}
	got := Sort(in, SortSpec{Field: SortStatus}, 0)
	assert.Equal(t, []types.JobID{"3", "2", "4", "1"}, ids(got))
}

func TestSortIsStable(t *testing.T) {
	in := []types.Job{
		{ID: "1", Title: "Same"},
		{ID: "2", Title: "Same"},
		{ID: "3", Title: "Alpha"},
	}
	got := Sort(in, SortSpec{Field: SortTitle, Direction: Ascending}, 0)
	assert.Equal(t, []types.JobID{"3", "1", "2"}, ids(got))

	desc := Sort(in, SortSpec{Field: SortTitle, Direction: Descending}, 0)
	assert.Equal(t, []types.JobID{"2", "1", "3"}, ids(desc), "descending reverses the ascending order")
}

func TestSortDaysRemainingUnlimitedLast(t *testing.T) {
	// day 5: a expires 13 -> 8, b expires 3 -> -2, c deadline 9 -> 4, d unlimited, f expires 7 -> 2
	in := Filter(board(), DefaultFilters())

	asc := Sort(in, SortSpec{Field: SortDaysRemaining, Direction: Ascending}, 5)
	assert.Equal(t, []types.JobID{"b", "f", "c", "a", "d"}, ids(asc))

	desc := Sort(in, SortSpec{Field: SortDaysRemaining, Direction: Descending}, 5)
	assert.Equal(t, []types.JobID{"a", "c", "f", "b", "d"}, ids(desc))
}

func TestSortUsesDeadlineOnceTaken(t *testing.T) {
	taken := types.Job{ID: "t", Status: types.StatusTaken, PostDate: 0, DurationAvailability: 1, TakenDate: types.Day(0), DurationCompletion: 20}
	posted := types.Job{ID: "p", Status: types.StatusPosted, PostDate: 0, DurationAvailability: 5}

	got := Sort([]types.Job{taken, posted}, SortSpec{Field: SortDaysRemaining}, 2)
	assert.Equal(t, []types.JobID{"p", "t"}, ids(got))
}

func TestSortDaysRemainingWithoutIDs(t *testing.T) {
	far := types.Job{Title: "far", Status: types.StatusPosted, DurationAvailability: 20}
	near := types.Job{Title: "near", Status: types.StatusPosted, DurationAvailability: 2}
	open := types.Job{Title: "open", Status: types.StatusPosted}

	titles := func(jobs []types.Job) []string {
		out := make([]string, 0, len(jobs))
		for _, j := range jobs {
			out = append(out, j.Title)
		}
		return out
	}

	asc := Sort([]types.Job{far, open, near}, SortSpec{Field: SortDaysRemaining, Direction: Ascending}, 0)
	assert.Equal(t, []string{"near", "far", "open"}, titles(asc))

	desc := Sort([]types.Job{far, open, near}, SortSpec{Field: SortDaysRemaining, Direction: Descending}, 0)
	assert.Equal(t, []string{"far", "near", "open"}, titles(desc))
}

func TestGroupNone(t *testing.T) {
	groups := GroupJobs(board()[:2], GroupNone)
	require.Len(t, groups, 1)
	assert.Equal(t, AllJobsLabel, groups[0].Label)
	assert.Len(t, groups[0].Jobs, 2)

	empty := GroupJobs(nil, GroupNone)
	require.Len(t, empty, 1)
	assert.Empty(t, empty[0].Jobs)
}

func TestGroupStatusCanonicalOrder(t *testing.T) {
	in := []types.Job{
		{ID: "1", Status: types.StatusCompleted},
		{ID: "2", Status: types.StatusPosted},
		{ID: "3", Status: types.StatusCompleted},
		{ID: "4", Status: types.StatusTaken},
	}
	groups := GroupJobs(in, GroupStatus)
	require.Len(t, groups, 3)
	assert.Equal(t, "Posted", groups[0].Label)
	assert.Equal(t, "Taken", groups[1].Label)
	assert.Equal(t, "Completed", groups[2].Label)
	assert.Equal(t, []types.JobID{"1", "3"}, ids(groups[2].Jobs))
}

func TestGroupLocationFirstSeen(t *testing.T) {
	groups := GroupJobs(Filter(board(), DefaultFilters()), GroupLocation)
	labels := make([]string, 0, len(groups))
	for _, g := range groups {
		labels = append(labels, g.Label)
	}
	assert.Equal(t, []string{"Saltmarsh", "Riverford", "FERRY crossing", UnknownLocationLabel}, labels)
	assert.Equal(t, []types.JobID{"b", "d"}, ids(groups[1].Jobs))
}

func TestRunPipeline(t *testing.T) {
	opts := Options{
		Filters: Filters{Statuses: []types.JobStatus{types.StatusPosted}, IncludeHidden: true},
		Sort:    SortSpec{Field: SortDaysRemaining, Direction: Ascending},
		GroupBy: GroupLocation,
	}
	groups := Run(board(), opts, 5)
	assert.Equal(t, []types.JobID{"b", "d", "f", "a"}, ids(Flatten(groups)))
	assert.Equal(t, "Riverford", groups[0].Label)
}

func TestParseHelpers(t *testing.T) {
	f, err := ParseSortField("days-remaining")
	require.NoError(t, err)
	assert.Equal(t, SortDaysRemaining, f)

	f, err = ParseSortField("")
	require.NoError(t, err)
	assert.Equal(t, SortPostDate, f)

	_, err = ParseSortField("reward")
	assert.Error(t, err)

	d, err := ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Descending, d)

	g, err := ParseGroupField("Location")
	require.NoError(t, err)
	assert.Equal(t, GroupLocation, g)

	st, err := ParseStatuses([]string{"posted", "Taken"})
	require.NoError(t, err)
	assert.Equal(t, []types.JobStatus{types.StatusPosted, types.StatusTaken}, st)

	_, err = ParseStatuses([]string{"lost"})
	assert.Error(t, err)
}
