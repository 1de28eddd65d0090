// Package query filters, sorts and groups job collections for presentation.
//
// All functions are pure and never mutate their input slices.
package query

import (
	"sort"
	"strings"

	"github.com/ChuLiYu/questboard/internal/expiration"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// ============================================================================
// Filtering
// ============================================================================

// Filters are AND-combined; a zero value field does not constrain the result.
type Filters struct {
	Statuses        []types.JobStatus
	Locations       []string
	IncludeArchived bool
	IncludeHidden   bool
	SearchText      string
}

// DefaultFilters is the game-master view: hidden jobs shown, archived jobs not.
func DefaultFilters() Filters {
	return Filters{IncludeHidden: true}
}

// Filter returns the jobs matching every predicate in f, in input order.
func Filter(jobs []types.Job, f Filters) []types.Job {
	statuses := make(map[types.JobStatus]struct{}, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses[s] = struct{}{}
	}
	locations := make(map[string]struct{}, len(f.Locations))
	for _, l := range f.Locations {
		locations[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	needle := strings.ToLower(strings.TrimSpace(f.SearchText))

	out := make([]types.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.Archived && !f.IncludeArchived {
			continue
		}
		if job.HideFromPlayers && !f.IncludeHidden {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[job.Status]; !ok {
				continue
			}
		}
		if len(locations) > 0 {
			if _, ok := locations[strings.ToLower(strings.TrimSpace(job.Location))]; !ok {
				continue
			}
		}
		if needle != "" && !matches(job, needle) {
			continue
		}
		out = append(out, job)
	}
	return out
}

func matches(job types.Job, needle string) bool {
	for _, field := range []string{job.Title, job.Questgiver, job.Location} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// ============================================================================
// Sorting
// ============================================================================

// SortField selects the sort key.
type SortField string

const (
	SortPostDate      SortField = "PostDate"
	SortTitle         SortField = "Title"
	SortStatus        SortField = "Status"
	SortLocation      SortField = "Location"
	SortDaysRemaining SortField = "DaysRemaining"
)

// Direction is the sort direction.
type Direction string

const (
	Ascending  Direction = "Ascending"
	Descending Direction = "Descending"
)

// SortSpec pairs a field with a direction.
type SortSpec struct {
	Field     SortField
	Direction Direction
}

// Sort orders jobs by spec. The ascending order is stable; descending is its
// exact reversal. Jobs without a boundary always go last when sorting by
// DaysRemaining, keeping their input order.
func Sort(jobs []types.Job, spec SortSpec, currentDay int) []types.Job {
	type keyed struct {
		job       types.Job
		remaining int
	}

	entries := make([]keyed, 0, len(jobs))
	var unbounded []types.Job
	for _, job := range jobs {
		e := keyed{job: job}
		if spec.Field == SortDaysRemaining {
			n, ok := expiration.DaysRemaining(job, currentDay)
			if !ok {
				unbounded = append(unbounded, job)
				continue
			}
			e.remaining = n
		}
		entries = append(entries, e)
	}

	var less func(a, b keyed) bool
	if spec.Field == SortDaysRemaining {
		less = func(a, b keyed) bool { return a.remaining < b.remaining }
	} else {
		byField := lessFunc(spec.Field)
		less = func(a, b keyed) bool { return byField(a.job, b.job) }
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return less(entries[a], entries[b])
	})

	sorted := make([]types.Job, 0, len(jobs))
	if spec.Direction == Descending {
		for i := len(entries) - 1; i >= 0; i-- {
			sorted = append(sorted, entries[i].job)
		}
	} else {
		for _, e := range entries {
			sorted = append(sorted, e.job)
		}
	}
	return append(sorted, unbounded...)
}

func lessFunc(field SortField) func(a, b types.Job) bool {
	switch field {
	case SortTitle:
		return func(a, b types.Job) bool { return a.Title < b.Title }
	case SortStatus:
		return func(a, b types.Job) bool { return a.Status.Index() < b.Status.Index() }
	case SortLocation:
		return func(a, b types.Job) bool { return a.Location < b.Location }
	default:
		return func(a, b types.Job) bool { return a.PostDate < b.PostDate }
	}
}

// ============================================================================
// Grouping
// ============================================================================

// GroupField selects how jobs are bucketed.
type GroupField string

const (
	GroupNone     GroupField = "None"
	GroupStatus   GroupField = "Status"
	GroupLocation GroupField = "Location"
)

const (
	AllJobsLabel         = "All Jobs"
	UnknownLocationLabel = "Unknown"
)

// Group is one labelled bucket of jobs.
type Group struct {
	Label string      `json:"label"`
	Jobs  []types.Job `json:"jobs"`
}

// GroupJobs buckets jobs by field, preserving their relative order inside
// each bucket. Status groups follow canonical status order; location groups
// follow first-seen order. Empty groups are omitted except for GroupNone.
func GroupJobs(jobs []types.Job, field GroupField) []Group {
	switch field {
	case GroupStatus:
		buckets := make(map[types.JobStatus][]types.Job)
		for _, job := range jobs {
			buckets[job.Status] = append(buckets[job.Status], job)
		}
		var groups []Group
		for _, st := range types.AllStatuses {
			if len(buckets[st]) > 0 {
				groups = append(groups, Group{Label: string(st), Jobs: buckets[st]})
			}
		}
		return groups

	case GroupLocation:
		index := make(map[string]int)
		var groups []Group
		for _, job := range jobs {
			label := strings.TrimSpace(job.Location)
			if label == "" {
				label = UnknownLocationLabel
			}
			i, ok := index[label]
			if !ok {
				i = len(groups)
				index[label] = i
				groups = append(groups, Group{Label: label})
			}
			groups[i].Jobs = append(groups[i].Jobs, job)
		}
		return groups

	default:
		return []Group{{Label: AllJobsLabel, Jobs: append([]types.Job(nil), jobs...)}}
	}
}

// ============================================================================
// Pipeline
// ============================================================================

// Options is a complete board query.
type Options struct {
	Filters Filters
	Sort    SortSpec
	GroupBy GroupField
}

// Run filters, sorts and groups jobs in that order.
func Run(jobs []types.Job, opts Options, currentDay int) []Group {
	return GroupJobs(Sort(Filter(jobs, opts.Filters), opts.Sort, currentDay), opts.GroupBy)
}

// Flatten concatenates the jobs of every group in order.
func Flatten(groups []Group) []types.Job {
	var out []types.Job
	for _, g := range groups {
		out = append(out, g.Jobs...)
	}
	return out
}
