package query

import (
	"strings"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/pkg/types"
)

var sortFields = []SortField{SortPostDate, SortTitle, SortStatus, SortLocation, SortDaysRemaining}

// ParseSortField matches a sort field name case-insensitively. Empty input
// selects PostDate.
func ParseSortField(s string) (SortField, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortPostDate, nil
	}
	norm := strings.NewReplacer("-", "", "_", "").Replace(s)
	for _, f := range sortFields {
		if strings.EqualFold(string(f), norm) {
			return f, nil
		}
	}
	return "", errors.WithHint(
		errors.Newf("unknown sort field %q", s),
		"valid fields: PostDate, Title, Status, Location, DaysRemaining",
	)
}

// ParseDirection accepts asc/ascending and desc/descending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return "", errors.Newf("unknown sort direction %q", s)
}

// ParseGroupField matches a group field name case-insensitively. Empty input
// selects None.
func ParseGroupField(s string) (GroupField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return GroupNone, nil
	case "status":
		return GroupStatus, nil
	case "location":
		return GroupLocation, nil
	}
	return "", errors.WithHint(
		errors.Newf("unknown group field %q", s),
		"valid fields: None, Status, Location",
	)
}

// ParseStatuses parses a list of status names.
func ParseStatuses(names []string) ([]types.JobStatus, error) {
	out := make([]types.JobStatus, 0, len(names))
	for _, n := range names {
		st, ok := types.ParseStatus(n)
		if !ok {
			return nil, errors.WithHint(
				errors.Newf("unknown status %q", n),
				"valid statuses: Posted, Taken, Completed, Failed, Expired, Cancelled",
			)
		}
		out = append(out, st)
	}
	return out, nil
}
