package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/expiration"
	"github.com/ChuLiYu/questboard/internal/query"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// shortIDLen is how much of a UUID the tables show.
const shortIDLen = 8

func shortID(id types.JobID) string {
	s := string(id)
	if len(s) > shortIDLen {
		return s[:shortIDLen]
	}
	return s
}

// resolveID accepts a full job id or a unique prefix of one.
func resolveID(ctx context.Context, app *App, arg string) (types.JobID, error) {
	id := types.JobID(strings.TrimSpace(arg))
	if _, err := app.Board.Get(ctx, id); err == nil {
		return id, nil
	} else if !errors.IsNotFoundError(err) {
		return "", err
	}

	jobs, err := app.Board.List(ctx, true)
	if err != nil {
		return "", err
	}
	var matches []types.JobID
	for _, job := range jobs {
		if strings.HasPrefix(string(job.ID), string(id)) {
			matches = append(matches, job.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", errors.NotFound("job %s not found", arg)
	case 1:
		return matches[0], nil
	default:
		return "", errors.WithHint(
			errors.Mark(errors.Newf("job prefix %q is ambiguous (%d matches)", arg, len(matches)), errors.ErrValidation),
			"type more characters of the id")
	}
}

func success(w io.Writer, format string, args ...any) {
	pterm.Success.WithWriter(w).Println(fmt.Sprintf(format, args...))
}

func warning(w io.Writer, msg string) {
	pterm.Warning.WithWriter(w).Println(msg)
}

func section(w io.Writer, title string) {
	pterm.DefaultSection.WithWriter(w).Println(title)
}

func renderTable(w io.Writer, data pterm.TableData) error {
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}

// remaining describes the open window of a job; resolved jobs show a dash.
func remaining(job types.Job, day int) string {
	if !job.Status.IsOpen() {
		return "-"
	}
	return expiration.Describe(job, day)
}

func flags(job types.Job) string {
	var f []string
	if job.Archived {
		f = append(f, "archived")
	}
	if job.HideFromPlayers {
		f = append(f, "hidden")
	}
	if job.RewardsDistributed {
		f = append(f, "paid")
	}
	return strings.Join(f, ",")
}

func renderGroups(w io.Writer, groups []query.Group, day int) error {
	if len(groups) == 0 || len(query.Flatten(groups)) == 0 {
		pterm.Info.WithWriter(w).Println("No jobs match.")
		return nil
	}
	for _, g := range groups {
		section(w, fmt.Sprintf("%s (%d)", g.Label, len(g.Jobs)))
		data := pterm.TableData{{"ID", "Title", "Status", "Location", "Posted", "Remaining", "Flags"}}
		for _, job := range g.Jobs {
			data = append(data, []string{
				shortID(job.ID),
				job.Title,
				string(job.Status),
				job.Location,
				fmt.Sprintf("day %d", job.PostDate),
				remaining(job, day),
				flags(job),
			})
		}
		if err := renderTable(w, data); err != nil {
			return err
		}
	}
	return nil
}

func optionalDay(d *int) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("day %d", *d)
}

func window(days int) string {
	if days <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d day(s)", days)
}

func renderJob(w io.Writer, job types.Job, day int) error {
	section(w, job.Title)
	data := pterm.TableData{
		{"Field", "Value"},
		{"ID", string(job.ID)},
		{"Status", string(job.Status)},
		{"Questgiver", job.Questgiver},
		{"Location", job.Location},
		{"Posted", fmt.Sprintf("day %d", job.PostDate)},
		{"Taken", optionalDay(job.TakenDate)},
		{"Resolved", optionalDay(job.ResolvedDate)},
		{"Availability", window(job.DurationAvailability)},
		{"Completion", window(job.DurationCompletion)},
		{"Remaining", remaining(job, day)},
		{"Funds", fmt.Sprintf("%g", job.RewardFunds)},
		{"XP", fmt.Sprintf("%g", job.RewardXP)},
		{"Items", formatItems(job.RewardItems)},
		{"Flags", flags(job)},
	}
	if err := renderTable(w, data); err != nil {
		return err
	}
	if job.Description != "" {
		fmt.Fprintln(w, job.Description)
	}
	if len(job.ReputationImpacts) > 0 {
		if err := renderImpacts(w, job.ReputationImpacts); err != nil {
			return err
		}
	}
	if job.NarrativeConsequence != "" {
		fmt.Fprintf(w, "Consequence: %s\n", job.NarrativeConsequence)
	}
	if job.Notes != "" {
		fmt.Fprintf(w, "GM notes: %s\n", job.Notes)
	}
	return nil
}

func formatItems(items []types.RewardItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", it.Quantity, it.Item))
	}
	return strings.Join(parts, ", ")
}

func renderImpacts(w io.Writer, impacts []types.ReputationImpact) error {
	data := pterm.TableData{{"Target", "Entity", "Value", "When"}}
	for _, imp := range impacts {
		data = append(data, []string{
			string(imp.TargetType),
			imp.TargetEntity,
			fmt.Sprintf("%+d", imp.Value),
			string(imp.Condition),
		})
	}
	return renderTable(w, data)
}
