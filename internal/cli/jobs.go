package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ChuLiYu/questboard/internal/board"
	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/query"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// ============================================================================
// post / export
// ============================================================================

// exportedJob is one entry of an export file. The embedded draft makes the
// file importable again with `questboard post -f`.
type exportedJob struct {
	ID          types.JobID     `yaml:"id"`
	Status      types.JobStatus `yaml:"status"`
	board.Draft `yaml:",inline"`
}

// readDrafts decodes a YAML file holding either one draft or a list of them.
func readDrafts(path string) ([]board.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read job file")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.Mark(errors.Newf("%s is empty", path), errors.ErrValidation)
	}

	if data[0] == '-' || data[0] == '[' {
		var drafts []board.Draft
		if err := yaml.Unmarshal(data, &drafts); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
		return drafts, nil
	}
	var d board.Draft
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return []board.Draft{d}, nil
}

func buildPostCommand(s *session) *cobra.Command {
	var (
		jobFile string
		draft   board.Draft
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post jobs to the board",
		Long: `Post one job from flags, or import drafts from a YAML file.

A file holds a single draft or a list of drafts:

  - title: Clear the cellar
    location: Millbrook
    duration_availability: 5
    duration_completion: 3
    reward_funds: 40
    reputation_impacts:
      - {target_type: NPC, target_entity: Innkeeper, value: 2, condition: OnSuccess}`,
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			drafts := []board.Draft{draft}
			if jobFile != "" {
				var err error
				if drafts, err = readDrafts(jobFile); err != nil {
					return err
				}
			}
			return postDrafts(ctx, cmd, app, drafts)
		}),
	}

	cmd.Flags().StringVarP(&jobFile, "file", "f", "", "YAML file containing job drafts")
	cmd.Flags().StringVar(&draft.Title, "title", "", "job title")
	cmd.Flags().StringVar(&draft.Location, "location", "", "where the job is posted")
	cmd.Flags().StringVar(&draft.Questgiver, "questgiver", "", "who offers the job")
	cmd.Flags().IntVar(&draft.DurationAvailability, "availability", 0, "days the posting stays open (0 = unlimited)")
	cmd.Flags().IntVar(&draft.DurationCompletion, "completion", 0, "days to finish once taken (0 = unlimited)")
	cmd.Flags().Float64Var(&draft.RewardFunds, "funds", 0, "gold reward")
	cmd.Flags().Float64Var(&draft.RewardXP, "xp", 0, "experience reward")
	cmd.Flags().BoolVar(&draft.HideFromPlayers, "hidden", false, "hide the job from players")
	cmd.MarkFlagsOneRequired("file", "title")
	cmd.MarkFlagsMutuallyExclusive("file", "title")

	return cmd
}

func postDrafts(ctx context.Context, cmd *cobra.Command, app *App, drafts []board.Draft) error {
	w := cmd.OutOrStdout()
	posted := 0
	for i, d := range drafts {
		job, err := app.Board.Post(ctx, d)
		if err != nil {
			if posted > 0 {
				warning(w, fmt.Sprintf("stopped after posting %d job(s)", posted))
			}
			return errors.Wrapf(err, "draft %d (%q)", i+1, d.Title)
		}
		posted++
		success(w, "Posted %s %q", shortID(job.ID), job.Title)
	}
	return nil
}

func buildExportCommand(s *session) *cobra.Command {
	var (
		outFile  string
		archived bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write jobs to a YAML file",
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			jobs, err := app.Board.List(ctx, archived)
			if err != nil {
				return err
			}
			out := make([]exportedJob, 0, len(jobs))
			for _, job := range jobs {
				out = append(out, exportedJob{ID: job.ID, Status: job.Status, Draft: board.DraftOf(job)})
			}
			data, err := yaml.Marshal(out)
			if err != nil {
				return errors.Wrap(err, "encode jobs")
			}
			if err := os.WriteFile(outFile, data, 0o644); err != nil {
				return errors.Wrap(err, "write export file")
			}
			success(cmd.OutOrStdout(), "Exported %d job(s) to %s", len(out), outFile)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&outFile, "file", "f", "", "output YAML file")
	cmd.Flags().BoolVar(&archived, "archived", true, "include archived jobs")
	cmd.MarkFlagRequired("file")
	return cmd
}

// ============================================================================
// list / show
// ============================================================================

func buildListCommand(s *session) *cobra.Command {
	var (
		statuses   []string
		locations  []string
		search     string
		archived   bool
		playerView bool
		sortBy     string
		desc       bool
		groupBy    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs on the board",
		Long: `List jobs, filtered, sorted and grouped.

Sort fields: postdate, title, status, location, daysremaining
Group by:    none, status, location`,
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			opts, err := listOptions(statuses, locations, search, archived, playerView, sortBy, desc, groupBy)
			if err != nil {
				return err
			}
			groups, day, err := app.Board.Query(ctx, opts)
			if err != nil {
				return err
			}
			return renderGroups(cmd.OutOrStdout(), groups, day)
		}),
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "only these statuses (repeatable)")
	cmd.Flags().StringSliceVar(&locations, "location", nil, "only these locations (repeatable)")
	cmd.Flags().StringVar(&search, "search", "", "text in title, questgiver or location")
	cmd.Flags().BoolVar(&archived, "archived", false, "include archived jobs")
	cmd.Flags().BoolVar(&playerView, "players", false, "player view: leave out hidden jobs")
	cmd.Flags().StringVar(&sortBy, "sort", "postdate", "sort field")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().StringVar(&groupBy, "group", "none", "group jobs")
	return cmd
}

func listOptions(statuses, locations []string, search string, archived, playerView bool,
	sortBy string, desc bool, groupBy string) (query.Options, error) {
	f := query.DefaultFilters()
	sts, err := query.ParseStatuses(statuses)
	if err != nil {
		return query.Options{}, err
	}
	f.Statuses = sts
	f.Locations = locations
	f.SearchText = search
	f.IncludeArchived = archived
	f.IncludeHidden = !playerView

	field, err := query.ParseSortField(sortBy)
	if err != nil {
		return query.Options{}, err
	}
	dir := query.Ascending
	if desc {
		dir = query.Descending
	}
	group, err := query.ParseGroupField(groupBy)
	if err != nil {
		return query.Options{}, err
	}
	return query.Options{
		Filters: f,
		Sort:    query.SortSpec{Field: field, Direction: dir},
		GroupBy: group,
	}, nil
}

func buildShowCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			id, err := resolveID(ctx, app, args[0])
			if err != nil {
				return err
			}
			job, err := app.Board.Get(ctx, id)
			if err != nil {
				return err
			}
			day, err := app.Board.Today(ctx)
			if err != nil {
				return err
			}
			return renderJob(cmd.OutOrStdout(), job, day)
		}),
	}
}

// ============================================================================
// transitions and flags
// ============================================================================

var transitionTargets = map[string]types.JobStatus{
	"take":     types.StatusTaken,
	"complete": types.StatusCompleted,
	"fail":     types.StatusFailed,
	"cancel":   types.StatusCancelled,
}

func buildTransitionCommand(s *session, name, short string) *cobra.Command {
	target := transitionTargets[name]
	return &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			id, err := resolveID(ctx, app, args[0])
			if err != nil {
				return err
			}
			job, err := app.Board.Transition(ctx, board.TransitionRequest{JobID: id, Target: target})
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "%s %q is now %s", shortID(job.ID), job.Title, job.Status)
			return nil
		}),
	}
}

func buildFlagCommand(s *session, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			id, err := resolveID(ctx, app, args[0])
			if err != nil {
				return err
			}
			var job types.Job
			switch name {
			case "archive", "unarchive":
				job, err = app.Board.SetArchived(ctx, id, name == "archive")
			case "hide", "reveal":
				job, err = app.Board.SetHidden(ctx, id, name == "hide")
			default:
				return errors.Newf("unknown flag command %q", name)
			}
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "%s %q: %s", shortID(job.ID), job.Title, name)
			return nil
		}),
	}
}

func buildDeleteCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a job from the board",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			id, err := resolveID(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Board.Delete(ctx, id); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Deleted %s", shortID(id))
			return nil
		}),
	}
}
