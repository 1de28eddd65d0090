package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/events"
	"github.com/ChuLiYu/questboard/internal/storage/journal"
)

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func describeEvent(e events.Event) string {
	switch e.Type {
	case events.JobStatusChanged:
		return fmt.Sprintf("%s -> %s (%s)", e.PreviousStatus, e.NewStatus, e.Reason)
	case events.JobCreated:
		return "posted"
	case events.JobUpdated:
		return "edited"
	case events.JobDeleted:
		return "deleted"
	case events.JobRewardsDistributed:
		return "rewards distributed"
	default:
		return string(e.Type)
	}
}

func renderRecords(w io.Writer, records []journal.Record) error {
	if len(records) == 0 {
		pterm.Info.WithWriter(w).Println("Journal is empty.")
		return nil
	}
	data := pterm.TableData{{"Seq", "Day", "Job", "Title", "Event"}}
	for _, r := range records {
		data = append(data, []string{
			fmt.Sprintf("%d", r.Seq),
			fmt.Sprintf("%d", r.Event.Day),
			shortID(r.Event.JobID),
			r.Event.Title,
			describeEvent(r.Event),
		})
	}
	return renderTable(w, data)
}

func buildHistoryCommand(s *session) *cobra.Command {
	var (
		tail    int
		archive string
		rotate  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Replay the event journal",
		Long: `Print journal records, verifying each checksum.

--archive reads a rotated, gzip-compressed journal instead of the live one.
--rotate compresses the live journal after printing and starts a new one.`,
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			w := cmd.OutOrStdout()

			if archive != "" {
				var records []journal.Record
				if err := journal.ReplayArchive(archive, func(r journal.Record) error {
					records = append(records, r)
					return nil
				}); err != nil {
					return err
				}
				if tail > 0 && len(records) > tail {
					records = records[len(records)-tail:]
				}
				return renderRecords(w, records)
			}

			if app.Journal == nil {
				return errors.WithHint(
					errors.New("the event journal is disabled"),
					"set journal.enabled: true in the config file")
			}
			records, err := app.Journal.Tail(tail)
			if err != nil {
				return err
			}
			if err := renderRecords(w, records); err != nil {
				return err
			}

			if rotate {
				path, err := app.Journal.Rotate()
				if err != nil {
					return err
				}
				success(w, "Journal archived to %s", path)
			}
			return nil
		}),
	}

	cmd.Flags().IntVarP(&tail, "tail", "n", 20, "show only the last N records (0 = all)")
	cmd.Flags().StringVar(&archive, "archive", "", "read a rotated .gz journal")
	cmd.Flags().BoolVar(&rotate, "rotate", false, "archive the live journal after printing")
	return cmd
}
