package cli

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ChuLiYu/questboard/internal/calendar"
)

func buildAdvanceCommand(s *session) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Advance the in-world calendar and run the expiration sweep",
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			ev, err := app.Calendar.Advance(ctx, days)
			reportAdvance(cmd, ev)
			return err
		}),
	}

	cmd.Flags().IntVarP(&days, "days", "d", 1, "number of days to advance")
	return cmd
}

func buildDayCommand(s *session) *cobra.Command {
	var set int

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Show or correct the in-world day",
		Long: `Without flags, print the current day.

--set moves the calendar to an absolute day. Moving forward runs the
expiration sweep like advance; moving backward only corrects the day.`,
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			if !cmd.Flags().Changed("set") {
				day, err := app.Calendar.CurrentDay(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Day %d\n", day)
				return nil
			}
			ev, err := app.Calendar.Set(ctx, set)
			if ev.To < ev.From {
				pterm.Warning.WithWriter(cmd.OutOrStdout()).Printfln(
					"Day moved back from %d to %d; no sweep was run", ev.From, ev.To)
				return err
			}
			reportAdvance(cmd, ev)
			return err
		}),
	}

	cmd.Flags().IntVar(&set, "set", 0, "set the current day")
	return cmd
}

func reportAdvance(cmd *cobra.Command, ev calendar.DayAdvanced) {
	if ev.To == 0 && ev.From == 0 {
		return
	}
	success(cmd.OutOrStdout(), "Day %d -> %d", ev.From, ev.To)
}
