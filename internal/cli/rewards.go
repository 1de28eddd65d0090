package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ChuLiYu/questboard/internal/rewards"
	"github.com/ChuLiYu/questboard/pkg/types"
)

func renderResult(w io.Writer, res rewards.Result) error {
	data := pterm.TableData{
		{"Reward", "Amount"},
		{"Gold", fmt.Sprintf("%g", res.Gold)},
		{"XP", fmt.Sprintf("%g", res.XP)},
		{"Items", formatItems(res.Items)},
	}
	if err := renderTable(w, data); err != nil {
		return err
	}
	if len(res.ReputationImpacts) > 0 {
		if err := renderImpacts(w, res.ReputationImpacts); err != nil {
			return err
		}
	}
	for _, msg := range res.Warnings {
		warning(w, msg)
	}
	return nil
}

func buildRewardsCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "rewards <id>",
		Short: "Preview the payout of a resolved job",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			id, err := resolveID(ctx, app, args[0])
			if err != nil {
				return err
			}
			res, review, err := app.Board.Rewards(ctx, id)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			section(w, fmt.Sprintf("Rewards for %s (%s)", shortID(id), res.Status))
			if err := renderResult(w, res); err != nil {
				return err
			}
			if review {
				pterm.Info.WithWriter(w).Println("GM review suggested before distributing these rewards")
			}
			return nil
		}),
	}
}

func buildDistributeCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "distribute <id>",
		Short: "Pay out the rewards of a completed or failed job",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			id, err := resolveID(ctx, app, args[0])
			if err != nil {
				return err
			}
			res, err := app.Board.DistributeRewards(ctx, id)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if err := renderResult(w, res); err != nil {
				return err
			}
			success(w, "Rewards for %s distributed", shortID(id))
			return nil
		}),
	}
}

func buildStatusCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show board status",
		Long:  "Display the current day, job statistics, the party ledger and reputation standings",
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			return showStatus(ctx, cmd.OutOrStdout(), app)
		}),
	}
}

func showStatus(ctx context.Context, w io.Writer, app *App) error {
	day, err := app.Calendar.CurrentDay(ctx)
	if err != nil {
		return err
	}
	stats, err := app.Store.Stats(ctx)
	if err != nil {
		return err
	}
	balance, err := app.Store.Balance(ctx)
	if err != nil {
		return err
	}
	standings, err := app.Store.Standings(ctx)
	if err != nil {
		return err
	}

	section(w, "Board")
	fmt.Fprintf(w, "Day:      %d\n", day)
	fmt.Fprintf(w, "Storage:  %s (%s)\n", app.Config.Storage.Driver, app.Config.Storage.Path)
	if app.Journal != nil {
		fmt.Fprintf(w, "Journal:  %s (seq %d)\n", app.Journal.Path(), app.Journal.LastSeq())
	}

	section(w, fmt.Sprintf("Jobs (%d)", stats.Total()))
	data := pterm.TableData{{"Status", "Count"}}
	for _, st := range types.AllStatuses {
		data = append(data, []string{string(st), fmt.Sprintf("%d", stats[st])})
	}
	if err := renderTable(w, data); err != nil {
		return err
	}

	section(w, "Party ledger")
	fmt.Fprintf(w, "Gold: %g\nXP:   %g\n", balance.Funds, balance.XP)
	if len(balance.Items) > 0 {
		items := pterm.TableData{{"Item", "Quantity"}}
		for _, name := range sortedKeys(balance.Items) {
			items = append(items, []string{name, fmt.Sprintf("%d", balance.Items[name])})
		}
		if err := renderTable(w, items); err != nil {
			return err
		}
	}

	section(w, "Reputation")
	if len(standings) == 0 {
		fmt.Fprintln(w, "No reputation changes yet.")
		return nil
	}
	rep := pterm.TableData{{"Target", "Entity", "Standing"}}
	for _, st := range standings {
		rep = append(rep, []string{string(st.TargetType), st.TargetEntity, fmt.Sprintf("%+d", st.Value)})
	}
	return renderTable(w, rep)
}
