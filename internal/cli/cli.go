// ============================================================================
// questboard CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Game-master console for the job board, built on Cobra
//
// Command Structure:
//   questboard                     # Root command
//   ├── post -f jobs.yaml          # Import job drafts
//   ├── list                       # Filter, sort and group the board
//   ├── show <id>                  # One job in detail
//   ├── take|complete|fail|cancel  # Manual status transitions
//   ├── archive|unarchive <id>     # Archive flag
//   ├── hide|reveal <id>           # Player visibility
//   ├── delete <id>                # Remove a job
//   ├── advance --days N           # Move the calendar, run the sweep
//   ├── day [--set N]              # Show or correct the in-world day
//   ├── rewards <id>               # Payout preview and review flag
//   ├── distribute <id>            # Pay out once
//   ├── history --tail N           # Replay the event journal
//   ├── export -f out.yaml         # Write drafts back out
//   ├── status                     # Stats, ledger and reputation
//   └── run                        # Metrics server + auto-advance
//
// Every command runs through session.run: it loads configuration (defaults,
// --config file, QUESTBOARD_* environment), opens storage and the journal,
// runs, and closes them again even when the command fails.
//
// Error Handling:
//   Errors are returned to Cobra; hints attached with errors.WithHint are
//   printed below the error by the main package.
//
// ============================================================================

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ChuLiYu/questboard/internal/config"
	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/logger"
)

// Version is the questboard release.
const Version = "1.0.0"

// session carries per-invocation state from the root command to its children.
type session struct {
	configFile string
	logLevel   string
	app        *App
}

func BuildCLI() *cobra.Command {
	s := &session{}

	rootCmd := &cobra.Command{
		Use:   "questboard",
		Short: "questboard: a job board for tabletop campaigns",
		Long: `questboard tracks quest postings through their lifecycle:
- Posted, Taken, Completed, Failed, Expired, Cancelled
- automatic expiration when the in-world calendar advances
- reward and reputation payouts
- SQLite or snapshot storage with an event journal`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&s.configFile, "config", "c", "", "config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "override log.level")

	rootCmd.AddCommand(
		buildPostCommand(s),
		buildListCommand(s),
		buildShowCommand(s),
		buildTransitionCommand(s, "take", "Mark a posted job as taken by the party"),
		buildTransitionCommand(s, "complete", "Resolve a taken job successfully"),
		buildTransitionCommand(s, "fail", "Resolve a taken job unsuccessfully"),
		buildTransitionCommand(s, "cancel", "Withdraw a posted job"),
		buildFlagCommand(s, "archive", "Move a job to the archive"),
		buildFlagCommand(s, "unarchive", "Bring a job back from the archive"),
		buildFlagCommand(s, "hide", "Hide a job from players"),
		buildFlagCommand(s, "reveal", "Show a hidden job to players"),
		buildDeleteCommand(s),
		buildAdvanceCommand(s),
		buildDayCommand(s),
		buildRewardsCommand(s),
		buildDistributeCommand(s),
		buildHistoryCommand(s),
		buildExportCommand(s),
		buildStatusCommand(s),
		buildRunCommand(s),
	)

	return rootCmd
}

// action is a command body running against an open App.
type action func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error

// run wraps fn so the App is opened before and closed after it.
func (s *session) run(fn action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := s.open(cmd); err != nil {
			return err
		}
		defer func() {
			err = errors.CombineErrors(err, s.close())
		}()
		return fn(cmd.Context(), cmd, args, s.app)
	}
}

func (s *session) open(cmd *cobra.Command) error {
	cfg, err := config.Load(s.configFile)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if s.logLevel != "" {
		cfg.Log.Level = s.logLevel
	}
	if err := logger.Initialize(cfg.Log.JSON, cfg.Log.Level); err != nil {
		return errors.Wrap(err, "initialize logger")
	}

	app, err := OpenApp(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	s.app = app
	return nil
}

func (s *session) close() error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	logger.Sync()
	return err
}
