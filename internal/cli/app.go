package cli

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ChuLiYu/questboard/internal/board"
	"github.com/ChuLiYu/questboard/internal/calendar"
	"github.com/ChuLiYu/questboard/internal/config"
	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/events"
	"github.com/ChuLiYu/questboard/internal/logger"
	"github.com/ChuLiYu/questboard/internal/metrics"
	"github.com/ChuLiYu/questboard/internal/notify"
	"github.com/ChuLiYu/questboard/internal/snapshot"
	"github.com/ChuLiYu/questboard/internal/storage/journal"
	"github.com/ChuLiYu/questboard/internal/storage/memory"
	"github.com/ChuLiYu/questboard/internal/storage/sqlite"
	"github.com/ChuLiYu/questboard/pkg/types"
)

// Backend is everything a storage driver provides: jobs, the calendar day,
// both ledgers and the read side the status command shows.
type Backend interface {
	board.Repository
	calendar.DayStore
	board.ReputationLedger
	board.PartyLedger

	Stats(ctx context.Context) (types.Stats, error)
	Standings(ctx context.Context) ([]types.Standing, error)
	History(ctx context.Context) ([]types.StandingChange, error)
	Balance(ctx context.Context) (types.LedgerData, error)
	Close() error
}

// App is one fully wired questboard instance.
//
// Wiring:
//
//	calendar.Advance -> board sweep -> bus -> journal, metrics
//	                                 -> notify (log + console)
type App struct {
	Config   *config.Config
	Store    Backend
	Bus      *events.Bus
	Journal  *journal.Journal
	Calendar *calendar.Calendar
	Board    *board.Board
	Metrics  *metrics.Collector
	Registry *prometheus.Registry

	logger      *zap.SugaredLogger
	unsubscribe []func()
}

type memoryBackend struct {
	*memory.Store
}

func (memoryBackend) Close() error { return nil }

func openBackend(cfg *config.Config, log *zap.SugaredLogger) (Backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		return sqlite.OpenStore(cfg.Storage.Path, log.Named("sqlite"))
	case config.DriverSnapshot:
		return snapshot.Open(cfg.Storage.Path, cfg.Storage.Backups)
	case config.DriverMemory:
		return memoryBackend{memory.New()}, nil
	default:
		return nil, errors.Newf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// OpenApp opens storage and the journal and wires every component. Console
// notifications go to out.
func OpenApp(cfg *config.Config, out io.Writer) (*App, error) {
	log := logger.Named("questboard")

	store, err := openBackend(cfg, log)
	if err != nil {
		return nil, errors.Wrap(err, "open storage")
	}

	a := &App{
		Config:   cfg,
		Store:    store,
		Bus:      events.NewBus(log.Named("events")),
		Registry: prometheus.NewRegistry(),
		logger:   log,
	}

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path, cfg.Journal.Sync)
		if err != nil {
			store.Close()
			return nil, errors.Wrap(err, "open journal")
		}
		a.Journal = j
		a.unsubscribe = append(a.unsubscribe, a.Bus.Subscribe("journal", j.Handle))
	}

	a.Metrics = metrics.NewCollector(a.Registry)
	a.unsubscribe = append(a.unsubscribe, a.Bus.Subscribe("metrics", a.Metrics.HandleEvent))

	sinks := notify.Multi{notify.LogSink{Logger: log.Named("notify")}}
	if cfg.Notifications.Console && out != nil {
		sinks = append(sinks, notify.NewConsoleSink(out))
	}

	a.Calendar = calendar.New(store,
		calendar.WithStartDay(cfg.Calendar.StartDay),
		calendar.WithLogger(log.Named("calendar")))

	a.Board, err = board.New(board.Deps{
		Repository: store,
		Clock:      a.Calendar,
		Publisher:  a.Bus,
		Notifier:   sinks,
		Reputation: store,
		Party:      store,
		Observer:   a.Metrics,
		Logger:     log.Named("board"),
	}, cfg.Board())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Calendar.OnAdvance(a.Board.Listener())
	return a, nil
}

// RefreshGauges updates the day and per-status gauges from storage.
func (a *App) RefreshGauges(ctx context.Context) error {
	day, err := a.Calendar.CurrentDay(ctx)
	if err != nil {
		return err
	}
	stats, err := a.Store.Stats(ctx)
	if err != nil {
		return errors.Persistence(err, "load job stats")
	}
	a.Metrics.SetCurrentDay(day)
	a.Metrics.UpdateJobStats(stats)
	return nil
}

// Close detaches subscribers and releases storage and the journal.
func (a *App) Close() error {
	for _, u := range a.unsubscribe {
		u()
	}
	a.unsubscribe = nil

	var err error
	if a.Journal != nil {
		err = errors.CombineErrors(err, a.Journal.Close())
	}
	if a.Store != nil {
		err = errors.CombineErrors(err, a.Store.Close())
	}
	return err
}
