package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/pkg/types"
)

const (
	jobUpsertQuery = `
		INSERT INTO jobs (id, title, status, location, post_date, archived, hidden, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			location = excluded.location,
			post_date = excluded.post_date,
			archived = excluded.archived,
			hidden = excluded.hidden,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP`

	jobGetQuery      = `SELECT data FROM jobs WHERE id = ?`
	jobListQuery     = `SELECT data FROM jobs ORDER BY rowid`
	jobListOpenQuery = `SELECT data FROM jobs WHERE archived = 0 ORDER BY rowid`
	jobDeleteQuery   = `DELETE FROM jobs WHERE id = ?`
	jobStatsQuery    = `SELECT status, COUNT(*) FROM jobs GROUP BY status`
	dayLoadQuery     = `SELECT current_day FROM calendar WHERE id = 1`
	daySaveQuery     = `INSERT INTO calendar (id, current_day) VALUES (1, ?) ON CONFLICT(id) DO UPDATE SET current_day = excluded.current_day`
	reputationInsert = `INSERT INTO reputation_changes (job_id, day, target_type, target_entity, value, cond) VALUES (?, ?, ?, ?, ?, ?)`
	standingsQuery   = `SELECT target_type, target_entity, SUM(value) FROM reputation_changes GROUP BY target_type, target_entity ORDER BY target_type, target_entity`
	historyQuery     = `SELECT job_id, day, target_type, target_entity, value, cond FROM reputation_changes ORDER BY id`
	creditInsert     = `INSERT INTO party_credits (job_id, day, gold, xp) VALUES (?, ?, ?, ?)`
	itemUpsert       = `INSERT INTO party_items (item, quantity) VALUES (?, ?) ON CONFLICT(item) DO UPDATE SET quantity = quantity + excluded.quantity`
	balanceQuery     = `SELECT COALESCE(SUM(gold), 0), COALESCE(SUM(xp), 0) FROM party_credits`
	itemsQuery       = `SELECT item, quantity FROM party_items ORDER BY item`
)

// Store is a SQLite-backed board repository, day store and ledger.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// New wraps an open, migrated database.
func New(db *sql.DB, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{db: db, logger: logger}
}

// OpenStore opens the database at path, migrates it and returns a Store.
func OpenStore(path string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := OpenWithMigrations(path, logger)
	if err != nil {
		return nil, errors.Persistence(err, "open sqlite store")
	}
	return New(db, logger), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ============================================================================
// Jobs
// ============================================================================

// ListAll returns jobs in insertion order.
func (s *Store) ListAll(ctx context.Context, includeArchived bool) ([]types.Job, error) {
	q := jobListOpenQuery
	if includeArchived {
		q = jobListQuery
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Persistence(err, "list jobs")
	}
	defer rows.Close()

	var jobs []types.Job
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Persistence(err, "scan job")
		}
		job, err := decodeJob(data)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence(err, "iterate jobs")
	}
	return jobs, nil
}

// Get returns one job or an error matching errors.ErrNotFound.
func (s *Store) Get(ctx context.Context, id types.JobID) (types.Job, error) {
	var data string
	err := s.db.QueryRowContext(ctx, jobGetQuery, string(id)).Scan(&data)
	if err == sql.ErrNoRows {
		return types.Job{}, errors.NotFound("job %s not found", id)
	}
	if err != nil {
		return types.Job{}, errors.Persistence(err, "get job")
	}
	return decodeJob(data)
}

// Save upserts job.
func (s *Store) Save(ctx context.Context, job types.Job) error {
	if job.ID == "" {
		return errors.Mark(errors.New("job has no id"), errors.ErrValidation)
	}
	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "encode job")
	}
	_, err = s.db.ExecContext(ctx, jobUpsertQuery,
		string(job.ID), job.Title, string(job.Status), job.Location, job.PostDate,
		job.Archived, job.HideFromPlayers, string(data))
	if err != nil {
		return errors.Persistence(err, "save job")
	}
	s.logger.Debugw("job saved", "job_id", string(job.ID), "status", string(job.Status))
	return nil
}

// Delete removes a job.
func (s *Store) Delete(ctx context.Context, id types.JobID) error {
	res, err := s.db.ExecContext(ctx, jobDeleteQuery, string(id))
	if err != nil {
		return errors.Persistence(err, "delete job")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Persistence(err, "delete job")
	}
	if n == 0 {
		return errors.NotFound("job %s not found", id)
	}
	return nil
}

// Stats counts jobs per status.
func (s *Store) Stats(ctx context.Context) (types.Stats, error) {
	rows, err := s.db.QueryContext(ctx, jobStatsQuery)
	if err != nil {
		return nil, errors.Persistence(err, "job stats")
	}
	defer rows.Close()

	stats := make(types.Stats, len(types.AllStatuses))
	for _, st := range types.AllStatuses {
		stats[st] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Persistence(err, "scan job stats")
		}
		stats[types.JobStatus(status)] = n
	}
	return stats, errors.Persistence(rows.Err(), "iterate job stats")
}

func decodeJob(data string) (types.Job, error) {
	var job types.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return types.Job{}, errors.Persistence(err, "decode job")
	}
	return job, nil
}

// ============================================================================
// Calendar
// ============================================================================

// LoadDay returns the stored day; ok is false before the first save.
func (s *Store) LoadDay(ctx context.Context) (int, bool, error) {
	var day int
	err := s.db.QueryRowContext(ctx, dayLoadQuery).Scan(&day)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Persistence(err, "load day")
	}
	return day, true, nil
}

// SaveDay stores the current day.
func (s *Store) SaveDay(ctx context.Context, day int) error {
	if _, err := s.db.ExecContext(ctx, daySaveQuery, day); err != nil {
		return errors.Persistence(err, "save day")
	}
	return nil
}

// ============================================================================
// Ledgers
// ============================================================================

// Apply records the impacts as standing changes in one transaction.
func (s *Store) Apply(ctx context.Context, jobID types.JobID, day int, impacts []types.ReputationImpact) error {
	if len(impacts) == 0 {
		return nil
	}
	return s.inTx(ctx, "apply reputation", func(tx *sql.Tx) error {
		for _, imp := range impacts {
			if _, err := tx.ExecContext(ctx, reputationInsert,
				string(jobID), day, string(imp.TargetType), imp.TargetEntity, imp.Value, string(imp.Condition)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Standings sums reputation per entity.
func (s *Store) Standings(ctx context.Context) ([]types.Standing, error) {
	rows, err := s.db.QueryContext(ctx, standingsQuery)
	if err != nil {
		return nil, errors.Persistence(err, "query standings")
	}
	defer rows.Close()

	var out []types.Standing
	for rows.Next() {
		var st types.Standing
		var tt string
		if err := rows.Scan(&tt, &st.TargetEntity, &st.Value); err != nil {
			return nil, errors.Persistence(err, "scan standing")
		}
		st.TargetType = types.TargetType(tt)
		out = append(out, st)
	}
	return out, errors.Persistence(rows.Err(), "iterate standings")
}

// History returns every standing change in order.
func (s *Store) History(ctx context.Context) ([]types.StandingChange, error) {
	rows, err := s.db.QueryContext(ctx, historyQuery)
	if err != nil {
		return nil, errors.Persistence(err, "query reputation history")
	}
	defer rows.Close()

	var out []types.StandingChange
	for rows.Next() {
		var c types.StandingChange
		var id, tt, cond string
		if err := rows.Scan(&id, &c.Day, &tt, &c.TargetEntity, &c.Value, &cond); err != nil {
			return nil, errors.Persistence(err, "scan reputation change")
		}
		c.JobID, c.TargetType, c.Condition = types.JobID(id), types.TargetType(tt), types.Condition(cond)
		out = append(out, c)
	}
	return out, errors.Persistence(rows.Err(), "iterate reputation history")
}

// Credit records a payout and adds its items to the party stock.
func (s *Store) Credit(ctx context.Context, c types.Credit) error {
	return s.inTx(ctx, "credit party ledger", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, creditInsert, string(c.JobID), c.Day, c.Gold, c.XP); err != nil {
			return err
		}
		for _, it := range c.Items {
			if _, err := tx.ExecContext(ctx, itemUpsert, it.Item, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

// Balance returns the party ledger totals.
func (s *Store) Balance(ctx context.Context) (types.LedgerData, error) {
	bal := types.LedgerData{Items: make(map[string]int)}
	if err := s.db.QueryRowContext(ctx, balanceQuery).Scan(&bal.Funds, &bal.XP); err != nil {
		return types.LedgerData{}, errors.Persistence(err, "query balance")
	}

	rows, err := s.db.QueryContext(ctx, itemsQuery)
	if err != nil {
		return types.LedgerData{}, errors.Persistence(err, "query party items")
	}
	defer rows.Close()
	for rows.Next() {
		var item string
		var qty int
		if err := rows.Scan(&item, &qty); err != nil {
			return types.LedgerData{}, errors.Persistence(err, "scan party item")
		}
		bal.Items[item] = qty
	}
	return bal, errors.Persistence(rows.Err(), "iterate party items")
}

func (s *Store) inTx(ctx context.Context, what string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Persistence(err, what)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return errors.Persistence(err, what)
	}
	if err := tx.Commit(); err != nil {
		return errors.Persistence(err, what)
	}
	return nil
}
