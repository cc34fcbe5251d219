package repositories

import (
	"context"
	"database/sql"

	"tracker/src/models"
)

type RunLogRepository interface {
	Record(ctx context.Context, entries []models.RunLogEntry) error
	GetLastRun(ctx context.Context) ([]models.RunLogEntry, error)
	GetByETF(ctx context.Context, etfCode string, limit int) ([]models.RunLogEntry, error)
}

type runLogRepo struct {
	db     *sql.DB
	driver string
}

func NewRunLogRepository(db *sql.DB, driver string) RunLogRepository {
	return &runLogRepo{db: db, driver: driver}
}

const selectRunLog = `SELECT id, run_id, etf_code, run_date, outcome, message, holdings, created_at
	FROM ingestion_runs`

// Record stores the entries of a run in one transaction. Entries already recorded for the same run and ETF are
// left as they are.
func (r *runLogRepo) Record(ctx context.Context, entries []models.RunLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, rebind(r.driver, `
		INSERT INTO ingestion_runs (run_id, etf_code, run_date, outcome, message, holdings)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, etf_code) DO NOTHING`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		if _, err := stmt.ExecContext(ctx, e.RunID, e.ETFCode, e.RunDate.String(), e.Outcome, e.Message, e.Holdings); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetLastRun returns the entries of the most recently recorded run, in recording order.
func (r *runLogRepo) GetLastRun(ctx context.Context) ([]models.RunLogEntry, error) {
	return r.queryRunLog(ctx, selectRunLog+`
		WHERE run_id = (SELECT run_id FROM ingestion_runs ORDER BY id DESC LIMIT 1)
		ORDER BY id`)
}

// GetByETF returns up to limit entries for etfCode, newest first.
func (r *runLogRepo) GetByETF(ctx context.Context, etfCode string, limit int) ([]models.RunLogEntry, error) {
	return r.queryRunLog(ctx, selectRunLog+`
		WHERE etf_code = ?
		ORDER BY id DESC
		LIMIT ?`,
		etfCode, limit)
}

func (r *runLogRepo) queryRunLog(ctx context.Context, query string, args ...interface{}) ([]models.RunLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, rebind(r.driver, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.RunLogEntry{}
	for rows.Next() {
		var e models.RunLogEntry
		if err := rows.Scan(&e.ID, &e.RunID, &e.ETFCode, &e.RunDate, &e.Outcome, &e.Message, &e.Holdings, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
