package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bid-compare/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	input      TEXT NOT NULL,
	vendors    TEXT NOT NULL DEFAULT '[]',
	winners    TEXT NOT NULL DEFAULT '[]',
	tie        INTEGER NOT NULL DEFAULT 0,
	analysis   TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	vendorsJSON, winnersJSON, analysisJSON, err := marshalRun(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input, vendors, winners, tie, analysis, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Input, string(vendorsJSON), string(winnersJSON), run.Tie, string(analysisJSON), run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, vendors, winners, tie, analysis, created_at FROM runs WHERE id = ?`,
		runID,
	)

	var (
		r                        model.Run
		vendorsJSON, winnersJSON string
		analysisJSON             sql.NullString
	)
	err := row.Scan(&r.ID, &r.Input, &vendorsJSON, &winnersJSON, &r.Tie, &analysisJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}

	if err := unmarshalRun(&r, []byte(vendorsJSON), []byte(winnersJSON)); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal run")
	}
	if analysisJSON.Valid && analysisJSON.String != "" {
		r.Analysis = &model.Analysis{}
		if err := json.Unmarshal([]byte(analysisJSON.String), r.Analysis); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
		}
	}
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, input, vendors, winners, tie, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Vendor != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(runs.vendors) WHERE json_each.value = ?)`
		args = append(args, filter.Vendor)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	runs := []model.Run{}
	for rows.Next() {
		var (
			r                        model.Run
			vendorsJSON, winnersJSON string
		)
		if err := rows.Scan(&r.ID, &r.Input, &vendorsJSON, &winnersJSON, &r.Tie, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if err := unmarshalRun(&r, []byte(vendorsJSON), []byte(winnersJSON)); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: delete run %s", runID)
	}
	return nil
}

func marshalRun(run *model.Run) (vendors, winners, analysis []byte, err error) {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if vendors, err = json.Marshal(nonNil(run.Vendors)); err != nil {
		return nil, nil, nil, err
	}
	if winners, err = json.Marshal(nonNil(run.Winners)); err != nil {
		return nil, nil, nil, err
	}
	if run.Analysis != nil {
		if analysis, err = json.Marshal(run.Analysis); err != nil {
			return nil, nil, nil, err
		}
	}
	return vendors, winners, analysis, nil
}

func unmarshalRun(r *model.Run, vendors, winners []byte) error {
	if err := json.Unmarshal(vendors, &r.Vendors); err != nil {
		return err
	}
	return json.Unmarshal(winners, &r.Winners)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
