package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	run := NewRun("bids.json", sampleAnalysis())

	mock.ExpectExec(`INSERT INTO runs \(id, input, vendors, winners, tie, analysis, created_at\)`).
		WithArgs(run.ID, "bids.json", []string{"Bolt", "Acme"}, []string{"Bolt"}, false, pgxmock.AnyArg(), run.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	run := NewRun("bids.json", nil)

	mock.ExpectExec(`INSERT INTO runs`).
		WillReturnError(errors.New("duplicate key value"))

	err := s.SaveRun(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: insert run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	a := sampleAnalysis()
	analysisJSON, err := json.Marshal(a)
	require.NoError(t, err)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, input, vendors, winners, tie, analysis, created_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "input", "vendors", "winners", "tie", "analysis", "created_at"}).
			AddRow("run-1", "bids.json", []string{"Acme", "Bolt"}, []string{"Bolt"}, false, analysisJSON, created))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, []string{"Acme", "Bolt"}, run.Vendors)
	assert.Equal(t, created, run.CreatedAt)
	require.NotNil(t, run.Analysis)
	assert.Equal(t, a.Plans, run.Analysis.Plans)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, input, vendors, winners, tie, analysis, created_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, input, vendors, winners, tie, created_at FROM runs`).
		WithArgs("Bolt", 10, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "input", "vendors", "winners", "tie", "created_at"}).
			AddRow("run-2", "b.json", []string{"Bolt", "Crane"}, []string{"Bolt", "Crane"}, true, created.Add(time.Hour)).
			AddRow("run-1", "a.json", []string{"Acme", "Bolt"}, []string{"Bolt"}, false, created))

	runs, err := s.ListRuns(context.Background(), RunFilter{Vendor: "Bolt", Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.True(t, runs[0].Tie)
	assert.Nil(t, runs[0].Analysis)
	assert.Equal(t, []string{"Bolt"}, runs[1].Winners)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, input, vendors, winners, tie, created_at FROM runs`).
		WithArgs("", 100, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "input", "vendors", "winners", "tie", "created_at"}))

	runs, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.DeleteRun(context.Background(), "run-1"))
	err := s.DeleteRun(context.Background(), "run-1")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectClose()
	assert.NoError(t, s.Close())
}
