package assessment

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-courses/internal/db"
)

func openSQLite(t *testing.T) *SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "courses.db") + "?_pragma=busy_timeout(5000)"
	sqlDB, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewSQLStore(sqlDB, "sqlite")
}

func TestSQLStoreSQLite(t *testing.T) {
	exerciseStore(t, openSQLite(t))
}

func TestSQLStoreSQLiteConcurrentAppend(t *testing.T) {
	exerciseConcurrentAppend(t, openSQLite(t), 12)
}

func TestSQLStorePutTestUpserts(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	tt := biologyTest()
	require.NoError(t, s.PutTest(ctx, tt))

	tt.Title = "Cells (revised)"
	tt.Published = false
	require.NoError(t, s.PutTest(ctx, tt))

	got, err := s.GetTest(ctx, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cells (revised)", got.Title)
	assert.False(t, got.Published)
}

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewSQLStore(sqlDB, "postgres"), mock
}

func TestAppendResultRetriesOnUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)
	dup := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

	mock.ExpectExec(`INSERT INTO test_results`).WillReturnError(dup)
	mock.ExpectExec(`INSERT INTO test_results`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT attempt_no FROM test_results WHERE id=\$1`).
		WillReturnRows(sqlmock.NewRows([]string{"attempt_no"}).AddRow(2))

	r, err := s.AppendResult(context.Background(), TestResult{TestID: "t", StudentID: "s"}, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, r.AttemptNo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendResultGivesUpAfterRetries(t *testing.T) {
	s, mock := newMockStore(t)
	dup := &pgconn.PgError{Code: "23505"}
	for i := 0; i <= appendRetries; i++ {
		mock.ExpectExec(`INSERT INTO test_results`).WillReturnError(dup)
	}

	_, err := s.AppendResult(context.Background(), TestResult{TestID: "t", StudentID: "s"}, 3)
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendResultAtLimit(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO test_results`).
		WithArgs(sqlmock.AnyArg(), "t", "s", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.AppendResult(context.Background(), TestResult{TestID: "t", StudentID: "s"}, 2)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTestNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM tests WHERE id=\$1`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := s.GetTest(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTestNotFound)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: test_results.test_id (2067)")))
	assert.False(t, isUniqueViolation(errors.New("database is locked")))
}
