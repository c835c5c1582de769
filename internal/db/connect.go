package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// SQLName is the database/sql driver name registered for d.
func (d Driver) SQLName() string {
	if d == DriverPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = "file:courses.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		if dsn == "" {
			dsn = "postgres://localhost:5432/courses?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(driver.SQLName(), dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer at a time; readers wait on busy_timeout
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL DEFAULT 'student',
  password_hash TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  published INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS course_students (
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  added_at INTEGER NOT NULL,
  PRIMARY KEY (course_id, student_id)
);
CREATE INDEX IF NOT EXISTS idx_course_students_student ON course_students(student_id);

CREATE TABLE IF NOT EXISTS course_modules (
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  idx INTEGER NOT NULL,
  title TEXT NOT NULL,
  PRIMARY KEY (course_id, idx)
);

CREATE TABLE IF NOT EXISTS module_videos (
  course_id TEXT NOT NULL,
  module_idx INTEGER NOT NULL,
  position INTEGER NOT NULL,
  title TEXT NOT NULL,
  storage_key TEXT NOT NULL,
  duration_sec INTEGER NOT NULL DEFAULT 0,
  free_preview INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (course_id, module_idx, position),
  FOREIGN KEY (course_id, module_idx) REFERENCES course_modules(course_id, idx) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tests (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL,
  module_index INTEGER NOT NULL DEFAULT 0,
  title TEXT NOT NULL,
  duration_min INTEGER NOT NULL DEFAULT 0,
  max_attempts INTEGER NOT NULL DEFAULT 1,
  pass_percentage INTEGER NOT NULL DEFAULT 0,
  negative_marking INTEGER NOT NULL DEFAULT 0,
  negative_marking_pct REAL NOT NULL DEFAULT 0,
  free_preview INTEGER NOT NULL DEFAULT 0,
  published INTEGER NOT NULL DEFAULT 0,
  questions_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS test_results (
  id TEXT PRIMARY KEY,
  test_id TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL,
  attempt_no INTEGER NOT NULL,
  answers_json TEXT NOT NULL,
  score REAL NOT NULL,
  total_points INTEGER NOT NULL,
  percentage INTEGER NOT NULL,
  passed INTEGER NOT NULL,
  completed_at INTEGER NOT NULL,
  UNIQUE (test_id, student_id, attempt_no)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL DEFAULT 'student',
  password_hash TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  published BOOLEAN NOT NULL DEFAULT FALSE,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS course_students (
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  added_at BIGINT NOT NULL,
  PRIMARY KEY (course_id, student_id)
);
CREATE INDEX IF NOT EXISTS idx_course_students_student ON course_students(student_id);

CREATE TABLE IF NOT EXISTS course_modules (
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  idx INTEGER NOT NULL,
  title TEXT NOT NULL,
  PRIMARY KEY (course_id, idx)
);

CREATE TABLE IF NOT EXISTS module_videos (
  course_id TEXT NOT NULL,
  module_idx INTEGER NOT NULL,
  position INTEGER NOT NULL,
  title TEXT NOT NULL,
  storage_key TEXT NOT NULL,
  duration_sec INTEGER NOT NULL DEFAULT 0,
  free_preview BOOLEAN NOT NULL DEFAULT FALSE,
  PRIMARY KEY (course_id, module_idx, position),
  FOREIGN KEY (course_id, module_idx) REFERENCES course_modules(course_id, idx) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tests (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL,
  module_index INTEGER NOT NULL DEFAULT 0,
  title TEXT NOT NULL,
  duration_min INTEGER NOT NULL DEFAULT 0,
  max_attempts INTEGER NOT NULL DEFAULT 1,
  pass_percentage INTEGER NOT NULL DEFAULT 0,
  negative_marking BOOLEAN NOT NULL DEFAULT FALSE,
  negative_marking_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
  free_preview BOOLEAN NOT NULL DEFAULT FALSE,
  published BOOLEAN NOT NULL DEFAULT FALSE,
  questions_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS test_results (
  id TEXT PRIMARY KEY,
  test_id TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL,
  attempt_no INTEGER NOT NULL,
  answers_json TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  total_points INTEGER NOT NULL,
  percentage INTEGER NOT NULL,
  passed BOOLEAN NOT NULL,
  completed_at BIGINT NOT NULL,
  UNIQUE (test_id, student_id, attempt_no)
);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
