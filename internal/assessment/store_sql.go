package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

// appendRetries bounds how often AppendResult re-reads the attempt count
// after losing a race on the (test_id, student_id, attempt_no) key.
const appendRetries = 3

type SQLStore struct {
	db     *sqlx.DB
	driver string // "sqlite" or "postgres"
	now    func() time.Time
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: sqlx.NewDb(db, driver), driver: driver, now: time.Now}
}

type testRow struct {
	ID                 string  `db:"id"`
	CourseID           string  `db:"course_id"`
	ModuleIndex        int     `db:"module_index"`
	Title              string  `db:"title"`
	DurationMin        int     `db:"duration_min"`
	MaxAttempts        int     `db:"max_attempts"`
	PassPercentage     int     `db:"pass_percentage"`
	NegativeMarking    bool    `db:"negative_marking"`
	NegativeMarkingPct float64 `db:"negative_marking_pct"`
	FreePreview        bool    `db:"free_preview"`
	Published          bool    `db:"published"`
	QuestionsJSON      string  `db:"questions_json"`
}

type resultRow struct {
	TestResult
	AnswersJSON string `db:"answers_json"`
	CompletedAt int64  `db:"completed_at"`
}

func (s *SQLStore) PutTest(ctx context.Context, t Test) error {
	if err := t.Validate(); err != nil {
		return err
	}
	qj, err := json.Marshal(t.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO tests
		(id,course_id,module_index,title,duration_min,max_attempts,pass_percentage,
		 negative_marking,negative_marking_pct,free_preview,published,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET course_id=EXCLUDED.course_id, module_index=EXCLUDED.module_index,
		  title=EXCLUDED.title, duration_min=EXCLUDED.duration_min, max_attempts=EXCLUDED.max_attempts,
		  pass_percentage=EXCLUDED.pass_percentage, negative_marking=EXCLUDED.negative_marking,
		  negative_marking_pct=EXCLUDED.negative_marking_pct, free_preview=EXCLUDED.free_preview,
		  published=EXCLUDED.published, questions_json=EXCLUDED.questions_json`,
		t.ID, t.CourseID, t.ModuleIndex, t.Title, t.DurationMin, t.MaxAttempts, t.PassPercentage,
		t.NegativeMarking, t.NegativeMarkingPct, t.FreePreview, t.Published, string(qj), s.now().Unix())
	return err
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	var row testRow
	err := s.db.GetContext(ctx, &row, `SELECT id,course_id,module_index,title,duration_min,max_attempts,
		pass_percentage,negative_marking,negative_marking_pct,free_preview,published,questions_json
		FROM tests WHERE id=$1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrTestNotFound
		}
		return Test{}, err
	}
	t := Test{
		ID:                 row.ID,
		CourseID:           row.CourseID,
		ModuleIndex:        row.ModuleIndex,
		Title:              row.Title,
		DurationMin:        row.DurationMin,
		MaxAttempts:        row.MaxAttempts,
		PassPercentage:     row.PassPercentage,
		NegativeMarking:    row.NegativeMarking,
		NegativeMarkingPct: row.NegativeMarkingPct,
		FreePreview:        row.FreePreview,
		Published:          row.Published,
	}
	if err := json.Unmarshal([]byte(row.QuestionsJSON), &t.Questions); err != nil {
		return Test{}, fmt.Errorf("test %s: decode questions: %w", id, err)
	}
	return t, nil
}

// AppendResult inserts the result only while fewer than maxAttempts rows
// exist for (test, student). The count and the insert are one statement, and
// the unique attempt_no catches concurrent writers that read the same count.
func (s *SQLStore) AppendResult(ctx context.Context, r TestResult, maxAttempts int) (TestResult, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CompletedAt.IsZero() {
		r.CompletedAt = s.now().UTC()
	}
	aj, err := json.Marshal(r.Answers)
	if err != nil {
		return TestResult{}, err
	}

	for try := 0; ; try++ {
		res, err := s.db.ExecContext(ctx, `INSERT INTO test_results
			(id,test_id,student_id,attempt_no,answers_json,score,total_points,percentage,passed,completed_at)
			SELECT CAST($1 AS TEXT),CAST($2 AS TEXT),CAST($3 AS TEXT),c.n+1,CAST($4 AS TEXT),
			       CAST($5 AS DOUBLE PRECISION),CAST($6 AS INTEGER),CAST($7 AS INTEGER),
			       CAST($8 AS BOOLEAN),CAST($9 AS BIGINT)
			  FROM (SELECT COUNT(*) AS n FROM test_results WHERE test_id=$2 AND student_id=$3) c
			 WHERE c.n < $10`,
			r.ID, r.TestID, r.StudentID, string(aj), r.Score, r.TotalPoints, r.Percentage, r.Passed,
			r.CompletedAt.Unix(), maxAttempts)
		if err != nil {
			if isUniqueViolation(err) && try < appendRetries {
				continue
			}
			return TestResult{}, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return TestResult{}, err
		}
		if n == 0 {
			return TestResult{}, ErrAttemptsExhausted
		}
		break
	}

	if err := s.db.GetContext(ctx, &r.AttemptNo, `SELECT attempt_no FROM test_results WHERE id=$1`, r.ID); err != nil {
		return TestResult{}, err
	}
	return r, nil
}

func (s *SQLStore) CountResults(ctx context.Context, testID, studentID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM test_results WHERE test_id=$1 AND student_id=$2`, testID, studentID)
	return n, err
}

func (s *SQLStore) ListResults(ctx context.Context, testID, studentID string) ([]TestResult, error) {
	var rows []resultRow
	err := s.db.SelectContext(ctx, &rows, `SELECT id,test_id,student_id,attempt_no,answers_json,score,
		total_points,percentage,passed,completed_at
		FROM test_results WHERE test_id=$1 AND student_id=$2
		ORDER BY attempt_no DESC`, testID, studentID)
	if err != nil {
		return nil, err
	}
	out := make([]TestResult, 0, len(rows))
	for _, row := range rows {
		r := row.TestResult
		r.CompletedAt = time.Unix(row.CompletedAt, 0).UTC()
		if err := json.Unmarshal([]byte(row.AnswersJSON), &r.Answers); err != nil {
			return nil, fmt.Errorf("result %s: decode answers: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") // sqlite
}
