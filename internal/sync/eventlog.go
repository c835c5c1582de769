// Package syncx is the append-only event log other sites replicate from.
package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/mindengage-courses/internal/assessment"
)

const TypeTestSubmitted = "TestSubmitted"

type Event struct {
	Seq       int64  `db:"seq" json:"seq"`
	SiteID    string `db:"site_id" json:"site_id"`
	Type      string `db:"typ" json:"type"`
	Key       string `db:"key" json:"key"`
	DataJSON  string `db:"data" json:"data"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

type EventRepo struct {
	db     *sqlx.DB
	siteID string
	now    func() time.Time
}

func NewEventRepo(db *sql.DB, driver, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: sqlx.NewDb(db, driver), siteID: siteID, now: time.Now}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = r.siteID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, r.now().Unix())
	return err
}

// Since returns up to limit events with seq greater than after, oldest first.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []Event
	err := r.db.SelectContext(ctx, &out,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	return out, err
}

// TestSubmitted builds the event for a persisted result. Answers are left
// out; consumers fetch them by result id.
func TestSubmitted(r assessment.TestResult) (Event, error) {
	data, err := json.Marshal(struct {
		ResultID   string  `json:"result_id"`
		TestID     string  `json:"test_id"`
		StudentID  string  `json:"student_id"`
		AttemptNo  int     `json:"attempt_no"`
		Score      float64 `json:"score"`
		Percentage int     `json:"percentage"`
		Passed     bool    `json:"passed"`
	}{r.ID, r.TestID, r.StudentID, r.AttemptNo, r.Score, r.Percentage, r.Passed})
	if err != nil {
		return Event{}, err
	}
	return Event{Type: TypeTestSubmitted, Key: r.ID, DataJSON: string(data)}, nil
}
