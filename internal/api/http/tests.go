package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mind-engage/mindengage-courses/internal/api/problem"
	"github.com/mind-engage/mindengage-courses/internal/assessment"
	auth "github.com/mind-engage/mindengage-courses/internal/auth/middleware"
	syncx "github.com/mind-engage/mindengage-courses/internal/sync"
)

type optionView struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

type questionView struct {
	Index   int                     `json:"index"`
	Type    assessment.QuestionType `json:"type"`
	Text    string                  `json:"text"`
	Image   string                  `json:"image,omitempty"`
	Points  int                     `json:"points"`
	Options []optionView            `json:"options,omitempty"`
}

type takeView struct {
	ID                 string         `json:"id"`
	CourseID           string         `json:"course_id"`
	Title              string         `json:"title"`
	DurationMin        int            `json:"duration_min"`
	MaxAttempts        int            `json:"max_attempts"`
	PassPercentage     int            `json:"pass_percentage"`
	NegativeMarking    bool           `json:"negative_marking"`
	NegativeMarkingPct float64        `json:"negative_marking_pct"`
	TotalPoints        int            `json:"total_points"`
	Questions          []questionView `json:"questions"`
	assessment.Allowance
}

// studentView strips answer keys and explanations from a test.
func studentView(t assessment.Test, a assessment.Allowance) takeView {
	v := takeView{
		ID:                 t.ID,
		CourseID:           t.CourseID,
		Title:              t.Title,
		DurationMin:        t.DurationMin,
		MaxAttempts:        t.MaxAttempts,
		PassPercentage:     t.PassPercentage,
		NegativeMarking:    t.NegativeMarking,
		NegativeMarkingPct: t.NegativeMarkingPct,
		TotalPoints:        t.TotalPoints(),
		Questions:          make([]questionView, 0, len(t.Questions)),
		Allowance:          a,
	}
	for i, q := range t.Questions {
		qv := questionView{Index: i, Type: q.Body.Kind(), Text: q.Text, Image: q.Image, Points: q.Points}
		for _, o := range q.Options() {
			qv.Options = append(qv.Options, optionView{Text: o.Text, Image: o.Image})
		}
		v.Questions = append(v.Questions, qv)
	}
	return v
}

// GET /test/{testId}/take
func TakeTestHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		student := auth.SubjectFromContext(ctx)
		t, ok := loadPublished(w, r, d.Tests)
		if !ok {
			return
		}
		allow, err := d.Tracker.CheckTake(ctx, t, student)
		if err != nil {
			writeTrackerError(w, r, t, allow, err)
			return
		}
		writeJSON(w, http.StatusOK, studentView(t, allow))
	}
}

type answerView struct {
	QuestionIndex int     `json:"question_index"`
	Answered      bool    `json:"answered"`
	Correct       bool    `json:"is_correct"`
	PointsEarned  float64 `json:"points_earned"`
	Explanation   string  `json:"explanation,omitempty"`
}

type submitView struct {
	ResultID    string       `json:"result_id"`
	AttemptNo   int          `json:"attempt_no"`
	Score       float64      `json:"score"`
	TotalPoints int          `json:"total_points"`
	Percentage  int          `json:"percentage"`
	Passed      bool         `json:"passed"`
	Answers     []answerView `json:"answers"`
	assessment.Allowance
}

// POST /test/{testId}/submit
func SubmitTestHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		student := auth.SubjectFromContext(ctx)
		t, ok := loadPublished(w, r, d.Tests)
		if !ok {
			return
		}

		sub, err := decodeSubmission(http.MaxBytesReader(w, r.Body, maxSubmissionBytes+1))
		if err != nil {
			slog.InfoContext(ctx, "submission rejected", "test_id", t.ID, "error", err)
			problem.Write(w, r, &problem.Detail{
				Type: problem.TypeInvalidSubmission, Status: http.StatusBadRequest,
				Detail: submissionHint,
			})
			return
		}

		// Cheap refusal before grading; the append below is the real guard.
		if allow, err := d.Tracker.CheckTake(ctx, t, student); err != nil {
			writeTrackerError(w, r, t, allow, err)
			return
		}

		ctx, done := d.track(ctx, "test.submit", attribute.String("test.id", t.ID))
		graded := d.Grader.Grade(t, student, sub)
		saved, allow, err := d.Tracker.Record(ctx, t, graded)
		done(err)
		if err != nil {
			writeTrackerError(w, r, t, allow, err)
			return
		}
		d.publish(ctx, saved)

		out := submitView{
			ResultID:    saved.ID,
			AttemptNo:   saved.AttemptNo,
			Score:       saved.Score,
			TotalPoints: saved.TotalPoints,
			Percentage:  saved.Percentage,
			Passed:      saved.Passed,
			Answers:     make([]answerView, 0, len(saved.Answers)),
			Allowance:   allow,
		}
		for _, a := range saved.Answers {
			out.Answers = append(out.Answers, answerView{
				QuestionIndex: a.QuestionIndex,
				Answered:      a.Answered,
				Correct:       a.Correct,
				PointsEarned:  a.PointsEarned,
				Explanation:   t.Questions[a.QuestionIndex].Explanation,
			})
		}
		slog.InfoContext(ctx, "test submitted", "test_id", t.ID, "student_id", student,
			"attempt_no", saved.AttemptNo, "percentage", saved.Percentage)
		writeJSON(w, http.StatusCreated, out)
	}
}

// GET /test/{testId}/results
func ListResultsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		testID := chi.URLParam(r, "testId")
		if _, err := d.Tests.GetTest(ctx, testID); err != nil {
			if errors.Is(err, assessment.ErrTestNotFound) {
				problem.NotFound(w, r, "test not found")
				return
			}
			problem.Internal(w, r, err)
			return
		}
		results, err := d.Tests.ListResults(ctx, testID, auth.SubjectFromContext(ctx))
		if err != nil {
			problem.Internal(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"test_id": testID, "results": results})
	}
}

func loadPublished(w http.ResponseWriter, r *http.Request, store assessment.Store) (assessment.Test, bool) {
	t, err := store.GetTest(r.Context(), chi.URLParam(r, "testId"))
	switch {
	case errors.Is(err, assessment.ErrTestNotFound) || (err == nil && !t.Published):
		problem.NotFound(w, r, "test not found")
		return assessment.Test{}, false
	case err != nil:
		problem.Internal(w, r, err)
		return assessment.Test{}, false
	}
	return t, true
}

func writeTrackerError(w http.ResponseWriter, r *http.Request, t assessment.Test, a assessment.Allowance, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, assessment.ErrNotEnrolled):
		slog.InfoContext(ctx, "not enrolled", "test_id", t.ID, "course_id", t.CourseID)
		problem.Write(w, r, &problem.Detail{
			Type: problem.TypeNotEnrolled, Status: http.StatusForbidden,
			Detail: "you are not enrolled in this course",
		})
	case errors.Is(err, assessment.ErrAttemptsExhausted):
		slog.InfoContext(ctx, "attempts exhausted", "test_id", t.ID)
		used := a.Used
		if used == 0 {
			used = t.MaxAttempts
		}
		problem.Write(w, r, &problem.Detail{
			Type: problem.TypeAttemptsExhausted, Title: "Attempts Exhausted", Status: http.StatusConflict,
			Detail:     "no attempts remain for this test",
			Extensions: map[string]any{"attempts_used": used, "max_attempts": t.MaxAttempts},
		})
	default:
		problem.Internal(w, r, err)
	}
}

func (d Deps) publish(ctx context.Context, res assessment.TestResult) {
	if d.Events == nil {
		return
	}
	ev, err := syncx.TestSubmitted(res)
	if err == nil {
		err = d.Events.Append(ctx, ev)
	}
	if err != nil {
		// The result is already durable; replication catches up from results.
		slog.ErrorContext(ctx, "event log append failed", "result_id", res.ID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
