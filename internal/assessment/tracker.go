package assessment

import (
	"context"
	"fmt"
)

// EnrollmentView is the read-only slice of the course catalog the tracker needs.
type EnrollmentView interface {
	EnrolledCourses(ctx context.Context, studentID string) ([]string, error)
}

// Allowance describes a student's standing against a test's attempt limit.
type Allowance struct {
	Used      int `json:"attempts_used"`
	Remaining int `json:"remaining_attempts"`
}

// Tracker gates test-taking on enrollment and the attempt limit.
type Tracker struct {
	store       Store
	enrollments EnrollmentView
}

func NewTracker(store Store, enrollments EnrollmentView) *Tracker {
	return &Tracker{store: store, enrollments: enrollments}
}

// CheckTake reports whether studentID may start a new attempt at t.
// ErrNotEnrolled is returned before the attempt count is consulted.
func (tr *Tracker) CheckTake(ctx context.Context, t Test, studentID string) (Allowance, error) {
	if err := tr.requireEnrollment(ctx, t, studentID); err != nil {
		return Allowance{}, err
	}
	used, err := tr.store.CountResults(ctx, t.ID, studentID)
	if err != nil {
		return Allowance{}, fmt.Errorf("count attempts: %w", err)
	}
	a := allowance(t, used)
	if a.Remaining == 0 {
		return a, ErrAttemptsExhausted
	}
	return a, nil
}

// Record persists a graded attempt. The limit is enforced by the store's
// conditional append, so a submission racing another one cannot exceed it.
func (tr *Tracker) Record(ctx context.Context, t Test, r TestResult) (TestResult, Allowance, error) {
	if err := tr.requireEnrollment(ctx, t, r.StudentID); err != nil {
		return TestResult{}, Allowance{}, err
	}
	saved, err := tr.store.AppendResult(ctx, r, t.MaxAttempts)
	if err != nil {
		return TestResult{}, Allowance{}, err
	}
	return saved, allowance(t, saved.AttemptNo), nil
}

func (tr *Tracker) requireEnrollment(ctx context.Context, t Test, studentID string) error {
	courses, err := tr.enrollments.EnrolledCourses(ctx, studentID)
	if err != nil {
		return fmt.Errorf("load enrollments: %w", err)
	}
	for _, c := range courses {
		if c == t.CourseID {
			return nil
		}
	}
	return ErrNotEnrolled
}

func allowance(t Test, used int) Allowance {
	rem := t.MaxAttempts - used
	if rem < 0 {
		rem = 0
	}
	return Allowance{Used: used, Remaining: rem}
}
