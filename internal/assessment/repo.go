package assessment

import (
	"context"
	"errors"
)

var (
	ErrTestNotFound      = errors.New("test not found")
	ErrNotEnrolled       = errors.New("not enrolled in course")
	ErrAttemptsExhausted = errors.New("attempts exhausted")
)

// Store persists tests and graded attempts.
//
// AppendResult is the only write path for results: it inserts r as attempt
// number count+1 only while count < maxAttempts, atomically with respect to
// other appends for the same (test, student). Saved results are never
// updated.
type Store interface {
	PutTest(ctx context.Context, t Test) error
	GetTest(ctx context.Context, id string) (Test, error) // full test, answer keys included

	AppendResult(ctx context.Context, r TestResult, maxAttempts int) (TestResult, error)
	CountResults(ctx context.Context, testID, studentID string) (int, error)
	ListResults(ctx context.Context, testID, studentID string) ([]TestResult, error) // newest first
}
