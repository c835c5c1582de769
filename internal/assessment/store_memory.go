package assessment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu      sync.RWMutex
	tests   map[string]Test
	results map[string][]TestResult // testID|studentID -> appends, oldest first
	now     func() time.Time
}

// NewInMemoryStore is used by tests and offline demos.
func NewInMemoryStore() Store {
	return &memoryStore{
		tests:   map[string]Test{},
		results: map[string][]TestResult{},
		now:     time.Now,
	}
}

func (m *memoryStore) PutTest(_ context.Context, t Test) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tests[t.ID] = t
	return nil
}

func (m *memoryStore) GetTest(_ context.Context, id string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, ErrTestNotFound
	}
	return t, nil
}

func (m *memoryStore) AppendResult(_ context.Context, r TestResult, maxAttempts int) (TestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := resultKey(r.TestID, r.StudentID)
	prior := m.results[k]
	if len(prior) >= maxAttempts {
		return TestResult{}, ErrAttemptsExhausted
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CompletedAt.IsZero() {
		r.CompletedAt = m.now().UTC()
	}
	r.AttemptNo = len(prior) + 1
	r.Answers = append([]Answer(nil), r.Answers...)
	m.results[k] = append(prior, r)
	return r, nil
}

func (m *memoryStore) CountResults(_ context.Context, testID, studentID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.results[resultKey(testID, studentID)]), nil
}

func (m *memoryStore) ListResults(_ context.Context, testID, studentID string) ([]TestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.results[resultKey(testID, studentID)]
	out := make([]TestResult, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AttemptNo > out[j].AttemptNo })
	return out, nil
}

func resultKey(testID, studentID string) string { return testID + "|" + studentID }
