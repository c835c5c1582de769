package catalog

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Reader for tests and offline demos.
type Memory struct {
	mu       sync.RWMutex
	enrolled map[string][]string // studentID -> courseIDs
	modules  map[string][]Module // courseID -> modules
}

func NewMemory() *Memory {
	return &Memory{enrolled: map[string][]string{}, modules: map[string][]Module{}}
}

func (m *Memory) Enroll(studentID, courseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.enrolled[studentID] {
		if c == courseID {
			return
		}
	}
	m.enrolled[studentID] = append(m.enrolled[studentID], courseID)
}

func (m *Memory) PutModule(courseID string, mod Module) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mods := m.modules[courseID]
	for i := range mods {
		if mods[i].Index == mod.Index {
			mods[i] = mod
			return
		}
	}
	mods = append(mods, mod)
	sort.Slice(mods, func(i, j int) bool { return mods[i].Index < mods[j].Index })
	m.modules[courseID] = mods
}

func (m *Memory) EnrolledCourses(_ context.Context, studentID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.enrolled[studentID]...), nil
}

func (m *Memory) Modules(_ context.Context, courseID string) ([]Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Module(nil), m.modules[courseID]...), nil
}
