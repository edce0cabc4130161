package student

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory identity store for dev and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	students map[int64]Student
	nextID   int64
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{students: make(map[int64]Student), nextID: 1}
}

// Add inserts a student, assigning an id when unset, and returns the stored copy.
func (m *MemoryRepository) Add(s Student) Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.nextID
		m.nextID++
	} else if s.ID >= m.nextID {
		m.nextID = s.ID + 1
	}
	if s.CardVersion == 0 {
		s.CardVersion = 1
	}
	m.students[s.ID] = s
	return s
}

func (m *MemoryRepository) find(match func(Student) bool) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students {
		if match(s) {
			return s, nil
		}
	}
	return Student{}, ErrNotFound
}

// GetByNIS returns the student with the given registration number.
func (m *MemoryRepository) GetByNIS(_ context.Context, nis string) (Student, error) {
	return m.find(func(s Student) bool { return s.NIS == nis })
}

// GetByNISN returns the student with the given national number.
func (m *MemoryRepository) GetByNISN(_ context.Context, nisn string) (Student, error) {
	return m.find(func(s Student) bool { return s.NISN == nisn })
}

// GetByID returns the student with the given surrogate id.
func (m *MemoryRepository) GetByID(_ context.Context, id int64) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return Student{}, ErrNotFound
}

// BumpCardVersion increments card_version for the student with the given NIS.
func (m *MemoryRepository) BumpCardVersion(_ context.Context, nis string) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.students {
		if s.NIS == nis {
			s.CardVersion++
			m.students[id] = s
			return s, nil
		}
	}
	return Student{}, ErrNotFound
}

// List returns all students ordered by registration number.
func (m *MemoryRepository) List(_ context.Context) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Student, 0, len(m.students))
	for _, s := range m.students {
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].NIS < res[j].NIS })
	return res, nil
}
