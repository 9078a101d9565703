package storage

import (
	"sync"

	"github.com/example/courier-client/internal/models"
)

// AssignmentStore defines persistence for assignment outcomes. Recording is
// best-effort history: a store failure never fails the assignment itself.
type AssignmentStore interface {
	SaveAssignment(a *models.Assignment) error
	UpdateAssignment(a *models.Assignment) error
}

type MemoryStore struct {
	mu          sync.RWMutex
	assignments map[string]*models.Assignment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assignments: make(map[string]*models.Assignment)}
}

func (m *MemoryStore) SaveAssignment(a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.OrderID] = a
	return nil
}

func (m *MemoryStore) UpdateAssignment(a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.OrderID] = a
	return nil
}

func (m *MemoryStore) Get(orderID string) (*models.Assignment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[orderID]
	return a, ok
}
