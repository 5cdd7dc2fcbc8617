package repo

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory keeps records in insertion order behind a RWMutex.
type Memory[T Identifiable] struct {
	mutex   sync.RWMutex
	order   []uuid.UUID
	records map[uuid.UUID]T
}

func NewMemory[T Identifiable](seed ...T) *Memory[T] {
	m := &Memory[T]{
		records: make(map[uuid.UUID]T, len(seed)),
	}
	for _, r := range seed {
		id := r.RecordID()
		if id == uuid.Nil {
			continue
		}
		if _, ok := m.records[id]; ok {
			continue
		}
		m.order = append(m.order, id)
		m.records[id] = r
	}
	return m
}

func (m *Memory[T]) Create(_ context.Context, record T) (T, error) {
	var zero T
	id := record.RecordID()
	if id == uuid.Nil {
		return zero, ErrInvalidID
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.records[id]; ok {
		return zero, ErrAlreadyExists
	}
	m.order = append(m.order, id)
	m.records[id] = record
	return record, nil
}

func (m *Memory[T]) Read(_ context.Context, id uuid.UUID) (T, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, ok := m.records[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return r, nil
}

func (m *Memory[T]) Update(_ context.Context, record T) (T, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	id := record.RecordID()
	if _, ok := m.records[id]; !ok {
		var zero T
		return zero, ErrNotFound
	}
	m.records[id] = record
	return record, nil
}

func (m *Memory[T]) Delete(_ context.Context, id uuid.UUID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory[T]) List(_ context.Context) ([]T, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	list := make([]T, 0, len(m.order))
	for _, id := range m.order {
		list = append(list, m.records[id])
	}
	return list, nil
}

// Filter returns the records matching keep, in insertion order.
func (m *Memory[T]) Filter(keep func(T) bool) []T {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var list []T
	for _, id := range m.order {
		if r := m.records[id]; keep(r) {
			list = append(list, r)
		}
	}
	return list
}

func (m *Memory[T]) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.order)
}
