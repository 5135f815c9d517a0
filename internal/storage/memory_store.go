package storage

import "sync"

// MemoryStore keeps the slots in process memory.
// It is used by tests and when no durable file is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[Slot]string
	listeners
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[Slot]string{}}
}

func (m *MemoryStore) Get(slot Slot) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[slot]
	return v, ok, nil
}

func (m *MemoryStore) Set(values map[Slot]string) error {
	m.mu.Lock()
	for k, v := range values {
		m.values[k] = v
	}
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *MemoryStore) Remove(slots ...Slot) error {
	m.mu.Lock()
	for _, s := range slots {
		delete(m.values, s)
	}
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *MemoryStore) Subscribe(fn func()) func() {
	return m.subscribe(fn)
}
