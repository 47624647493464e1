package auth

import (
	"sync"
)

// MockStore is an in-memory KeyStore for tests
type MockStore struct {
	name string
	key  string
	mu   sync.RWMutex

	// Error injection for testing
	GetError    error
	SetError    error
	DeleteError error
}

// NewMockStore creates a mock store holding key ("" for empty)
func NewMockStore(name, key string) *MockStore {
	return &MockStore{name: name, key: key}
}

func (m *MockStore) Name() string { return m.name }

func (m *MockStore) Get() (string, error) {
	if m.GetError != nil {
		return "", m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.key == "" {
		return "", ErrKeyNotFound
	}
	return m.key, nil
}

func (m *MockStore) Set(key string) error {
	if m.SetError != nil {
		return m.SetError
	}
	if key == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = key
	return nil
}

func (m *MockStore) Delete() error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.key == "" {
		return ErrKeyNotFound
	}
	m.key = ""
	return nil
}
