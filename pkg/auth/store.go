package auth

import (
	"errors"
	"fmt"

	"igproxy/pkg/config"
	"igproxy/pkg/logger"
)

var (
	// ErrKeyNotFound is returned when a store holds no API key
	ErrKeyNotFound = errors.New("api key not found")
	// ErrStoreUnavailable is returned when a store cannot be written to
	ErrStoreUnavailable = errors.New("key store unavailable")
	// ErrInvalidKey is returned when an empty key is stored
	ErrInvalidKey = errors.New("api key must not be empty")
)

// KeyStore is a source of the gateway's shared API key
type KeyStore interface {
	// Name identifies the store in logs and CLI output
	Name() string
	// Get returns the stored key or ErrKeyNotFound
	Get() (string, error)
	// Set stores the key
	Set(key string) error
	// Delete removes the key
	Delete() error
}

// Manager resolves the API key from an ordered list of stores
type Manager struct {
	stores []KeyStore
	log    logger.Logger
}

// NewManager creates a manager that consults stores in order
func NewManager(log logger.Logger, stores ...KeyStore) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{stores: stores, log: log}
}

// NewManagerFromConfig builds the standard resolution chain: the configured
// key first (which already includes API_KEY from the environment), then the
// system keychain when enabled.
func NewManagerFromConfig(cfg *config.AuthConfig, log logger.Logger) *Manager {
	stores := []KeyStore{NewStaticStore("config", cfg.APIKey)}
	if cfg.UseKeyring {
		stores = append(stores, NewKeyringStore())
	}
	return NewManager(log, stores...)
}

// Resolve returns the first key found and the name of the store that held
// it. A store that fails for reasons other than a missing key is skipped.
func (m *Manager) Resolve() (key string, source string, err error) {
	for _, store := range m.stores {
		key, err := store.Get()
		if err == nil && key != "" {
			return key, store.Name(), nil
		}
		if err != nil && !errors.Is(err, ErrKeyNotFound) {
			m.log.DebugWithFields("key store unavailable", map[string]interface{}{
				"store": store.Name(),
				"error": err.Error(),
			})
		}
	}
	return "", "", ErrKeyNotFound
}

// ResolveAPIKey returns the configured key, or "" when auth runs in
// accept-any-token mode
func (m *Manager) ResolveAPIKey() string {
	key, source, err := m.Resolve()
	if err != nil {
		m.log.Warn("no API key configured, any bearer token will be accepted")
		return ""
	}
	m.log.InfoWithFields("API key loaded", map[string]interface{}{
		"source":      source,
		"fingerprint": Fingerprint(key),
	})
	return key
}

// Store saves key in the first writable store
func (m *Manager) Store(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	var lastErr error
	for _, store := range m.stores {
		if err := store.Set(key); err == nil {
			return store.Name(), nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to store api key: %w", lastErr)
	}
	return "", ErrStoreUnavailable
}

// Delete removes the key from every writable store that has it
func (m *Manager) Delete() error {
	deleted := false
	for _, store := range m.stores {
		err := store.Delete()
		if err == nil {
			deleted = true
		}
	}
	if !deleted {
		return ErrKeyNotFound
	}
	return nil
}

// StaticStore serves a key fixed at construction, typically from config
// or the environment. It is read-only.
type StaticStore struct {
	name string
	key  string
}

// NewStaticStore creates a read-only store
func NewStaticStore(name, key string) *StaticStore {
	return &StaticStore{name: name, key: key}
}

func (s *StaticStore) Name() string { return s.name }

func (s *StaticStore) Get() (string, error) {
	if s.key == "" {
		return "", ErrKeyNotFound
	}
	return s.key, nil
}

func (s *StaticStore) Set(string) error { return ErrStoreUnavailable }

func (s *StaticStore) Delete() error { return ErrStoreUnavailable }
