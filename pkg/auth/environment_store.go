package auth

import (
	"os"
	"strings"
)

// DefaultKeyEnvVar is the environment variable holding the shared secret
const DefaultKeyEnvVar = "API_KEY"

// EnvironmentStore reads the API key from an environment variable at call
// time. It is read-only.
type EnvironmentStore struct {
	variable string
}

// NewEnvironmentStore creates a store reading variable, or API_KEY when empty
func NewEnvironmentStore(variable string) *EnvironmentStore {
	if variable == "" {
		variable = DefaultKeyEnvVar
	}
	return &EnvironmentStore{variable: variable}
}

func (e *EnvironmentStore) Name() string { return "env:" + e.variable }

// Get returns the trimmed value of the variable
func (e *EnvironmentStore) Get() (string, error) {
	key := strings.TrimSpace(os.Getenv(e.variable))
	if key == "" {
		return "", ErrKeyNotFound
	}
	return key, nil
}

// Set is not supported for environment variables
func (e *EnvironmentStore) Set(string) error {
	return ErrStoreUnavailable
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete() error {
	return ErrStoreUnavailable
}
