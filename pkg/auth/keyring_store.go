package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "igproxy"
	keyringUser    = "api_key"
)

// KeyringStore keeps the API key in the system keychain
type KeyringStore struct {
	service string
	user    string
}

// NewKeyringStore creates a keychain-backed store
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: keyringService, user: keyringUser}
}

func (k *KeyringStore) Name() string { return "keyring" }

// Get reads the key from the keychain
func (k *KeyringStore) Get() (string, error) {
	key, err := keyring.Get(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to read from keyring: %w", err)
	}
	return key, nil
}

// Set writes the key to the keychain
func (k *KeyringStore) Set(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if err := keyring.Set(k.service, k.user, key); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Delete removes the key from the keychain
func (k *KeyringStore) Delete() error {
	err := keyring.Delete(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
