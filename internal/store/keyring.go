package store

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "mailbridge"

// KeyringSecretStore persists provider API credentials in the OS keyring
// (macOS Keychain, Windows Credential Manager, or Linux Secret Service),
// keeping them out of config files.
type KeyringSecretStore struct{}

// NewKeyringSecretStore returns a new KeyringSecretStore.
func NewKeyringSecretStore() *KeyringSecretStore {
	return &KeyringSecretStore{}
}

// SaveSecret stores the secret in the OS keyring under the given name.
func (k *KeyringSecretStore) SaveSecret(name, secret string) error {
	if err := keyring.Set(serviceName, name, secret); err != nil {
		return fmt.Errorf("failed to save secret to keyring: %w", err)
	}
	return nil
}

// LoadSecret retrieves the secret for the given name from the OS keyring.
func (k *KeyringSecretStore) LoadSecret(name string) (string, error) {
	secret, err := keyring.Get(serviceName, name)
	if err != nil {
		return "", fmt.Errorf("failed to load secret from keyring: %w", err)
	}
	return secret, nil
}

// DeleteSecret removes the secret for the given name from the OS keyring.
func (k *KeyringSecretStore) DeleteSecret(name string) error {
	if err := keyring.Delete(serviceName, name); err != nil {
		return fmt.Errorf("failed to delete secret from keyring: %w", err)
	}
	return nil
}
