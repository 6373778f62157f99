package driven

import (
	"context"
	"errors"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// MASHTAL_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set MASHTAL_SECRET_KEY")

// CredentialStore defines the driven port for encrypted credential persistence.
// The adapter layer is responsible for encryption/decryption; this interface
// operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// Set stores or replaces the value for (service, key).
	Set(ctx context.Context, service, key, plaintext string) error

	// SetAll atomically replaces every value stored for service with values.
	// Keys absent from values are removed. On error nothing is changed.
	SetAll(ctx context.Context, service string, values map[string]string) error

	// Get retrieves the plaintext value for (service, key).
	// Returns ("", nil) if no credential exists.
	Get(ctx context.Context, service, key string) (string, error)

	// GetAll returns every key/value pair stored for service.
	GetAll(ctx context.Context, service string) (map[string]string, error)

	// Delete removes the value for (service, key).
	Delete(ctx context.Context, service, key string) error
}
