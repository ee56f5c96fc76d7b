package driven

import (
	"context"
	"errors"
	"fmt"
	"unicode"
)

// ErrEncryptionKeyNotSet is returned by SecretStore operations when
// REQBRIDGE_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set REQBRIDGE_SECRET_KEY")

// ErrInvalidKey is returned when a secret key is empty or contains characters
// outside the allowed set. The store is not touched.
var ErrInvalidKey = errors.New("invalid secret key")

// SecretStore defines the driven port for secret persistence.
// The adapter layer is responsible for encryption/decryption; this interface
// operates on plaintext values at the domain boundary.
type SecretStore interface {
	// Get retrieves the plaintext secret stored under key.
	// Returns ("", false, nil) if no secret exists for that key.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores or replaces the secret under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes the secret under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ValidateKey checks key against the allowed character set: letters, digits,
// whitespace and any of `:._-#`. Implementations of SecretStore must call it
// before touching the underlying store.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for _, r := range key {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		switch r {
		case ':', '.', '_', '-', '#':
			continue
		}
		return fmt.Errorf("%w: %q contains %q", ErrInvalidKey, key, r)
	}
	return nil
}
