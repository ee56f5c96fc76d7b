package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecretStore = (*SecretRepo)(nil)

// SecretRepo is the SQLite implementation of the SecretStore port interface.
// Secret values are encrypted with AES-256-GCM before write and decrypted after read.
type SecretRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewSecretRepo creates a new SecretRepo. key must be 32 bytes for AES-256-GCM,
// or nil to disable secret storage (reads and writes return ErrEncryptionKeyNotSet).
func NewSecretRepo(db *DB, key []byte) *SecretRepo {
	return &SecretRepo{db: db, key: key}
}

// Set stores or replaces the secret under key with the provided plaintext value.
func (r *SecretRepo) Set(ctx context.Context, key, plaintext string) error {
	if err := driven.ValidateKey(key); err != nil {
		return err
	}

	encrypted, err := r.encrypt(plaintext)
	if err != nil {
		return err
	}

	const query = `INSERT OR REPLACE INTO secrets (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	_, err = r.db.Writer.ExecContext(ctx, query, key, encrypted)
	if err != nil {
		return fmt.Errorf("set secret %q: %w", key, err)
	}
	return nil
}

// Get retrieves the plaintext secret stored under key.
// Returns ("", false, nil) if no secret exists for that key.
func (r *SecretRepo) Get(ctx context.Context, key string) (string, bool, error) {
	if err := driven.ValidateKey(key); err != nil {
		return "", false, err
	}
	if r.key == nil {
		return "", false, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT value FROM secrets WHERE key = ?`
	var encrypted string
	err := r.db.Reader.QueryRowContext(ctx, query, key).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get secret %q: %w", key, err)
	}

	plaintext, err := r.decrypt(encrypted)
	if err != nil {
		return "", false, fmt.Errorf("decrypt secret %q: %w", key, err)
	}
	return plaintext, true, nil
}

// Delete removes the secret stored under key.
func (r *SecretRepo) Delete(ctx context.Context, key string) error {
	if err := driven.ValidateKey(key); err != nil {
		return err
	}

	const query = `DELETE FROM secrets WHERE key = ?`
	_, err := r.db.Writer.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete secret %q: %w", key, err)
	}
	return nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded string
// containing the nonce (12 bytes) prepended to the ciphertext.
func (r *SecretRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	gcm, err := newGCM(r.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *SecretRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := newGCM(r.key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
