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

	"github.com/ericfisherdev/mashtalsms/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// Values are encrypted with AES-256-GCM before write and decrypted after read.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes, or nil
// to disable credential storage (reads and writes return driven.ErrEncryptionKeyNotSet).
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// Set stores or replaces the value for (service, key).
func (r *CredentialRepo) Set(ctx context.Context, service, key, plaintext string) error {
	encrypted, err := r.encrypt(plaintext)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO credentials (service, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (service, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.Writer.ExecContext(ctx, query, service, key, encrypted); err != nil {
		return fmt.Errorf("set credential %s/%s: %w", service, key, err)
	}
	return nil
}

// SetAll replaces every value stored for service in one transaction. Keys
// missing from values are removed.
func (r *CredentialRepo) SetAll(ctx context.Context, service string, values map[string]string) error {
	encrypted := make(map[string]string, len(values))
	for key, plaintext := range values {
		enc, err := r.encrypt(plaintext)
		if err != nil {
			return err
		}
		encrypted[key] = enc
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin credential update for %s: %w", service, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const deleteQuery = `DELETE FROM credentials WHERE service = ?`
	if _, err := tx.ExecContext(ctx, deleteQuery, service); err != nil {
		return fmt.Errorf("clear credentials for %s: %w", service, err)
	}

	const insertQuery = `
		INSERT INTO credentials (service, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)`
	for key, value := range encrypted {
		if _, err := tx.ExecContext(ctx, insertQuery, service, key, value); err != nil {
			return fmt.Errorf("set credential %s/%s: %w", service, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit credential update for %s: %w", service, err)
	}
	return nil
}

// Get retrieves the plaintext value for (service, key).
// Returns ("", nil) if no credential exists.
func (r *CredentialRepo) Get(ctx context.Context, service, key string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT value FROM credentials WHERE service = ? AND key = ?`
	var encrypted string
	err := r.db.Reader.QueryRowContext(ctx, query, service, key).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get credential %s/%s: %w", service, key, err)
	}

	plaintext, err := r.decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt credential %s/%s: %w", service, key, err)
	}
	return plaintext, nil
}

// GetAll returns every decrypted key/value pair stored for service.
func (r *CredentialRepo) GetAll(ctx context.Context, service string) (map[string]string, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT key, value FROM credentials WHERE service = ? ORDER BY key`
	rows, err := r.db.Reader.QueryContext(ctx, query, service)
	if err != nil {
		return nil, fmt.Errorf("list credentials for %s: %w", service, err)
	}
	defer rows.Close()

	creds := make(map[string]string)
	for rows.Next() {
		var key, encrypted string
		if err := rows.Scan(&key, &encrypted); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}

		plaintext, err := r.decrypt(encrypted)
		if err != nil {
			return nil, fmt.Errorf("decrypt credential %s/%s: %w", service, key, err)
		}
		creds[key] = plaintext
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// Delete removes the value for (service, key). Deleting a missing key is not an error.
func (r *CredentialRepo) Delete(ctx context.Context, service, key string) error {
	const query = `DELETE FROM credentials WHERE service = ? AND key = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, service, key); err != nil {
		return fmt.Errorf("delete credential %s/%s: %w", service, key, err)
	}
	return nil
}

// encrypt returns base64(nonce || ciphertext || tag).
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	gcm, err := r.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (r *CredentialRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := r.aead()
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

func (r *CredentialRepo) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
