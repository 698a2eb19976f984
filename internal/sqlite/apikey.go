package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/listingdraft/internal/repository"
)

// APIKeyRepository resolves bearer tokens to owners. Only the SHA-256 hash
// of a key is stored.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// HashToken returns the hex SHA-256 of a raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create registers a raw key for an owner.
func (r *APIKeyRepository) Create(ctx context.Context, rawKey, ownerID, description string) error {
	if rawKey == "" || ownerID == "" {
		return repository.ErrInvalidInput
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, owner_id, created_at, description) VALUES (?, ?, ?, ?)`,
		HashToken(rawKey), ownerID, time.Now().UTC(), description,
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// ResolveOwner returns the owner of a raw key and stamps last_used.
func (r *APIKeyRepository) ResolveOwner(ctx context.Context, token string) (string, error) {
	hash := HashToken(token)

	var ownerID string
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_id FROM api_keys WHERE key_hash = ?`, hash,
	).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now().UTC(), hash,
	); err != nil {
		return "", fmt.Errorf("failed to update api key usage: %w", err)
	}
	return ownerID, nil
}
