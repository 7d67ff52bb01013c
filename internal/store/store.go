package store

import (
	"context"
	"errors"
	"time"

	"whisper.share/internal/models"
)

var (
	ErrNotFound = errors.New("secret not found")
	ErrConflict = errors.New("token already exists")
)

// Store is the durable record set of secrets. FindByToken reports only
// existence; revoked/expired handling is the caller's concern so that the
// store never leaks that distinction through its error shape.
type Store interface {
	// Create inserts a new record. ErrConflict signals a token collision;
	// the caller is expected to retry with a fresh token.
	Create(ctx context.Context, secret *models.Secret) error

	// FindByToken returns the record for a link token, or ErrNotFound.
	// Timestamps are normalized to UTC before being returned.
	FindByToken(ctx context.Context, token string) (*models.Secret, error)

	// DeleteExpired removes every record with expires_at <= now as one
	// atomic unit and returns the number removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	Close() error
}
