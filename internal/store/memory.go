package store

import (
	"context"
	"sync"
	"time"

	"whisper.share/internal/models"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]*models.Secret // keyed by token
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		secrets: make(map[string]*models.Secret),
	}
}

func (s *MemoryStore) Create(ctx context.Context, secret *models.Secret) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.secrets[secret.Token]; exists {
		return ErrConflict
	}

	s.secrets[secret.Token] = cloneSecret(secret)
	return nil
}

func (s *MemoryStore) FindByToken(ctx context.Context, token string) (*models.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	secret, ok := s.secrets[token]
	if !ok {
		return nil, ErrNotFound
	}

	return cloneSecret(secret), nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now = now.UTC()
	count := 0
	for token, secret := range s.secrets {
		if !secret.ExpiresAt.UTC().After(now) {
			delete(s.secrets, token)
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets = nil
	return nil
}

// cloneSecret copies the record so callers cannot mutate stored state.
func cloneSecret(in *models.Secret) *models.Secret {
	out := *in
	out.Ciphertext = append([]byte(nil), in.Ciphertext...)
	out.AllowedUsers = append([]string(nil), in.AllowedUsers...)
	out.AllowedGroups = append([]string(nil), in.AllowedGroups...)
	out.ExpiresAt = in.ExpiresAt.UTC()
	out.CreatedAt = in.CreatedAt.UTC()
	return &out
}
