// Package service orchestrates the secret lifecycle: encrypted creation
// with a shareable link, and authorized reveal with expiry enforcement.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"whisper.share/internal/authz"
	"whisper.share/internal/crypto"
	"whisper.share/internal/models"
	"whisper.share/internal/store"
)

var (
	// ErrInvalidRequest flags bad caller input; recoverable by the caller.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrGone means the record exists but is permanently inaccessible,
	// either expired or revoked.
	ErrGone = errors.New("secret is gone")

	// ErrForbidden means the caller's identity fails the secret's ACL.
	ErrForbidden = errors.New("not authorized for this secret")
)

// tokenRetries bounds the regenerate-on-collision loop. With 128-bit
// tokens a collision is already negligible; three attempts is policy.
const tokenRetries = 3

type Service struct {
	store      store.Store
	envelope   *crypto.Envelope
	baseURL    string
	defaultTTL time.Duration
	maxTTL     time.Duration
	now        func() time.Time
}

func New(s store.Store, envelope *crypto.Envelope, baseURL string, defaultTTL, maxTTL time.Duration) *Service {
	return &Service{
		store:      s,
		envelope:   envelope,
		baseURL:    strings.TrimRight(baseURL, "/"),
		defaultTTL: defaultTTL,
		maxTTL:     maxTTL,
		now:        time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type CreateInput struct {
	Title         string
	Content       string
	TTLHours      int
	AllowedUsers  []string
	AllowedGroups []string
}

type CreateResult struct {
	ID        string
	Token     string
	ShareURL  string
	ExpiresAt time.Time
}

type RevealResult struct {
	Title     string
	Content   string
	Creator   string
	ExpiresAt time.Time
}

// CreateSecret encrypts and persists a new secret for the given identity
// and returns its share link. A zero TTL falls back to the configured
// default; a negative one is rejected, and values above the configured
// maximum are clamped.
func (s *Service) CreateSecret(ctx context.Context, identity string, in CreateInput) (*CreateResult, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: missing identity", ErrInvalidRequest)
	}
	if in.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidRequest)
	}

	ttl := s.defaultTTL
	switch {
	case in.TTLHours < 0:
		return nil, fmt.Errorf("%w: ttl_hours must be positive", ErrInvalidRequest)
	case in.TTLHours > 0:
		ttl = time.Duration(in.TTLHours) * time.Hour
		if ttl > s.maxTTL {
			ttl = s.maxTTL
		}
	}

	ciphertext, err := s.envelope.Encrypt([]byte(in.Content))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	secret := &models.Secret{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(in.Title),
		Ciphertext:    ciphertext,
		Creator:       identity,
		AllowedUsers:  normalizeList(in.AllowedUsers),
		AllowedGroups: normalizeList(in.AllowedGroups),
		ExpiresAt:     now.Add(ttl),
		CreatedAt:     now,
	}

	for attempt := 0; attempt < tokenRetries; attempt++ {
		secret.Token = crypto.NewToken()
		err = s.store.Create(ctx, secret)
		if err == nil {
			return &CreateResult{
				ID:        secret.ID,
				Token:     secret.Token,
				ShareURL:  s.baseURL + "/s/" + secret.Token,
				ExpiresAt: secret.ExpiresAt,
			}, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("token collision persisted after %d attempts: %w", tokenRetries, err)
}

// RevealSecret decrypts a secret for an authorized caller. The gone check
// deliberately precedes authorization so an expired secret reports Gone
// even to callers who would otherwise be forbidden.
func (s *Service) RevealSecret(ctx context.Context, token, identity string, groups []string) (*RevealResult, error) {
	secret, err := s.store.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if secret.Inert(s.now()) {
		return nil, ErrGone
	}

	if !authz.IsAuthorized(identity, groups, secret.AllowedUsers, secret.AllowedGroups) {
		return nil, ErrForbidden
	}

	plaintext, err := s.envelope.Decrypt(secret.Ciphertext)
	if err != nil {
		// Integrity failures indicate tampering or a key mismatch, never
		// a policy decision; they surface as internal errors.
		return nil, err
	}

	return &RevealResult{
		Title:     secret.Title,
		Content:   string(plaintext),
		Creator:   secret.Creator,
		ExpiresAt: secret.ExpiresAt,
	}, nil
}

// normalizeList trims whitespace, drops empties and deduplicates while
// preserving first-seen order.
func normalizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
