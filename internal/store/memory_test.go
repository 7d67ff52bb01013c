package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"whisper.share/internal/models"
)

func testSecret(token string, expiresAt time.Time) *models.Secret {
	return &models.Secret{
		ID:         "id-" + token,
		Token:      token,
		Ciphertext: []byte("ciphertext"),
		Creator:    "alice",
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestMemoryStoreCreateAndFind(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	secret := testSecret("tok-1", time.Now().Add(time.Hour))
	if err := s.Create(ctx, secret); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.FindByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if got.ID != secret.ID || got.Creator != "alice" {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.ExpiresAt.Location() != time.UTC {
		t.Error("ExpiresAt not normalized to UTC")
	}
}

func TestMemoryStoreConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, testSecret("tok", time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	err := s.Create(ctx, testSecret("tok", time.Now().Add(time.Hour)))
	if !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate token: got %v, want ErrConflict", err)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.FindByToken(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreDeleteExpired(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	// expires_at <= now is inclusive: the boundary record goes too.
	if err := s.Create(ctx, testSecret("past", now.Add(-time.Minute))); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, testSecret("boundary", now)); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, testSecret("future", now.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	count, err := s.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if count != 2 {
		t.Errorf("deleted %d records, want 2", count)
	}

	if _, err := s.FindByToken(ctx, "past"); !errors.Is(err, ErrNotFound) {
		t.Error("expired record survived the purge")
	}
	if _, err := s.FindByToken(ctx, "future"); err != nil {
		t.Errorf("unexpired record was purged: %v", err)
	}

	// Idempotent: a second sweep with no new expired records removes nothing.
	count, err = s.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("second sweep deleted %d records, want 0", count)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, testSecret("tok", time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	first, _ := s.FindByToken(ctx, "tok")
	first.Ciphertext[0] = 'X'
	first.Revoked = true

	second, _ := s.FindByToken(ctx, "tok")
	if second.Ciphertext[0] == 'X' || second.Revoked {
		t.Error("mutating a returned record changed stored state")
	}
}
