package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var sqliteTestSeq int

func newSqliteStore(t *testing.T) *SQLStore {
	t.Helper()
	sqliteTestSeq++
	dsn := fmt.Sprintf("file:sqltest%d?mode=memory&cache=shared", sqliteTestSeq)
	s, err := NewSQLStore("sqlite", dsn)
	if err != nil {
		t.Fatalf("NewSQLStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLStoreCreateAndFind(t *testing.T) {
	s := newSqliteStore(t)
	ctx := context.Background()

	secret := testSecret("tok-1", time.Now().Add(time.Hour))
	secret.Title = "deploy key"
	secret.AllowedUsers = []string{"bob", "carol"}
	secret.AllowedGroups = []string{"ops"}

	if err := s.Create(ctx, secret); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.FindByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if got.ID != secret.ID || got.Title != "deploy key" || got.Creator != "alice" {
		t.Errorf("unexpected record: %+v", got)
	}
	if len(got.AllowedUsers) != 2 || got.AllowedUsers[0] != "bob" {
		t.Errorf("allowed users not round-tripped: %v", got.AllowedUsers)
	}
	if len(got.AllowedGroups) != 1 || got.AllowedGroups[0] != "ops" {
		t.Errorf("allowed groups not round-tripped: %v", got.AllowedGroups)
	}
	if got.ExpiresAt.Location() != time.UTC {
		t.Error("ExpiresAt not normalized to UTC")
	}
	if got.Revoked {
		t.Error("fresh record reported revoked")
	}
}

func TestSQLStoreEmptyACLs(t *testing.T) {
	s := newSqliteStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, testSecret("open", time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	got, err := s.FindByToken(ctx, "open")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.AllowedUsers) != 0 || len(got.AllowedGroups) != 0 {
		t.Errorf("empty ACLs came back non-empty: %v / %v", got.AllowedUsers, got.AllowedGroups)
	}
}

func TestSQLStoreConflict(t *testing.T) {
	s := newSqliteStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, testSecret("tok", time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	dup := testSecret("tok", time.Now().Add(time.Hour))
	dup.ID = "another-id"
	if err := s.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate token: got %v, want ErrConflict", err)
	}
}

func TestSQLStoreNotFound(t *testing.T) {
	s := newSqliteStore(t)
	if _, err := s.FindByToken(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSQLStoreDeleteExpired(t *testing.T) {
	s := newSqliteStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := s.Create(ctx, testSecret("past", now.Add(-time.Hour))); err != nil {
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
	if _, err := s.FindByToken(ctx, "future"); err != nil {
		t.Errorf("unexpired record was purged: %v", err)
	}

	count, err = s.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("second sweep deleted %d records, want 0", count)
	}
}
