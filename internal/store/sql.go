// internal/store/sql.go
//
// SQL-backed store on Bun. One secrets table keyed by a generated primary
// id with a unique secondary index on the link token. ACL lists are
// comma-joined only inside this mapping layer; the rest of the system sees
// proper string slices.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"whisper.share/internal/models"

	// SQL drivers registered for runtime and tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var _ Store = (*SQLStore)(nil)

// secretRow maps the secrets table for Bun queries.
type secretRow struct {
	bun.BaseModel `bun:"table:secrets,alias:s"`

	ID            string         `bun:"id,pk"`
	Token         string         `bun:"token,notnull,unique"`
	Title         sql.NullString `bun:"title"`
	Ciphertext    []byte         `bun:"ciphertext,notnull"`
	Creator       string         `bun:"creator,notnull"`
	AllowedUsers  sql.NullString `bun:"allowed_users"`
	AllowedGroups sql.NullString `bun:"allowed_groups"`
	ExpiresAt     time.Time      `bun:"expires_at,notnull"`
	CreatedAt     time.Time      `bun:"created_at,notnull"`
	Revoked       bool           `bun:"revoked,notnull,default:false"`
}

type SQLStore struct {
	db  *sql.DB
	bun *bun.DB
}

// NewSQLStore opens a SQL backend. dbType selects the engine ("sqlite" or
// "postgres"), dsn is the driver DSN. The schema is created if missing.
func NewSQLStore(dbType, dsn string) (*SQLStore, error) {
	var (
		sqldb *sql.DB
		bdb   *bun.DB
		err   error
	)

	switch dbType {
	case "sqlite":
		sqldb, err = sql.Open("sqlite", dsn)
		if err == nil {
			bdb = bun.NewDB(sqldb, sqlitedialect.New())
		}
	case "postgres":
		sqldb, err = sql.Open("pgx", dsn)
		if err == nil {
			bdb = bun.NewDB(sqldb, pgdialect.New())
		}
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", dbType, err)
	}

	s := &SQLStore{db: sqldb, bun: bdb}
	if err := s.migrate(context.Background()); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	if _, err := s.bun.NewCreateTable().
		Model((*secretRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}

	_, err := s.bun.NewCreateIndex().
		Model((*secretRow)(nil)).
		Index("idx_secrets_expires_at").
		Column("expires_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *SQLStore) Create(ctx context.Context, secret *models.Secret) error {
	row := rowFromSecret(secret)
	if _, err := s.bun.NewInsert().Model(row).Exec(ctx); err != nil {
		return mapSQLError(err)
	}
	return nil
}

func (s *SQLStore) FindByToken(ctx context.Context, token string) (*models.Secret, error) {
	var row secretRow
	err := s.bun.NewSelect().Model(&row).Where("token = ?", token).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return secretFromRow(&row), nil
}

func (s *SQLStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	// A single conditional DELETE; atomic under the engine, so the count
	// stays accurate under concurrent lookups and creates.
	res, err := s.bun.NewDelete().
		Model((*secretRow)(nil)).
		Where("expires_at <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// --- Row mapping helpers ---

func rowFromSecret(in *models.Secret) *secretRow {
	return &secretRow{
		ID:            in.ID,
		Token:         in.Token,
		Title:         nullString(in.Title),
		Ciphertext:    in.Ciphertext,
		Creator:       in.Creator,
		AllowedUsers:  nullString(joinList(in.AllowedUsers)),
		AllowedGroups: nullString(joinList(in.AllowedGroups)),
		ExpiresAt:     in.ExpiresAt.UTC(),
		CreatedAt:     in.CreatedAt.UTC(),
		Revoked:       in.Revoked,
	}
}

func secretFromRow(row *secretRow) *models.Secret {
	return &models.Secret{
		ID:            row.ID,
		Token:         row.Token,
		Title:         row.Title.String,
		Ciphertext:    row.Ciphertext,
		Creator:       row.Creator,
		AllowedUsers:  splitList(row.AllowedUsers.String),
		AllowedGroups: splitList(row.AllowedGroups.String),
		// SQLite may hand back naive timestamps; treat them as UTC.
		ExpiresAt: asUTC(row.ExpiresAt),
		CreatedAt: asUTC(row.CreatedAt),
		Revoked:   row.Revoked,
	}
}

func asUTC(t time.Time) time.Time {
	return t.UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mapSQLError maps driver-specific constraint violations onto the package
// sentinels. String-based so this file stays driver-agnostic; covers the
// SQLite unique-constraint message and the Postgres 23505 code.
func mapSQLError(err error) error {
	if err == nil {
		return nil
	}
	le := strings.ToLower(err.Error())
	if strings.Contains(le, "unique") || strings.Contains(le, "23505") || strings.Contains(le, "duplicate") {
		return ErrConflict
	}
	return err
}
