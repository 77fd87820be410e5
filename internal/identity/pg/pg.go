// Package pg is the Postgres identity store.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/tokenbridge/internal/identity"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

// New opens a pgx pool against dsn and ensures the schema exists.
func New(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS platform_user (
    uid            TEXT PRIMARY KEY,
    email          TEXT NOT NULL DEFAULT '',
    email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    display_name   TEXT NOT NULL DEFAULT '',
    photo_url      TEXT NOT NULL DEFAULT '',
    custom_claims  JSONB NOT NULL DEFAULT '{}',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS platform_user_email_idx ON platform_user (lower(email)) WHERE email <> '';
`)
	if err != nil {
		return fmt.Errorf("pg: ensure schema: %w", err)
	}
	return nil
}

const userCols = `uid, email, email_verified, display_name, photo_url, custom_claims, created_at, updated_at`

func scanUser(row pgx.Row) (*identity.User, error) {
	var u identity.User
	var claims []byte
	err := row.Scan(&u.UID, &u.Email, &u.EmailVerified, &u.DisplayName, &u.PhotoURL, &claims, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, err
	}
	if len(claims) > 0 {
		_ = json.Unmarshal(claims, &u.CustomClaims)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, uid string) (*identity.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM platform_user WHERE uid = $1`, uid))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, identity.ErrUserNotFound
	}
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM platform_user WHERE lower(email) = $1 LIMIT 1`, email))
}

func (s *Store) CreateUser(ctx context.Context, u *identity.User) error {
	claims, err := json.Marshal(orEmpty(u.CustomClaims))
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
INSERT INTO platform_user (uid, email, email_verified, display_name, photo_url, custom_claims, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		u.UID, u.Email, u.EmailVerified, u.DisplayName, u.PhotoURL, claims, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return identity.ErrUserExists
		}
		return err
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, uid string, upd identity.Update) (*identity.User, error) {
	// COALESCE sobre NULL: los campos nil no tocan la fila.
	row := s.pool.QueryRow(ctx, `
UPDATE platform_user
   SET email          = COALESCE($2, email),
       email_verified = COALESCE($3, email_verified),
       display_name   = COALESCE($4, display_name),
       photo_url      = COALESCE($5, photo_url),
       updated_at     = now()
 WHERE uid = $1
RETURNING `+userCols,
		uid, upd.Email, upd.EmailVerified, upd.DisplayName, upd.PhotoURL)
	return scanUser(row)
}

func (s *Store) SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error {
	b, err := json.Marshal(orEmpty(claims))
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE platform_user
   SET custom_claims = custom_claims || $2::jsonb,
       updated_at    = now()
 WHERE uid = $1`, uid, b)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
