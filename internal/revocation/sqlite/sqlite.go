// Package sqlite provides SQLite persistence for revoked tokens.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"tokenware/internal/revocation"
)

// neverExpires is the expiration stored for revocations that do not lapse
const neverExpires = 0

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ revocation.Store = (*Store)(nil)

// Open opens (or creates) the database at dbPath. Use ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// an in-memory database lives and dies with its connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS revoked (
			token       TEXT PRIMARY KEY,
			expiration  INTEGER NOT NULL
		);`,
	); err != nil {
		return fmt.Errorf("failed to init 'revoked' table schema: %w", err)
	}
	return nil
}

func (s *Store) IsRevoked(ctx context.Context, token string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM revoked
		WHERE token=?1 AND (expiration=?2 OR expiration>=?3);`,
		token,
		neverExpires,
		s.now().Unix(),
	)

	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("couldn't scan revocation: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	var expiry int64 = neverExpires
	if !revocation.Forever(expiresAt) {
		expiry = expiresAt.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked (token, expiration)
		VALUES (?1, ?2)
		ON CONFLICT(token) DO UPDATE SET expiration=excluded.expiration;`,
		token,
		expiry,
	)
	if err != nil {
		return fmt.Errorf("couldn't insert into revoked: %w", err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed
func (s *Store) Purge(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM revoked
		WHERE expiration<>?1 AND expiration<?2;`,
		neverExpires,
		s.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("couldn't purge revoked: %w", err)
	}
	return result.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}
