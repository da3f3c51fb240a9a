// Package store persists Feedly credentials and stream continuation tokens
// in SQLite so the command-line tool survives restarts without a new login.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // Registers the sqlite3 driver.

	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

// ErrNotFound is returned when nothing is stored under the requested key.
var ErrNotFound = errors.New("store: not found")

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQLite-backed credential and checkpoint store. Rows are keyed
// by the API base URL so sandbox and production logins do not collide.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// New opens the database at dbPath and applies pending migrations.
func New(ctx context.Context, dbPath string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	dbFile, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open DB file: %w", err)
	}

	dbInstance, err := sqlite3.WithInstance(dbFile, &sqlite3.Config{})
	if err != nil {
		dbFile.Close()
		return nil, fmt.Errorf("create DB instance: %w", err)
	}

	srcInstance, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		dbFile.Close()
		return nil, fmt.Errorf("create source instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcInstance, "sqlite3", dbInstance)
	if err != nil {
		dbFile.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	migrateErr := m.Up()

	fields := []any{"dbPath", dbPath}
	version, dirty, versionErr := m.Version()
	if versionErr == nil {
		fields = append(fields, "version", version, "dirty", dirty)
	} else if !errors.Is(versionErr, migrate.ErrNilVersion) {
		log.WarnContext(ctx, "Failed to fetch migration version",
			"error", versionErr,
			"dbPath", dbPath)
	}

	if migrateErr != nil {
		if !errors.Is(migrateErr, migrate.ErrNoChange) {
			dbFile.Close()
			return nil, fmt.Errorf("apply migrations: %w", migrateErr)
		}
		log.DebugContext(ctx, "No migrations to apply", fields...)
	} else {
		log.InfoContext(ctx, "DB is migrated", fields...)
	}

	return &Store{db: dbFile, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCredential inserts or replaces the credential stored for baseURL.
func (s *Store) SaveCredential(ctx context.Context, baseURL string, cred types.Credential) error {
	const q = `
INSERT INTO credentials (base_url, user_id, refresh_token, access_token, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(base_url) DO UPDATE SET
    user_id = excluded.user_id,
    refresh_token = excluded.refresh_token,
    access_token = excluded.access_token,
    updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, q, baseURL, cred.UserID, cred.RefreshToken, cred.AccessToken); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	s.log.DebugContext(ctx, "Credential saved", "baseURL", baseURL, "userID", cred.UserID)
	return nil
}

// LoadCredential returns the credential stored for baseURL, or ErrNotFound.
func (s *Store) LoadCredential(ctx context.Context, baseURL string) (types.Credential, error) {
	const q = `SELECT user_id, refresh_token, access_token FROM credentials WHERE base_url = ?`

	var cred types.Credential
	err := s.db.QueryRowContext(ctx, q, baseURL).Scan(&cred.UserID, &cred.RefreshToken, &cred.AccessToken)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Credential{}, ErrNotFound
	}
	if err != nil {
		return types.Credential{}, fmt.Errorf("load credential: %w", err)
	}
	return cred, nil
}

// DeleteCredential forgets the credential and every checkpoint stored for
// baseURL. Deleting a missing credential is not an error.
func (s *Store) DeleteCredential(ctx context.Context, baseURL string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE base_url = ?`, baseURL); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE base_url = ?`, baseURL); err != nil {
		return fmt.Errorf("delete checkpoints: %w", err)
	}
	return tx.Commit()
}

// SaveCheckpoint records the continuation token reached on streamID. An
// empty continuation means the stream was drained and clears the checkpoint.
func (s *Store) SaveCheckpoint(ctx context.Context, baseURL, streamID, continuation string) error {
	if continuation == "" {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM checkpoints WHERE base_url = ? AND stream_id = ?`, baseURL, streamID); err != nil {
			return fmt.Errorf("clear checkpoint: %w", err)
		}
		return nil
	}

	const q = `
INSERT INTO checkpoints (base_url, stream_id, continuation, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(base_url, stream_id) DO UPDATE SET
    continuation = excluded.continuation,
    updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, q, baseURL, streamID, continuation); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the continuation token saved for streamID, or
// ErrNotFound.
func (s *Store) LoadCheckpoint(ctx context.Context, baseURL, streamID string) (string, error) {
	var continuation string
	err := s.db.QueryRowContext(ctx,
		`SELECT continuation FROM checkpoints WHERE base_url = ? AND stream_id = ?`,
		baseURL, streamID).Scan(&continuation)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load checkpoint: %w", err)
	}
	return continuation, nil
}
