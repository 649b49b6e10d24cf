package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// Migration is one forward step of the schema
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// SchemaVersion records an applied migration
type SchemaVersion struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"applied_at"`
	Checksum    string    `json:"checksum"`
}

// Timestamps are stored as unix nanoseconds so range predicates compare numerically.
var migrations = []Migration{
	{
		Version:     1,
		Description: "mechanics and links",
		SQL: `
CREATE TABLE IF NOT EXISTS mechanics (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	description TEXT,
	year        INTEGER
);

CREATE TABLE IF NOT EXISTS mechanic_links (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	from_id INTEGER NOT NULL REFERENCES mechanics(id) ON DELETE CASCADE,
	to_id   INTEGER NOT NULL REFERENCES mechanics(id) ON DELETE CASCADE,
	type    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mechanic_links_from ON mechanic_links(from_id);
CREATE INDEX IF NOT EXISTS idx_mechanic_links_to ON mechanic_links(to_id);
`,
	},
	{
		Version:     2,
		Description: "users and email verification tokens",
		SQL: `
CREATE TABLE IF NOT EXISTS users (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	email           TEXT NOT NULL UNIQUE COLLATE NOCASE,
	username        TEXT NOT NULL UNIQUE,
	hashed_password TEXT NOT NULL,
	is_verified     INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS email_tokens (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	token      TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	is_used    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_email_tokens_expires ON email_tokens(expires_at);
`,
	},
}

const historyTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version     INTEGER PRIMARY KEY,
	description TEXT NOT NULL,
	checksum    TEXT NOT NULL,
	applied_at  INTEGER NOT NULL
);`

func checksum(m Migration) string {
	sum := sha256.Sum256([]byte(m.SQL))
	return hex.EncodeToString(sum[:])
}

// Migrate applies every pending migration in version order, each in its own
// transaction. An applied migration whose SQL has since changed is an error.
func (s *Store) Migrate(ctx context.Context) error {
	return s.migrate(ctx, migrations)
}

func (s *Store) migrate(ctx context.Context, steps []Migration) error {
	if _, err := s.db.ExecContext(ctx, historyTable); err != nil {
		return fmt.Errorf("failed to create migration history: %w", err)
	}

	applied, err := s.AppliedMigrations(ctx)
	if err != nil {
		return err
	}
	done := make(map[int]SchemaVersion, len(applied))
	for _, v := range applied {
		done[v.Version] = v
	}

	last := 0
	for _, m := range steps {
		if m.Version <= last {
			return fmt.Errorf("invalid migration: version %d must be greater than %d", m.Version, last)
		}
		last = m.Version

		if v, ok := done[m.Version]; ok {
			if v.Checksum != checksum(m) {
				return fmt.Errorf("migration %d (%s) was modified after being applied", m.Version, m.Description)
			}
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description, checksum, applied_at) VALUES (?, ?, ?, ?)`,
		m.Version, m.Description, checksum(m), toNanos(time.Now()),
	); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}
	return tx.Commit()
}

// AppliedMigrations returns the migration history, oldest first.
func (s *Store) AppliedMigrations(ctx context.Context) ([]SchemaVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, description, checksum, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration history: %w", err)
	}
	defer rows.Close()

	var out []SchemaVersion
	for rows.Next() {
		var (
			v         SchemaVersion
			appliedAt int64
		)
		if err := rows.Scan(&v.Version, &v.Description, &v.Checksum, &appliedAt); err != nil {
			return nil, err
		}
		v.AppliedAt = fromNanos(appliedAt)
		out = append(out, v)
	}
	return out, rows.Err()
}

// CurrentVersion reports the highest applied migration, 0 for an empty database.
func (s *Store) CurrentVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}
