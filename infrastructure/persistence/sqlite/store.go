// Package sqlite stores mechanics, links and accounts in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// NewStore opens the database at path and applies the schema.
// WAL mode is enabled and foreign keys are enforced on every connection.
func NewStore(path string) (*Store, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(context.Background()); err != nil {
		s.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Open connects without touching the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Mechanics returns the mechanic repository.
func (s *Store) Mechanics() *MechanicRepository { return &MechanicRepository{db: s.db} }

// Links returns the link repository.
func (s *Store) Links() *LinkRepository { return &LinkRepository{db: s.db} }

// Users returns the user repository.
func (s *Store) Users() *UserRepository { return &UserRepository{db: s.db} }

// EmailTokens returns the verification token repository.
func (s *Store) EmailTokens() *EmailTokenRepository { return &EmailTokenRepository{db: s.db} }

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}

func isUniqueViolation(err error, column string) bool {
	return isConstraint(err, sqlite3.ErrConstraintUnique) && strings.Contains(err.Error(), column)
}

func isForeignKeyViolation(err error) bool {
	return isConstraint(err, sqlite3.ErrConstraintForeignKey)
}

func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
