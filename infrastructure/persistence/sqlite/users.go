package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	pkgerrors "evotree-backend/pkg/errors"
)

const userColumns = `id, email, username, hashed_password, is_verified, created_at`

// UserRepository implements ports.UserRepository
type UserRepository struct {
	db *sql.DB
}

func scanUser(row rowScanner) (*entities.User, error) {
	var (
		id                        int64
		email, username, password string
		verified                  bool
		createdAt                 int64
	)
	if err := row.Scan(&id, &email, &username, &password, &verified, &createdAt); err != nil {
		return nil, err
	}
	return entities.ReconstructUser(valueobjects.UserID(id), email, username, password, verified, fromNanos(createdAt))
}

func (r *UserRepository) Create(ctx context.Context, u *entities.User) (*entities.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, username, hashed_password, is_verified, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.Email(), u.Username(), u.HashedPassword(), boolInt(u.IsVerified()), toNanos(u.CreatedAt()))
	switch {
	case isUniqueViolation(err, "users.email"):
		return nil, pkgerrors.NewConflictError("Email already registered").WithCode(pkgerrors.CodeEmailTaken)
	case isUniqueViolation(err, "users.username"):
		return nil, pkgerrors.NewConflictError("Username already taken").WithCode(pkgerrors.CodeUsernameTaken)
	case err != nil:
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}
	return u.WithID(valueobjects.UserID(id)), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.Int64())
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *UserRepository) get(ctx context.Context, query string, arg interface{}) (*entities.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *entities.User) (*entities.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ?, username = ?, hashed_password = ?, is_verified = ? WHERE id = ?`,
		u.Email(), u.Username(), u.HashedPassword(), boolInt(u.IsVerified()), u.ID().Int64())
	if err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", u.ID(), err)
	}
	if err := checkAffected(res, pkgerrors.NewNotFoundError("user")); err != nil {
		return nil, err
	}
	return u, nil
}

// EmailTokenRepository implements ports.EmailTokenRepository
type EmailTokenRepository struct {
	db *sql.DB
}

func (r *EmailTokenRepository) Create(ctx context.Context, t *entities.EmailToken) (*entities.EmailToken, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO email_tokens (user_id, token, created_at, expires_at, is_used) VALUES (?, ?, ?, ?, ?)`,
		t.UserID().Int64(), t.Token(), toNanos(t.CreatedAt()), toNanos(t.ExpiresAt()), boolInt(t.IsUsed()))
	switch {
	case isUniqueViolation(err, "email_tokens.token"):
		return nil, pkgerrors.NewConflictError("token already exists")
	case isForeignKeyViolation(err):
		return nil, pkgerrors.NewNotFoundError("user")
	case err != nil:
		return nil, fmt.Errorf("failed to insert email token: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read email token id: %w", err)
	}
	return t.WithID(id), nil
}

func (r *EmailTokenRepository) GetByToken(ctx context.Context, token string) (*entities.EmailToken, error) {
	var (
		id, userID           int64
		value                string
		createdAt, expiresAt int64
		used                 bool
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, created_at, expires_at, is_used FROM email_tokens WHERE token = ?`, token).
		Scan(&id, &userID, &value, &createdAt, &expiresAt, &used)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("email token")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email token: %w", err)
	}
	return entities.ReconstructEmailToken(id, valueobjects.UserID(userID), value, fromNanos(createdAt), fromNanos(expiresAt), used)
}

func (r *EmailTokenRepository) MarkAsUsed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE email_tokens SET is_used = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark email token %d used: %w", id, err)
	}
	return checkAffected(res, pkgerrors.NewNotFoundError("email token"))
}

func (r *EmailTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM email_tokens WHERE expires_at <= ?`, toNanos(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired email tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired email tokens: %w", err)
	}
	return int(n), nil
}
