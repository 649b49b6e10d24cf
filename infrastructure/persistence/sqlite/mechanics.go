package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	pkgerrors "evotree-backend/pkg/errors"
)

// MechanicRepository implements ports.MechanicRepository
type MechanicRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMechanic(row rowScanner) (*entities.Mechanic, error) {
	var (
		id          int64
		name        string
		description sql.NullString
		year        sql.NullInt64
	)
	if err := row.Scan(&id, &name, &description, &year); err != nil {
		return nil, err
	}

	var descPtr *string
	if description.Valid {
		descPtr = &description.String
	}
	var yearPtr *int
	if year.Valid {
		y := int(year.Int64)
		yearPtr = &y
	}
	return entities.ReconstructMechanic(valueobjects.MechanicID(id), name, descPtr, yearPtr)
}

func nullable(m *entities.Mechanic) (sql.NullString, sql.NullInt64) {
	var description sql.NullString
	if d := m.Description(); d != nil {
		description = sql.NullString{String: *d, Valid: true}
	}
	var year sql.NullInt64
	if y := m.Year(); y != nil {
		year = sql.NullInt64{Int64: int64(*y), Valid: true}
	}
	return description, year
}

func (r *MechanicRepository) Create(ctx context.Context, m *entities.Mechanic) (*entities.Mechanic, error) {
	description, year := nullable(m)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO mechanics (name, description, year) VALUES (?, ?, ?)`,
		m.Name(), description, year)
	if err != nil {
		return nil, fmt.Errorf("failed to insert mechanic: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read mechanic id: %w", err)
	}
	return m.WithID(valueobjects.MechanicID(id)), nil
}

func (r *MechanicRepository) GetByID(ctx context.Context, id valueobjects.MechanicID) (*entities.Mechanic, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, year FROM mechanics WHERE id = ?`, id.Int64())

	m, err := scanMechanic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("mechanic")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mechanic %d: %w", id, err)
	}
	return m, nil
}

func (r *MechanicRepository) ListAll(ctx context.Context) ([]*entities.Mechanic, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, year FROM mechanics ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mechanics: %w", err)
	}
	defer rows.Close()

	out := make([]*entities.Mechanic, 0)
	for rows.Next() {
		m, err := scanMechanic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mechanic: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list mechanics: %w", err)
	}
	return out, nil
}

func (r *MechanicRepository) Update(ctx context.Context, m *entities.Mechanic) (*entities.Mechanic, error) {
	description, year := nullable(m)
	res, err := r.db.ExecContext(ctx,
		`UPDATE mechanics SET name = ?, description = ?, year = ? WHERE id = ?`,
		m.Name(), description, year, m.ID().Int64())
	if err != nil {
		return nil, fmt.Errorf("failed to update mechanic %d: %w", m.ID(), err)
	}
	if err := checkAffected(res, pkgerrors.NewNotFoundError("mechanic")); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes the mechanic; links referencing it go with it through ON DELETE CASCADE.
func (r *MechanicRepository) Delete(ctx context.Context, id valueobjects.MechanicID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM mechanics WHERE id = ?`, id.Int64())
	if err != nil {
		return fmt.Errorf("failed to delete mechanic %d: %w", id, err)
	}
	return checkAffected(res, pkgerrors.NewNotFoundError("mechanic"))
}

// LinkRepository implements ports.LinkRepository
type LinkRepository struct {
	db *sql.DB
}

func scanLink(row rowScanner) (*entities.Link, error) {
	var (
		id, fromID, toID int64
		linkType         string
	)
	if err := row.Scan(&id, &fromID, &toID, &linkType); err != nil {
		return nil, err
	}
	return entities.ReconstructLink(valueobjects.LinkID(id), valueobjects.MechanicID(fromID), valueobjects.MechanicID(toID), linkType)
}

func (r *LinkRepository) Create(ctx context.Context, l *entities.Link) (*entities.Link, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO mechanic_links (from_id, to_id, type) VALUES (?, ?, ?)`,
		l.FromID().Int64(), l.ToID().Int64(), l.Type())
	if isForeignKeyViolation(err) {
		return nil, pkgerrors.NewNotFoundError("mechanic")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert link: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read link id: %w", err)
	}
	return l.WithID(valueobjects.LinkID(id)), nil
}

func (r *LinkRepository) GetByID(ctx context.Context, id valueobjects.LinkID) (*entities.Link, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, from_id, to_id, type FROM mechanic_links WHERE id = ?`, id.Int64())

	l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("link")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link %d: %w", id, err)
	}
	return l, nil
}

func (r *LinkRepository) ListAll(ctx context.Context) ([]*entities.Link, error) {
	return r.query(ctx, `SELECT id, from_id, to_id, type FROM mechanic_links ORDER BY id`)
}

func (r *LinkRepository) ListByFromID(ctx context.Context, fromID valueobjects.MechanicID) ([]*entities.Link, error) {
	return r.query(ctx,
		`SELECT id, from_id, to_id, type FROM mechanic_links WHERE from_id = ? ORDER BY id`,
		fromID.Int64())
}

func (r *LinkRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entities.Link, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	out := make([]*entities.Link, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return out, nil
}

func (r *LinkRepository) Delete(ctx context.Context, id valueobjects.LinkID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM mechanic_links WHERE id = ?`, id.Int64())
	if err != nil {
		return fmt.Errorf("failed to delete link %d: %w", id, err)
	}
	return checkAffected(res, pkgerrors.NewNotFoundError("link"))
}
