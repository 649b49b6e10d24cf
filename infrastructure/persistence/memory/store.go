// Package memory keeps every table in process memory. It backs tests and the
// STORAGE_BACKEND=memory mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	pkgerrors "evotree-backend/pkg/errors"
)

// Store holds all records behind a single lock so cascades are atomic
type Store struct {
	mu sync.RWMutex

	mechanics map[valueobjects.MechanicID]*entities.Mechanic
	links     map[valueobjects.LinkID]*entities.Link
	users     map[valueobjects.UserID]*entities.User
	tokens    map[int64]*entities.EmailToken

	nextMechanic int64
	nextLink     int64
	nextUser     int64
	nextToken    int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		mechanics: make(map[valueobjects.MechanicID]*entities.Mechanic),
		links:     make(map[valueobjects.LinkID]*entities.Link),
		users:     make(map[valueobjects.UserID]*entities.User),
		tokens:    make(map[int64]*entities.EmailToken),
	}
}

// MechanicRepository implements ports.MechanicRepository
type MechanicRepository struct{ s *Store }

// LinkRepository implements ports.LinkRepository
type LinkRepository struct{ s *Store }

// UserRepository implements ports.UserRepository
type UserRepository struct{ s *Store }

// EmailTokenRepository implements ports.EmailTokenRepository
type EmailTokenRepository struct{ s *Store }

func (s *Store) Mechanics() *MechanicRepository     { return &MechanicRepository{s: s} }
func (s *Store) Links() *LinkRepository             { return &LinkRepository{s: s} }
func (s *Store) Users() *UserRepository             { return &UserRepository{s: s} }
func (s *Store) EmailTokens() *EmailTokenRepository { return &EmailTokenRepository{s: s} }

// Mechanics

func (r *MechanicRepository) Create(ctx context.Context, m *entities.Mechanic) (*entities.Mechanic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextMechanic++
	created := m.WithID(valueobjects.MechanicID(r.s.nextMechanic))
	r.s.mechanics[created.ID()] = created
	return created, nil
}

func (r *MechanicRepository) GetByID(ctx context.Context, id valueobjects.MechanicID) (*entities.Mechanic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.mechanics[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("mechanic")
	}
	return m, nil
}

func (r *MechanicRepository) ListAll(ctx context.Context) ([]*entities.Mechanic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entities.Mechanic, 0, len(r.s.mechanics))
	for _, m := range r.s.mechanics {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (r *MechanicRepository) Update(ctx context.Context, m *entities.Mechanic) (*entities.Mechanic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.mechanics[m.ID()]; !ok {
		return nil, pkgerrors.NewNotFoundError("mechanic")
	}
	r.s.mechanics[m.ID()] = m
	return m, nil
}

func (r *MechanicRepository) Delete(ctx context.Context, id valueobjects.MechanicID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.mechanics[id]; !ok {
		return pkgerrors.NewNotFoundError("mechanic")
	}
	delete(r.s.mechanics, id)
	for linkID, l := range r.s.links {
		if l.Touches(id) {
			delete(r.s.links, linkID)
		}
	}
	return nil
}

// Links

func (r *LinkRepository) Create(ctx context.Context, l *entities.Link) (*entities.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.mechanics[l.FromID()]; !ok {
		return nil, pkgerrors.NewNotFoundError("mechanic")
	}
	if _, ok := r.s.mechanics[l.ToID()]; !ok {
		return nil, pkgerrors.NewNotFoundError("mechanic")
	}

	r.s.nextLink++
	created := l.WithID(valueobjects.LinkID(r.s.nextLink))
	r.s.links[created.ID()] = created
	return created, nil
}

func (r *LinkRepository) GetByID(ctx context.Context, id valueobjects.LinkID) (*entities.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	l, ok := r.s.links[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("link")
	}
	return l, nil
}

func (r *LinkRepository) ListAll(ctx context.Context) ([]*entities.Link, error) {
	return r.list(ctx, func(*entities.Link) bool { return true })
}

func (r *LinkRepository) ListByFromID(ctx context.Context, fromID valueobjects.MechanicID) ([]*entities.Link, error) {
	return r.list(ctx, func(l *entities.Link) bool { return l.FromID() == fromID })
}

func (r *LinkRepository) list(ctx context.Context, keep func(*entities.Link) bool) ([]*entities.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entities.Link, 0, len(r.s.links))
	for _, l := range r.s.links {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (r *LinkRepository) Delete(ctx context.Context, id valueobjects.LinkID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.links[id]; !ok {
		return pkgerrors.NewNotFoundError("link")
	}
	delete(r.s.links, id)
	return nil
}

// Users

func (r *UserRepository) Create(ctx context.Context, u *entities.User) (*entities.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email(), u.Email()) {
			return nil, pkgerrors.NewConflictError("Email already registered").WithCode(pkgerrors.CodeEmailTaken)
		}
		if existing.Username() == u.Username() {
			return nil, pkgerrors.NewConflictError("Username already taken").WithCode(pkgerrors.CodeUsernameTaken)
		}
	}

	r.s.nextUser++
	created := u.WithID(valueobjects.UserID(r.s.nextUser))
	r.s.users[created.ID()] = created
	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error) {
	return r.find(ctx, func(u *entities.User) bool { return u.ID() == id })
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.find(ctx, func(u *entities.User) bool { return strings.EqualFold(u.Email(), email) })
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return r.find(ctx, func(u *entities.User) bool { return u.Username() == username })
}

func (r *UserRepository) find(ctx context.Context, match func(*entities.User) bool) (*entities.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, pkgerrors.NewNotFoundError("user")
}

func (r *UserRepository) Update(ctx context.Context, u *entities.User) (*entities.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID()]; !ok {
		return nil, pkgerrors.NewNotFoundError("user")
	}
	r.s.users[u.ID()] = u
	return u, nil
}

// Email tokens

func (r *EmailTokenRepository) Create(ctx context.Context, t *entities.EmailToken) (*entities.EmailToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.tokens {
		if existing.Token() == t.Token() {
			return nil, pkgerrors.NewConflictError("token already exists")
		}
	}

	r.s.nextToken++
	created := t.WithID(r.s.nextToken)
	r.s.tokens[created.ID()] = created
	return created, nil
}

func (r *EmailTokenRepository) GetByToken(ctx context.Context, token string) (*entities.EmailToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.tokens {
		if t.Token() == token {
			return t, nil
		}
	}
	return nil, pkgerrors.NewNotFoundError("email token")
}

func (r *EmailTokenRepository) MarkAsUsed(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[id]
	if !ok {
		return pkgerrors.NewNotFoundError("email token")
	}
	r.s.tokens[id] = t.Used()
	return nil
}

func (r *EmailTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	removed := 0
	for id, t := range r.s.tokens {
		if t.IsExpired(now) {
			delete(r.s.tokens, id)
			removed++
		}
	}
	return removed, nil
}
