// Package repotest holds a behaviour suite shared by every repository backend.
package repotest

import (
	"context"
	"testing"
	"time"

	"evotree-backend/application/ports"
	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	pkgerrors "evotree-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Repositories bundles one backend's implementations of the storage ports
type Repositories struct {
	Mechanics ports.MechanicRepository
	Links     ports.LinkRepository
	Users     ports.UserRepository
	Tokens    ports.EmailTokenRepository
}

// Run executes the suite. newRepos must return empty storage on every call.
func Run(t *testing.T, newRepos func(t *testing.T) Repositories) {
	t.Run("Mechanics", func(t *testing.T) { testMechanics(t, newRepos(t)) })
	t.Run("Links", func(t *testing.T) { testLinks(t, newRepos(t)) })
	t.Run("DeleteCascadesLinks", func(t *testing.T) { testCascade(t, newRepos(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newRepos(t)) })
	t.Run("EmailTokens", func(t *testing.T) { testTokens(t, newRepos(t)) })
}

func createMechanic(t *testing.T, repo ports.MechanicRepository, name string) *entities.Mechanic {
	t.Helper()
	m, err := entities.NewMechanic(name, nil, nil)
	require.NoError(t, err)
	created, err := repo.Create(context.Background(), m)
	require.NoError(t, err)
	return created
}

func createLink(t *testing.T, repo ports.LinkRepository, from, to valueobjects.MechanicID, linkType string) *entities.Link {
	t.Helper()
	l, err := entities.NewLink(from, to, linkType)
	require.NoError(t, err)
	created, err := repo.Create(context.Background(), l)
	require.NoError(t, err)
	return created
}

func testMechanics(t *testing.T, repos Repositories) {
	ctx := context.Background()
	repo := repos.Mechanics

	description := "Roll and compare"
	year := 1964
	m, err := entities.NewMechanic("Dice rolling", &description, &year)
	require.NoError(t, err)

	first, err := repo.Create(ctx, m)
	require.NoError(t, err)
	assert.False(t, first.ID().IsZero())

	second := createMechanic(t, repo, "Set collection")
	assert.Greater(t, second.ID(), first.ID())

	got, err := repo.GetByID(ctx, first.ID())
	require.NoError(t, err)
	assert.Equal(t, "Dice rolling", got.Name())
	require.NotNil(t, got.Description())
	assert.Equal(t, description, *got.Description())
	require.NotNil(t, got.Year())
	assert.Equal(t, 1964, *got.Year())

	got, err = repo.GetByID(ctx, second.ID())
	require.NoError(t, err)
	assert.Nil(t, got.Description())
	assert.Nil(t, got.Year())

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID(), all[0].ID())
	assert.Equal(t, second.ID(), all[1].ID())

	changed, err := first.WithChanges("Dice", nil, &year)
	require.NoError(t, err)
	_, err = repo.Update(ctx, changed)
	require.NoError(t, err)
	got, err = repo.GetByID(ctx, first.ID())
	require.NoError(t, err)
	assert.Equal(t, "Dice", got.Name())
	assert.Nil(t, got.Description())

	_, err = repo.GetByID(ctx, 9999)
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = repo.Update(ctx, changed.WithID(9999))
	assert.True(t, pkgerrors.IsNotFound(err))

	require.NoError(t, repo.Delete(ctx, second.ID()))
	assert.True(t, pkgerrors.IsNotFound(repo.Delete(ctx, second.ID())))
}

func testLinks(t *testing.T, repos Repositories) {
	ctx := context.Background()
	a := createMechanic(t, repos.Mechanics, "A")
	b := createMechanic(t, repos.Mechanics, "B")
	c := createMechanic(t, repos.Mechanics, "C")

	ab := createLink(t, repos.Links, a.ID(), b.ID(), "variant")
	createLink(t, repos.Links, b.ID(), c.ID(), "inspired_by")
	ac := createLink(t, repos.Links, a.ID(), c.ID(), "variant")

	got, err := repos.Links.GetByID(ctx, ab.ID())
	require.NoError(t, err)
	assert.Equal(t, a.ID(), got.FromID())
	assert.Equal(t, b.ID(), got.ToID())
	assert.Equal(t, "variant", got.Type())

	all, err := repos.Links.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	fromA, err := repos.Links.ListByFromID(ctx, a.ID())
	require.NoError(t, err)
	require.Len(t, fromA, 2)
	assert.Equal(t, ab.ID(), fromA[0].ID())
	assert.Equal(t, ac.ID(), fromA[1].ID())

	fromC, err := repos.Links.ListByFromID(ctx, c.ID())
	require.NoError(t, err)
	assert.Empty(t, fromC)

	l, err := entities.NewLink(a.ID(), 9999, "variant")
	require.NoError(t, err)
	_, err = repos.Links.Create(ctx, l)
	assert.True(t, pkgerrors.IsNotFound(err))

	require.NoError(t, repos.Links.Delete(ctx, ab.ID()))
	_, err = repos.Links.GetByID(ctx, ab.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.True(t, pkgerrors.IsNotFound(repos.Links.Delete(ctx, ab.ID())))
}

func testCascade(t *testing.T, repos Repositories) {
	ctx := context.Background()
	a := createMechanic(t, repos.Mechanics, "A")
	b := createMechanic(t, repos.Mechanics, "B")
	c := createMechanic(t, repos.Mechanics, "C")

	createLink(t, repos.Links, a.ID(), b.ID(), "x")
	createLink(t, repos.Links, b.ID(), c.ID(), "x")
	kept := createLink(t, repos.Links, a.ID(), c.ID(), "x")

	require.NoError(t, repos.Mechanics.Delete(ctx, b.ID()))

	links, err := repos.Links.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, kept.ID(), links[0].ID())
}

func testUsers(t *testing.T, repos Repositories) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	u, err := entities.NewUser("ada@example.com", "ada", "hash", now)
	require.NoError(t, err)
	created, err := repos.Users.Create(ctx, u)
	require.NoError(t, err)
	assert.False(t, created.ID().IsZero())

	dup, err := entities.NewUser("ADA@example.com", "other", "hash", now)
	require.NoError(t, err)
	_, err = repos.Users.Create(ctx, dup)
	assert.True(t, pkgerrors.IsConflict(err))

	dup, err = entities.NewUser("new@example.com", "ada", "hash", now)
	require.NoError(t, err)
	_, err = repos.Users.Create(ctx, dup)
	assert.True(t, pkgerrors.IsConflict(err))

	byEmail, err := repos.Users.GetByEmail(ctx, "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID(), byEmail.ID())
	assert.True(t, now.Equal(byEmail.CreatedAt()))

	byName, err := repos.Users.GetByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byName.Email())

	_, err = repos.Users.GetByUsername(ctx, "nobody")
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = repos.Users.Update(ctx, created.Verified())
	require.NoError(t, err)
	byID, err := repos.Users.GetByID(ctx, created.ID())
	require.NoError(t, err)
	assert.True(t, byID.IsVerified())

	_, err = repos.Users.Update(ctx, created.WithID(9999))
	assert.True(t, pkgerrors.IsNotFound(err))
}

func testTokens(t *testing.T, repos Repositories) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	u, err := entities.NewUser("ada@example.com", "ada", "hash", now)
	require.NoError(t, err)
	user, err := repos.Users.Create(ctx, u)
	require.NoError(t, err)

	short, err := entities.NewEmailToken(user.ID(), "short-lived", now, time.Hour)
	require.NoError(t, err)
	long, err := entities.NewEmailToken(user.ID(), "long-lived", now, 48*time.Hour)
	require.NoError(t, err)

	shortSaved, err := repos.Tokens.Create(ctx, short)
	require.NoError(t, err)
	_, err = repos.Tokens.Create(ctx, long)
	require.NoError(t, err)

	_, err = repos.Tokens.Create(ctx, short)
	assert.True(t, pkgerrors.IsConflict(err))

	got, err := repos.Tokens.GetByToken(ctx, "short-lived")
	require.NoError(t, err)
	assert.Equal(t, shortSaved.ID(), got.ID())
	assert.Equal(t, user.ID(), got.UserID())
	assert.True(t, now.Add(time.Hour).Equal(got.ExpiresAt()))
	assert.False(t, got.IsUsed())

	require.NoError(t, repos.Tokens.MarkAsUsed(ctx, got.ID()))
	got, err = repos.Tokens.GetByToken(ctx, "short-lived")
	require.NoError(t, err)
	assert.True(t, got.IsUsed())

	_, err = repos.Tokens.GetByToken(ctx, "missing")
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.True(t, pkgerrors.IsNotFound(repos.Tokens.MarkAsUsed(ctx, 9999)))

	removed, err := repos.Tokens.DeleteExpired(ctx, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = repos.Tokens.DeleteExpired(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repos.Tokens.GetByToken(ctx, "short-lived")
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = repos.Tokens.GetByToken(ctx, "long-lived")
	assert.NoError(t, err)
}
