// Package repotest comprueba los campos anidados (profile.*) y la unicidad
// de los backends de UserRepository del contexto users.
package repotest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
	"github.com/davicafu/criterialab/internal/users/domain"
)

type Factory func(t *testing.T) domain.UserRepository

func Run(t *testing.T, newRepo Factory) {
	t.Run("NestedProfileFields", func(t *testing.T) { testNested(t, newRepo(t)) })
	t.Run("Uniqueness", func(t *testing.T) { testUniqueness(t, newRepo(t)) })
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newRepo(t)) })
	t.Run("CanonicallyEquivalentNames", func(t *testing.T) { testEquivalentNames(t, newRepo(t)) })
}

func mustUser(t *testing.T, username, first, last string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(username+"@example.com", username, domain.Profile{FirstName: first, LastName: last}, domain.RoleUser)
	require.NoError(t, err)
	return u
}

func testNested(t *testing.T, repo domain.UserRepository) {
	ctx := context.Background()
	for _, u := range []*domain.User{
		mustUser(t, "u1", "Zoe", "Adams"),
		mustUser(t, "u2", "ana", "Brown"),
		mustUser(t, "u3", "Bea", "Adams"),
	} {
		require.NoError(t, repo.Save(ctx, u))
	}

	c, err := criteria.New(domain.UserSchema, nil, criteria.OrderBy("profile.firstName", criteria.Asc), nil)
	require.NoError(t, err)
	res, err := repo.FindByCriteria(ctx, c)
	require.NoError(t, err)
	var first []string
	for _, u := range res.Data {
		first = append(first, u.Profile.FirstName)
	}
	assert.Equal(t, []string{"ana", "Bea", "Zoe"}, first)

	c, err = criteria.New(domain.UserSchema,
		criteria.NewFilters(criteria.NewFilter("profile.lastName", criteria.Equal, "Adams")),
		criteria.OrderBy("username", criteria.Desc),
		criteria.CursorPagination{Limit: 1},
	)
	require.NoError(t, err)
	res, err = repo.FindByCriteria(ctx, c)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "u3", res.Data[0].Username)
	assert.True(t, res.HasNext)
	assert.Equal(t, "u3", res.Cursor)

	n, err := repo.CountByCriteria(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testUniqueness(t *testing.T, repo domain.UserRepository) {
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, mustUser(t, "same", "A", "B")))

	other, err := domain.NewUser("same@example.com", "different", domain.Profile{}, domain.RoleUser)
	require.NoError(t, err)
	err = repo.Save(ctx, other)
	require.ErrorIs(t, err, sharedDomain.ErrAlreadyExists)
	field, _ := sharedDomain.ConflictField(err)
	assert.Equal(t, "email", field)
}

func testRoundTrip(t *testing.T, repo domain.UserRepository) {
	ctx := context.Background()
	u := mustUser(t, "trip", "Tomás", "Íñiguez")
	require.NoError(t, repo.Save(ctx, u))

	got, err := repo.FindByUsername(ctx, "trip")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.Profile, got.Profile)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.Nil(t, got.LastLoginAt)
	assert.True(t, u.CreatedAt.Equal(got.CreatedAt))

	got, err = repo.FindByEmail(ctx, "TRIP@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

// "café" precompuesto y descompuesto ordenan igual: el cursor desempata por id
// y EQUAL los trata como el mismo valor.
func testEquivalentNames(t *testing.T, repo domain.UserRepository) {
	ctx := context.Background()
	upper := mustUser(t, "n1", "Cafe", "X")
	composed := mustUser(t, "n2", "caf\u00e9", "X")
	decomposed := mustUser(t, "n3", "cafe\u0301", "X")
	for _, u := range []*domain.User{composed, upper, decomposed} {
		require.NoError(t, repo.Save(ctx, u))
	}

	tied := []uuid.UUID{composed.ID, decomposed.ID}
	if criteria.CompareStrings(tied[0].String(), tied[1].String()) > 0 {
		tied[0], tied[1] = tied[1], tied[0]
	}
	want := append([]uuid.UUID{upper.ID}, tied...)

	var got []uuid.UUID
	cursor := ""
	for pages := 0; pages < 5; pages++ {
		c, err := criteria.New(domain.UserSchema, nil,
			criteria.OrderBy("profile.firstName", criteria.Asc),
			criteria.CursorPagination{Limit: 1, Cursor: cursor})
		require.NoError(t, err)
		res, err := repo.FindByCriteria(ctx, c)
		require.NoError(t, err)
		for _, u := range res.Data {
			got = append(got, u.ID)
		}
		if !res.HasNext {
			break
		}
		cursor = res.Cursor
	}
	assert.Equal(t, want, got)

	c, err := criteria.New(domain.UserSchema,
		criteria.NewFilters(criteria.NewFilter("profile.firstName", criteria.Equal, "cafe\u0301")), criteria.NoOrder(), nil)
	require.NoError(t, err)
	n, err := repo.CountByCriteria(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
