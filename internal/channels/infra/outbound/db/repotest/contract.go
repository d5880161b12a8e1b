// Package repotest es el contrato común de los backends de ChannelRepository.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davicafu/criterialab/internal/channels/domain"
	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

type Factory func(t *testing.T) domain.ChannelRepository

func Run(t *testing.T, newRepo Factory) {
	t.Run("CRUD", func(t *testing.T) { testCRUD(t, newRepo(t)) })
	t.Run("Uniqueness", func(t *testing.T) { testUniqueness(t, newRepo(t)) })
	t.Run("Filters", func(t *testing.T) { testFilters(t, newRepo(t)) })
	t.Run("Collation", func(t *testing.T) { testCollation(t, newRepo(t)) })
	t.Run("Pagination", func(t *testing.T) { testPagination(t, newRepo(t)) })
	t.Run("Cancellation", func(t *testing.T) { testCancellation(t, newRepo(t)) })
}

func newChannel(t *testing.T, userID uuid.UUID, typ domain.ChannelType, name string) *domain.Channel {
	t.Helper()
	c, err := domain.NewChannel(userID, typ, name, map[string]string{"target": name})
	require.NoError(t, err)
	return c
}

func seed(t *testing.T, repo domain.ChannelRepository, channels ...*domain.Channel) {
	t.Helper()
	for _, c := range channels {
		require.NoError(t, repo.Save(context.Background(), c))
	}
}

func build(t *testing.T, filters criteria.Filters, order criteria.Order, page criteria.Pagination) criteria.Criteria {
	t.Helper()
	c, err := criteria.New(domain.ChannelSchema, filters, order, page)
	require.NoError(t, err)
	return c
}

func find(t *testing.T, repo domain.ChannelRepository, c criteria.Criteria) sharedDomain.PaginatedResult[*domain.Channel] {
	t.Helper()
	res, err := repo.FindByCriteria(context.Background(), c)
	require.NoError(t, err)
	return res
}

func names(channels []*domain.Channel) []string {
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		out = append(out, c.Name)
	}
	return out
}

func ids(channels []*domain.Channel) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(channels))
	for _, c := range channels {
		out = append(out, c.ID)
	}
	return out
}

func sorted(channels []*domain.Channel, field string, desc bool) []*domain.Channel {
	out := append([]*domain.Channel(nil), channels...)
	sort.SliceStable(out, func(i, j int) bool {
		c := criteria.Compare(domain.ChannelSchema.Value(out[i], field), domain.ChannelSchema.Value(out[j], field))
		if c == 0 {
			c = criteria.CompareStrings(out[i].ID.String(), out[j].ID.String())
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func testCRUD(t *testing.T, repo domain.ChannelRepository) {
	ctx := context.Background()
	owner := uuid.New()
	c, err := domain.NewChannel(owner, domain.ChannelWebhook, "deploys", map[string]string{"url": "https://hooks.example.com/x", "secret": "s3"})
	require.NoError(t, err)

	_, err = repo.FindByID(ctx, c.ID)
	assert.ErrorIs(t, err, sharedDomain.ErrNotFound)

	require.NoError(t, repo.Save(ctx, c))
	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, owner, got.UserID)
	assert.Equal(t, domain.ChannelWebhook, got.Type)
	assert.Equal(t, "deploys", got.Name)
	assert.True(t, got.IsActive)
	assert.Equal(t, c.ConnectionConfig, got.ConnectionConfig)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))

	c.Deactivate()
	require.NoError(t, repo.Save(ctx, c))
	got, err = repo.FindByName(ctx, "deploys")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	ok, err := repo.Exists(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Remove(ctx, c.ID))
	require.NoError(t, repo.Remove(ctx, c.ID))
	ok, err = repo.Exists(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.FindByName(ctx, "deploys")
	assert.ErrorIs(t, err, sharedDomain.ErrNotFound)
}

func testUniqueness(t *testing.T, repo domain.ChannelRepository) {
	ctx := context.Background()
	first := newChannel(t, uuid.New(), domain.ChannelSlack, "alerts")
	seed(t, repo, first)

	dup := newChannel(t, uuid.New(), domain.ChannelEmail, "alerts")
	err := repo.Save(ctx, dup)
	require.ErrorIs(t, err, sharedDomain.ErrAlreadyExists)
	field, ok := sharedDomain.ConflictField(err)
	require.True(t, ok)
	assert.Equal(t, "name", field)

	ok, err = repo.Exists(ctx, dup.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// resave de la misma entidad
	require.NoError(t, repo.Save(ctx, first))

	// renombrar libera el nombre
	first.Name = "alerts-old"
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, dup))

	n, err := repo.CountByCriteria(ctx, build(t, nil, criteria.NoOrder(), nil))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testFilters(t *testing.T, repo domain.ChannelRepository) {
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	a1 := newChannel(t, alice, domain.ChannelEmail, "alice-mail")
	a2 := newChannel(t, alice, domain.ChannelSlack, "alice-slack")
	a2.Deactivate()
	b1 := newChannel(t, bob, domain.ChannelSlack, "bob_slack")
	b2 := newChannel(t, bob, domain.ChannelSMS, "sms-100%")
	seed(t, repo, a1, a2, b1, b2)

	run := func(filters ...criteria.Filter) []string {
		t.Helper()
		return names(find(t, repo, build(t, criteria.NewFilters(filters...), criteria.OrderBy("name", criteria.Asc), nil)).Data)
	}

	assert.Equal(t, []string{"alice-mail", "alice-slack"}, run(criteria.NewFilter("userId", criteria.Equal, alice.String())))
	assert.Equal(t, []string{"alice-slack", "bob_slack"}, run(criteria.NewFilter("channelType", criteria.Equal, "slack")))
	assert.Equal(t, []string{"alice-slack"}, run(criteria.NewFilter("isActive", criteria.Equal, false)))
	assert.Equal(t, []string{"alice-mail", "bob_slack", "sms-100%"}, run(criteria.NewFilter("isActive", criteria.NotEqual, false)))
	assert.Equal(t, []string{"alice-mail", "alice-slack"}, run(criteria.NewFilter("name", criteria.Contains, "ALICE")))
	assert.Equal(t, []string{"bob_slack", "sms-100%"}, run(criteria.NewFilter("name", criteria.NotContains, "alice")))

	// comodines de LIKE/regex sin efecto
	assert.Equal(t, []string{"sms-100%"}, run(criteria.NewFilter("name", criteria.Contains, "0%")))
	assert.Equal(t, []string{"bob_slack"}, run(criteria.NewFilter("name", criteria.Contains, "_")))
	assert.Empty(t, run(criteria.NewFilter("name", criteria.Contains, "a.i")))

	assert.Equal(t, []string{"alice-slack"}, run(
		criteria.NewFilter("userId", criteria.Equal, alice.String()),
		criteria.NewFilter("channelType", criteria.Equal, "slack"),
	))

	n, err := repo.CountByCriteria(ctx, build(t, criteria.NewFilters(criteria.NewFilter("userId", criteria.Equal, bob.String())), criteria.NoOrder(), nil))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testCollation(t *testing.T, repo domain.ChannelRepository) {
	owner := uuid.New()
	seed(t, repo,
		newChannel(t, owner, domain.ChannelEmail, "gamma"),
		newChannel(t, owner, domain.ChannelEmail, "Beta"),
		newChannel(t, owner, domain.ChannelEmail, "alpha"),
		newChannel(t, owner, domain.ChannelEmail, "Zeta"),
	)

	// orden de diccionario, no de bytes
	res := find(t, repo, build(t, nil, criteria.OrderBy("name", criteria.Asc), nil))
	assert.Equal(t, []string{"alpha", "Beta", "gamma", "Zeta"}, names(res.Data))

	res = find(t, repo, build(t, nil, criteria.OrderBy("name", criteria.Desc), criteria.CursorPagination{Limit: 3}))
	assert.Equal(t, []string{"Zeta", "gamma", "Beta"}, names(res.Data))
	assert.Equal(t, "Beta", res.Cursor)

	res = find(t, repo, build(t, nil, criteria.OrderBy("name", criteria.Desc), criteria.CursorPagination{Limit: 3, Cursor: res.Cursor}))
	assert.Equal(t, []string{"alpha"}, names(res.Data))
	assert.False(t, res.HasNext)

	// la forma descompuesta de un nombre existente es el mismo nombre
	ctx := context.Background()
	seed(t, repo, newChannel(t, owner, domain.ChannelSMS, "caf\u00e9"))
	err := repo.Save(ctx, newChannel(t, owner, domain.ChannelSMS, "cafe\u0301"))
	require.ErrorIs(t, err, sharedDomain.ErrAlreadyExists)
	field, _ := sharedDomain.ConflictField(err)
	assert.Equal(t, "name", field)

	got, err := repo.FindByName(ctx, "cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", got.Name)

	var all []string
	cursor := ""
	for pages := 0; pages < 10; pages++ {
		res = find(t, repo, build(t, nil, criteria.OrderBy("name", criteria.Asc), criteria.CursorPagination{Limit: 1, Cursor: cursor}))
		all = append(all, names(res.Data)...)
		if !res.HasNext {
			break
		}
		cursor = res.Cursor
	}
	assert.Equal(t, []string{"alpha", "Beta", "caf\u00e9", "gamma", "Zeta"}, all)
}

func testPagination(t *testing.T, repo domain.ChannelRepository) {
	var all []*domain.Channel
	types := []domain.ChannelType{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelSlack}
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 9; i++ {
		c := newChannel(t, uuid.New(), types[i%3], fmt.Sprintf("chan-%d", i))
		// instantes repetidos para forzar el desempate
		c.CreatedAt = start.Add(time.Duration(i/2) * time.Minute)
		all = append(all, c)
	}
	seed(t, repo, all...)

	for _, tc := range []struct {
		field string
		desc  bool
	}{
		{"createdAt", false},
		{"createdAt", true},
		{"channelType", false},
		{"isActive", true},
		{"name", false},
	} {
		t.Run(fmt.Sprintf("%s desc=%v", tc.field, tc.desc), func(t *testing.T) {
			dir := criteria.Asc
			if tc.desc {
				dir = criteria.Desc
			}
			order := criteria.OrderBy(tc.field, dir)
			want := ids(sorted(all, tc.field, tc.desc))

			var got []uuid.UUID
			cursor := ""
			for pages := 0; pages < 20; pages++ {
				res := find(t, repo, build(t, nil, order, criteria.CursorPagination{Limit: 2, Cursor: cursor}))
				got = append(got, ids(res.Data)...)
				if !res.HasNext {
					assert.Empty(t, res.Cursor)
					break
				}
				cursor = res.Cursor
			}
			assert.Equal(t, want, got)

			res := find(t, repo, build(t, nil, order, criteria.OffsetPagination{Limit: 4, Offset: 3, WithTotal: true}))
			assert.Equal(t, want[3:7], ids(res.Data))
			require.NotNil(t, res.Total)
			assert.Equal(t, 9, *res.Total)
		})
	}

	res := find(t, repo, build(t, nil, criteria.NoOrder(), criteria.OffsetPagination{Offset: 7}))
	assert.Equal(t, ids(sorted(all, "id", false))[7:], ids(res.Data))

	res = find(t, repo, build(t, nil, criteria.NoOrder(), criteria.OffsetPagination{Limit: 5, Offset: 50, WithTotal: true}))
	assert.Empty(t, res.Data)
	require.NotNil(t, res.Total)
	assert.Equal(t, 9, *res.Total)
}

func testCancellation(t *testing.T, repo domain.ChannelRepository) {
	c := newChannel(t, uuid.New(), domain.ChannelEmail, "cancelled")
	seed(t, repo, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, repo.Save(ctx, newChannel(t, uuid.New(), domain.ChannelEmail, "late")), sharedDomain.ErrInfrastructure)
	_, err := repo.FindByID(ctx, c.ID)
	assert.ErrorIs(t, err, sharedDomain.ErrInfrastructure)
	_, err = repo.FindByCriteria(ctx, build(t, nil, criteria.NoOrder(), nil))
	assert.ErrorIs(t, err, sharedDomain.ErrInfrastructure)
	_, err = repo.CountByCriteria(ctx, build(t, nil, criteria.NoOrder(), nil))
	assert.ErrorIs(t, err, sharedDomain.ErrInfrastructure)
}
