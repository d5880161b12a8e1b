// Package repotest contiene la batería de contrato que debe pasar cualquier
// backend de UserRepository.
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

	"github.com/davicafu/criterialab/internal/auth/domain"
	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

// Factory devuelve un repositorio vacío para cada subtest.
type Factory func(t *testing.T) domain.UserRepository

// Run ejecuta el contrato completo contra el backend.
func Run(t *testing.T, newRepo Factory) {
	t.Run("CRUD", func(t *testing.T) { testCRUD(t, newRepo(t)) })
	t.Run("Uniqueness", func(t *testing.T) { testUniqueness(t, newRepo(t)) })
	t.Run("Finders", func(t *testing.T) { testFinders(t, newRepo(t)) })
	t.Run("CursorScenario", func(t *testing.T) { testCursorScenario(t, newRepo(t)) })
	t.Run("CountScenario", func(t *testing.T) { testCountScenario(t, newRepo(t)) })
	t.Run("OffsetPagination", func(t *testing.T) { testOffset(t, newRepo(t)) })
	t.Run("Filters", func(t *testing.T) { testFilters(t, newRepo(t)) })
	t.Run("NullOrdering", func(t *testing.T) { testNullOrdering(t, newRepo(t)) })
	t.Run("Traversal", func(t *testing.T) { testTraversal(t, newRepo(t)) })
	t.Run("Cancellation", func(t *testing.T) { testCancellation(t, newRepo(t)) })
}

// ---------- Helpers ----------

func newUser(t *testing.T, username string, role domain.Role) *domain.User {
	t.Helper()
	u, err := domain.NewUser(username+"@example.com", username, "hash", role)
	require.NoError(t, err)
	return u
}

func seed(t *testing.T, repo domain.UserRepository, users ...*domain.User) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, repo.Save(context.Background(), u))
	}
}

func build(t *testing.T, filters criteria.Filters, order criteria.Order, page criteria.Pagination) criteria.Criteria {
	t.Helper()
	c, err := criteria.New(domain.UserSchema, filters, order, page)
	require.NoError(t, err)
	return c
}

func find(t *testing.T, repo domain.UserRepository, c criteria.Criteria) sharedDomain.PaginatedResult[*domain.User] {
	t.Helper()
	res, err := repo.FindByCriteria(context.Background(), c)
	require.NoError(t, err)
	return res
}

func usernames(users []*domain.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}

func ids(users []*domain.User) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

// sorted replica el orden esperado: campo principal y desempate por id en la misma dirección.
func sorted(users []*domain.User, field string, desc bool) []*domain.User {
	out := append([]*domain.User(nil), users...)
	sort.SliceStable(out, func(i, j int) bool {
		c := criteria.Compare(domain.UserSchema.Value(out[i], field), domain.UserSchema.Value(out[j], field))
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

// traverse sigue el cursor hasta agotar las páginas.
func traverse(t *testing.T, repo domain.UserRepository, filters criteria.Filters, order criteria.Order, limit int) []*domain.User {
	t.Helper()
	var all []*domain.User
	cursor := ""
	for pages := 0; ; pages++ {
		require.Less(t, pages, 100, "cursor traversal does not terminate")
		res := find(t, repo, build(t, filters, order, criteria.CursorPagination{Limit: limit, Cursor: cursor}))
		require.LessOrEqual(t, len(res.Data), limit)
		all = append(all, res.Data...)
		if !res.HasNext {
			assert.Empty(t, res.Cursor)
			return all
		}
		require.NotEmpty(t, res.Cursor)
		cursor = res.Cursor
	}
}

// ---------- Casos ----------

func testCRUD(t *testing.T, repo domain.UserRepository) {
	ctx := context.Background()
	u := newUser(t, "alice", domain.RoleUser)

	ok, err := repo.Exists(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, sharedDomain.ErrNotFound)

	require.NoError(t, repo.Save(ctx, u))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, domain.RoleUser, got.Role)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Nil(t, got.LastLoginAt)
	assert.True(t, u.CreatedAt.Equal(got.CreatedAt))

	// upsert por identidad
	u.Activate()
	u.RecordLogin(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, u))

	got, err = repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	n, err := repo.CountByCriteria(ctx, build(t, nil, criteria.NoOrder(), nil))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.Remove(ctx, u.ID))
	ok, err = repo.Exists(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// borrar algo inexistente no es un error
	assert.NoError(t, repo.Remove(ctx, u.ID))
	assert.NoError(t, repo.Remove(ctx, uuid.New()))
}

func testUniqueness(t *testing.T, repo domain.UserRepository) {
	ctx := context.Background()
	first := newUser(t, "bob", domain.RoleUser)
	seed(t, repo, first)

	sameEmail, err := domain.NewUser("BOB@example.com", "robert", "hash", domain.RoleUser)
	require.NoError(t, err)
	err = repo.Save(ctx, sameEmail)
	require.ErrorIs(t, err, sharedDomain.ErrAlreadyExists)
	field, ok := sharedDomain.ConflictField(err)
	require.True(t, ok)
	assert.Equal(t, "email", field)

	sameUsername, err := domain.NewUser("other@example.com", "bob", "hash", domain.RoleUser)
	require.NoError(t, err)
	err = repo.Save(ctx, sameUsername)
	require.ErrorIs(t, err, sharedDomain.ErrAlreadyExists)
	field, _ = sharedDomain.ConflictField(err)
	assert.Equal(t, "username", field)

	// los intentos fallidos no dejan rastro
	ok, err = repo.Exists(ctx, sameEmail.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	n, err := repo.CountByCriteria(ctx, build(t, nil, criteria.NoOrder(), nil))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// guardar la misma entidad otra vez no choca consigo misma
	assert.NoError(t, repo.Save(ctx, first))

	// cambiar el valor único libera el anterior
	first.Username = "bobby"
	require.NoError(t, repo.Save(ctx, first))
	assert.NoError(t, repo.Save(ctx, sameUsername))

	// tras borrar, el email vuelve a estar libre
	require.NoError(t, repo.Remove(ctx, first.ID))
	assert.NoError(t, repo.Save(ctx, sameEmail))
}

func testFinders(t *testing.T, repo domain.UserRepository) {
	ctx := context.Background()
	carol := newUser(t, "carol", domain.RoleAdmin)
	seed(t, repo, carol, newUser(t, "dave", domain.RoleUser))

	got, err := repo.FindByEmail(ctx, "  Carol@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, carol.ID, got.ID)

	got, err = repo.FindByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, carol.ID, got.ID)

	// mismo resultado que la consulta genérica
	res := find(t, repo, build(t,
		criteria.NewFilters(criteria.NewFilter("username", criteria.Equal, "carol")),
		criteria.NoOrder(), nil))
	require.Len(t, res.Data, 1)
	assert.Equal(t, got.ID, res.Data[0].ID)

	_, err = repo.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, sharedDomain.ErrNotFound)
	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, sharedDomain.ErrNotFound)
}

func testCursorScenario(t *testing.T, repo domain.UserRepository) {
	for _, name := range []string{"user3", "admin", "user1", "user4", "user2"} {
		seed(t, repo, newUser(t, name, domain.RoleUser))
	}
	order := criteria.OrderBy("username", criteria.Asc)

	page := find(t, repo, build(t, nil, order, criteria.CursorPagination{Limit: 2}))
	assert.Equal(t, []string{"admin", "user1"}, usernames(page.Data))
	assert.Equal(t, "user1", page.Cursor)
	assert.True(t, page.HasNext)
	assert.Nil(t, page.Total)

	// determinismo: misma consulta, mismo resultado y cursor
	again := find(t, repo, build(t, nil, order, criteria.CursorPagination{Limit: 2}))
	assert.Equal(t, ids(page.Data), ids(again.Data))
	assert.Equal(t, page.Cursor, again.Cursor)

	page = find(t, repo, build(t, nil, order, criteria.CursorPagination{Limit: 2, Cursor: "user1"}))
	assert.Equal(t, []string{"user2", "user3"}, usernames(page.Data))
	assert.True(t, page.HasNext)
	require.NotEmpty(t, page.Cursor)

	page = find(t, repo, build(t, nil, order, criteria.CursorPagination{Limit: 2, Cursor: page.Cursor}))
	assert.Equal(t, []string{"user4"}, usernames(page.Data))
	assert.False(t, page.HasNext)
	assert.Empty(t, page.Cursor)
}

func testCountScenario(t *testing.T, repo domain.UserRepository) {
	for i := 0; i < 10; i++ {
		role := domain.RoleUser
		if i%3 == 0 && i < 9 {
			role = domain.RoleAdmin
		}
		seed(t, repo, newUser(t, fmt.Sprintf("member%02d", i), role))
	}
	admins := criteria.NewFilters(criteria.NewFilter("role", criteria.Equal, "admin"))

	n, err := repo.CountByCriteria(context.Background(), build(t, admins, criteria.NoOrder(), nil))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res := find(t, repo, build(t, admins, criteria.NoOrder(), criteria.OffsetPagination{Limit: 1, WithTotal: true}))
	require.NotNil(t, res.Total)
	assert.Equal(t, 3, *res.Total)
	assert.Len(t, res.Data, 1)

	// el conteo ignora la paginación
	n, err = repo.CountByCriteria(context.Background(), build(t, admins, criteria.NoOrder(), criteria.OffsetPagination{Limit: 1, Offset: 2}))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// sin WithTotal no hay total
	res = find(t, repo, build(t, admins, criteria.NoOrder(), criteria.OffsetPagination{Limit: 1}))
	assert.Nil(t, res.Total)
}

func testOffset(t *testing.T, repo domain.UserRepository) {
	var all []*domain.User
	for i := 0; i < 7; i++ {
		u := newUser(t, fmt.Sprintf("off%d", i), domain.RoleUser)
		all = append(all, u)
	}
	seed(t, repo, all...)
	want := sorted(all, "username", false)
	order := criteria.OrderBy("username", criteria.Asc)

	cases := []struct {
		name          string
		limit, offset int
		from, to      int
	}{
		{"first page", 3, 0, 0, 3},
		{"middle page", 3, 3, 3, 6},
		{"clipped page", 3, 6, 6, 7},
		{"limit beyond rows", 50, 2, 2, 7},
		{"no limit", 0, 4, 4, 7},
		{"offset beyond rows", 3, 20, 7, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := find(t, repo, build(t, nil, order, criteria.OffsetPagination{Limit: tc.limit, Offset: tc.offset, WithTotal: true}))
			assert.Equal(t, ids(want[tc.from:tc.to]), ids(res.Data))
			require.NotNil(t, res.Total)
			assert.Equal(t, 7, *res.Total)
			assert.NotNil(t, res.Data)
			assert.Empty(t, res.Cursor)
		})
	}

	// sin orden: identidad ascendente
	res := find(t, repo, build(t, nil, criteria.NoOrder(), nil))
	assert.Equal(t, ids(sorted(all, "id", false)), ids(res.Data))

	desc := find(t, repo, build(t, nil, criteria.OrderBy("username", criteria.Desc), criteria.OffsetPagination{Limit: 2}))
	assert.Equal(t, []string{"off6", "off5"}, usernames(desc.Data))
}

func testFilters(t *testing.T, repo domain.UserRepository) {
	ctx := context.Background()
	ana := newUser(t, "ana", domain.RoleAdmin)
	ana.Activate()
	anabel := newUser(t, "Anabel", domain.RoleUser)
	anabel.Activate()
	bruno := newUser(t, "bruno", domain.RoleAdmin)
	seed(t, repo, ana, anabel, bruno)

	run := func(filters ...criteria.Filter) []uuid.UUID {
		t.Helper()
		res := find(t, repo, build(t, criteria.NewFilters(filters...), criteria.OrderBy("username", criteria.Asc), nil))
		return ids(res.Data)
	}

	assert.Equal(t, []uuid.UUID{ana.ID, bruno.ID}, run(criteria.NewFilter("role", criteria.Equal, "admin")))
	assert.Equal(t, []uuid.UUID{anabel.ID}, run(criteria.NewFilter("role", criteria.NotEqual, "admin")))

	// CONTAINS no distingue mayúsculas
	assert.Equal(t, []uuid.UUID{ana.ID, anabel.ID}, run(criteria.NewFilter("username", criteria.Contains, "AN")))
	assert.Equal(t, []uuid.UUID{bruno.ID}, run(criteria.NewFilter("username", criteria.NotContains, "an")))
	// los metacaracteres se toman literalmente
	assert.Empty(t, run(criteria.NewFilter("email", criteria.Contains, ".*")))
	assert.Len(t, run(criteria.NewFilter("email", criteria.Contains, "@example.")), 3)

	// AND es la intersección
	admins := run(criteria.NewFilter("role", criteria.Equal, "admin"))
	active := run(criteria.NewFilter("status", criteria.Equal, "active"))
	both := run(
		criteria.NewFilter("role", criteria.Equal, "admin"),
		criteria.NewFilter("status", criteria.Equal, "active"),
	)
	assert.Equal(t, intersect(admins, active), both)
	assert.Equal(t, []uuid.UUID{ana.ID}, both)

	// rangos de fecha
	future := time.Now().Add(time.Hour)
	assert.Len(t, run(criteria.NewFilter("createdAt", criteria.LessThan, future)), 3)
	assert.Empty(t, run(criteria.NewFilter("createdAt", criteria.GreaterThan, future)))

	n, err := repo.CountByCriteria(ctx, build(t, criteria.NewFilters(criteria.NewFilter("username", criteria.Contains, "an")), criteria.NoOrder(), nil))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func intersect(a, b []uuid.UUID) []uuid.UUID {
	in := make(map[uuid.UUID]bool, len(b))
	for _, id := range b {
		in[id] = true
	}
	out := []uuid.UUID{}
	for _, id := range a {
		if in[id] {
			out = append(out, id)
		}
	}
	return out
}

func testNullOrdering(t *testing.T, repo domain.UserRepository) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var all []*domain.User
	for i := 0; i < 6; i++ {
		u := newUser(t, fmt.Sprintf("login%d", i), domain.RoleUser)
		if i%2 == 1 {
			u.RecordLogin(base.Add(time.Duration(6-i) * time.Hour))
		}
		all = append(all, u)
	}
	seed(t, repo, all...)

	asc := find(t, repo, build(t, nil, criteria.OrderBy("lastLoginAt", criteria.Asc), nil))
	assert.Equal(t, ids(sorted(all, "lastLoginAt", false)), ids(asc.Data))
	for _, u := range asc.Data[:3] {
		assert.Nil(t, u.LastLoginAt, "never-logged users sort first ascending")
	}

	desc := find(t, repo, build(t, nil, criteria.OrderBy("lastLoginAt", criteria.Desc), nil))
	assert.Equal(t, ids(sorted(all, "lastLoginAt", true)), ids(desc.Data))
	for _, u := range desc.Data[3:] {
		assert.Nil(t, u.LastLoginAt, "never-logged users sort last descending")
	}

	// un valor nulo no cumple GT/LT/EQUAL
	after := criteria.NewFilters(criteria.NewFilter("lastLoginAt", criteria.GreaterThan, base))
	res := find(t, repo, build(t, after, criteria.NoOrder(), nil))
	assert.Len(t, res.Data, 3)
	notAt := criteria.NewFilters(criteria.NewFilter("lastLoginAt", criteria.NotEqual, base.Add(5*time.Hour)))
	res = find(t, repo, build(t, notAt, criteria.NoOrder(), nil))
	assert.Len(t, res.Data, 5)

	// el cursor atraviesa el grupo nulo en ambos sentidos
	assert.Equal(t, ids(sorted(all, "lastLoginAt", false)), ids(traverse(t, repo, nil, criteria.OrderBy("lastLoginAt", criteria.Asc), 2)))
	assert.Equal(t, ids(sorted(all, "lastLoginAt", true)), ids(traverse(t, repo, nil, criteria.OrderBy("lastLoginAt", criteria.Desc), 2)))
}

func testTraversal(t *testing.T, repo domain.UserRepository) {
	var all []*domain.User
	roles := []domain.Role{domain.RoleUser, domain.RoleAdmin}
	for i := 0; i < 11; i++ {
		all = append(all, newUser(t, fmt.Sprintf("walker%02d", i), roles[i%2]))
	}
	seed(t, repo, all...)

	for _, limit := range []int{1, 3, 4, 11, 20} {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			got := traverse(t, repo, nil, criteria.OrderBy("username", criteria.Desc), limit)
			assert.Equal(t, ids(sorted(all, "username", true)), ids(got))

			// orden por un campo con empates (role): el desempate completa el orden
			got = traverse(t, repo, nil, criteria.OrderBy("role", criteria.Asc), limit)
			assert.Equal(t, ids(sorted(all, "role", false)), ids(got))

			got = traverse(t, repo, nil, criteria.NoOrder(), limit)
			assert.Equal(t, ids(sorted(all, "id", false)), ids(got))
		})
	}

	admins := criteria.NewFilters(criteria.NewFilter("role", criteria.Equal, "admin"))
	var want []*domain.User
	for _, u := range all {
		if u.Role == domain.RoleAdmin {
			want = append(want, u)
		}
	}
	got := traverse(t, repo, admins, criteria.OrderBy("createdAt", criteria.Asc), 2)
	assert.Equal(t, ids(sorted(want, "createdAt", false)), ids(got))

	// un cursor corrupto se rechaza al construir la consulta
	_, err := criteria.New(domain.UserSchema, nil, criteria.OrderBy("role", criteria.Asc), criteria.CursorPagination{Limit: 2, Cursor: "%%%"})
	assert.ErrorIs(t, err, criteria.ErrInvalidCriteria)
}

func testCancellation(t *testing.T, repo domain.UserRepository) {
	u := newUser(t, "erin", domain.RoleUser)
	seed(t, repo, u)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, repo.Save(ctx, newUser(t, "frank", domain.RoleUser)), sharedDomain.ErrInfrastructure)
	_, err := repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, sharedDomain.ErrInfrastructure)
	_, err = repo.FindByCriteria(ctx, build(t, nil, criteria.NoOrder(), nil))
	assert.ErrorIs(t, err, sharedDomain.ErrInfrastructure)
	_, err = repo.CountByCriteria(ctx, build(t, nil, criteria.NoOrder(), nil))
	assert.ErrorIs(t, err, sharedDomain.ErrInfrastructure)
	_, err = repo.Exists(ctx, u.ID)
	assert.ErrorIs(t, err, sharedDomain.ErrInfrastructure)
}
