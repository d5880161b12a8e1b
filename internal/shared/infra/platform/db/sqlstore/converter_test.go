package sqlstore

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

type row struct {
	ID   string
	Name string
	Seen *time.Time
}

var rowSchema = criteria.NewSchema[*row]("row", "id",
	criteria.StringField("id", func(r *row) string { return r.ID }),
	criteria.StringField("name", func(r *row) string { return r.Name }),
	criteria.NullableTimeField("seenAt", func(r *row) *time.Time { return r.Seen }),
)

func build(t *testing.T, filters criteria.Filters, order criteria.Order, page criteria.Pagination) criteria.Criteria {
	t.Helper()
	c, err := criteria.New(rowSchema, filters, order, page)
	require.NoError(t, err)
	return c
}

func TestSelect_Postgres(t *testing.T) {
	cv := NewConverter(Postgres, map[string]string{"seenAt": "seen_at"})
	c := build(t,
		criteria.NewFilters(
			criteria.NewFilter("name", criteria.Contains, "AB%"),
			criteria.NewFilter("name", criteria.NotEqual, "x"),
		),
		criteria.OrderBy("name", criteria.Desc),
		criteria.OffsetPagination{Limit: 10, Offset: 20})

	sql, args, err := cv.Select(c, "rows", "id", "name").ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT id, name FROM rows WHERE strpos(lower(name), $1) > 0 AND (name IS NULL OR name COLLATE criterialab_en <> $2) `+
			`ORDER BY name COLLATE criterialab_en DESC NULLS LAST, id COLLATE criterialab_en DESC NULLS LAST LIMIT 11 OFFSET 20`,
		sql)
	assert.Equal(t, []any{"ab%", "x"}, args)
}

func TestSelect_SQLiteOffsetWithoutLimit(t *testing.T) {
	cv := NewConverter(SQLite, nil)
	c := build(t, nil, criteria.NoOrder(), criteria.OffsetPagination{Offset: 5})

	sql, _, err := cv.Select(c, "rows", "id").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM rows ORDER BY id COLLATE criterialab_en ASC NULLS FIRST LIMIT -1 OFFSET 5", sql)

	pg, _, err := NewConverter(Postgres, nil).Select(c, "rows", "id").ToSql()
	require.NoError(t, err)
	assert.Contains(t, pg, "OFFSET 5")
	assert.NotContains(t, pg, "LIMIT")
}

func TestSelect_CursorSeek(t *testing.T) {
	cv := NewConverter(SQLite, map[string]string{"seenAt": "seen_at"})
	token := base64.RawURLEncoding.EncodeToString([]byte(`{"v":null,"t":"r-1"}`))
	c := build(t, nil, criteria.OrderBy("seenAt", criteria.Asc), criteria.CursorPagination{Limit: 2, Cursor: token})

	sql, args, err := cv.Select(c, "rows", "id").ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id FROM rows WHERE ((seen_at IS NOT NULL) OR (seen_at IS NULL AND id COLLATE criterialab_en > ?)) "+
			"ORDER BY seen_at ASC NULLS FIRST, id COLLATE criterialab_en ASC NULLS FIRST LIMIT 3",
		sql)
	assert.Equal(t, []any{"r-1"}, args)
}

func TestSelect_CursorSeekMatchesPositionWithCollation(t *testing.T) {
	cv := NewConverter(Postgres, nil)
	token := base64.RawURLEncoding.EncodeToString([]byte(`{"v":"b","t":"r-1"}`))
	c := build(t, nil, criteria.OrderBy("name", criteria.Asc), criteria.CursorPagination{Limit: 2, Cursor: token})

	sql, args, err := cv.Select(c, "rows", "id").ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id FROM rows WHERE ((name COLLATE criterialab_en > $1) OR (name COLLATE criterialab_en = $2 AND id COLLATE criterialab_en > $3)) "+
			"ORDER BY name COLLATE criterialab_en ASC NULLS FIRST, id COLLATE criterialab_en ASC NULLS FIRST LIMIT 3",
		sql)
	assert.Equal(t, []any{"b", "b", "r-1"}, args)
}

func TestDialect_UniqueIndexUsesCollation(t *testing.T) {
	assert.Equal(t, "CREATE UNIQUE INDEX IF NOT EXISTS uniq_rows_name ON rows (name COLLATE criterialab_en)",
		SQLite.UniqueIndex("rows", "name"))
	assert.Equal(t, SQLite.UniqueIndex("rows", "name"), Postgres.UniqueIndex("rows", "name"))
	assert.Empty(t, SQLite.setup)
	require.Len(t, Postgres.setup, 1)
	assert.Contains(t, Postgres.setup[0], "deterministic = false")
}

func TestCount_IgnoresPagination(t *testing.T) {
	cv := NewConverter(Postgres, nil)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := build(t, criteria.NewFilters(criteria.NewFilter("seenAt", criteria.GreaterThan, at)),
		criteria.OrderBy("name", criteria.Asc), criteria.OffsetPagination{Limit: 1, Offset: 3})

	sql, args, err := cv.Count(c, "rows").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM rows WHERE seenAt > $1", sql)
	assert.Equal(t, []any{at}, args)
}

func TestDialect_TimeArgs(t *testing.T) {
	at := time.Date(2024, 2, 3, 4, 5, 6, 7_891_000, time.FixedZone("X", 7200))
	assert.Equal(t, "2024-02-03T02:05:06.007Z", SQLite.Time(at))
	assert.Equal(t, time.Date(2024, 2, 3, 2, 5, 6, 7_000_000, time.UTC), Postgres.Time(at))
	assert.Nil(t, SQLite.NullableTime(nil))

	parsed, err := ScanTime("2024-02-03T02:05:06.007Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 3, 2, 5, 6, 7_000_000, time.UTC), *parsed)

	none, err := ScanTime(nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = ScanTime(42)
	assert.Error(t, err)
}
