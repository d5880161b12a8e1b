package criteria

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id      string
	code    string
	name    string
	score   float64
	active  bool
	seenAt  *time.Time
	created time.Time
}

var itemSchema = NewSchema[*item]("item", "id",
	StringField("id", func(i *item) string { return i.id }),
	StringField("code", func(i *item) string { return i.code }, Unique()),
	StringField("name", func(i *item) string { return i.name }),
	NumberField("score", func(i *item) float64 { return i.score }),
	BoolField("active", func(i *item) bool { return i.active }),
	NullableTimeField("seenAt", func(i *item) *time.Time { return i.seenAt }),
	TimeField("createdAt", func(i *item) time.Time { return i.created }),
)

func invalidField(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCriteria))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	return ve.Field
}

func TestParseOperator(t *testing.T) {
	for in, want := range map[string]Operator{
		"equal": Equal, "Not_Equal": NotEqual, " contains ": Contains, "NOT_CONTAINS": NotContains, "gt": GreaterThan, "lt": LessThan,
	} {
		got, err := ParseOperator(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"is_null", "IS_NOT_NULL", "like", ""} {
		_, err := ParseOperator(in)
		assert.ErrorIs(t, err, ErrInvalidCriteria, in)
	}
}

func TestNew_FilterValidation(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		field  string
	}{
		{"unknown field", NewFilter("missing", Equal, "x"), "missing"},
		{"internal operator", NewFilter("seenAt", IsNull, ""), "seenAt"},
		{"contains on number", NewFilter("score", Contains, "1"), "score"},
		{"gt on string", NewFilter("name", GreaterThan, "a"), "name"},
		{"gt on bool", NewFilter("active", GreaterThan, true), "active"},
		{"bad number", NewFilter("score", Equal, "abc"), "score"},
		{"bad date", NewFilter("createdAt", LessThan, "yesterday"), "createdAt"},
		{"nil value", NewFilter("name", Equal, nil), "name"},
		{"wrong go type", NewFilter("active", Equal, 3), "active"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(itemSchema, Filters{tt.filter}, NoOrder(), nil)
			assert.Equal(t, tt.field, invalidField(t, err))
		})
	}
}

func TestNew_CoercesValues(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.FixedZone("CET", 3600))
	c, err := New(itemSchema, NewFilters(
		NewFilter("score", GreaterThan, 3),
		NewFilter("score", LessThan, "10.5"),
		NewFilter("active", Equal, "true"),
		NewFilter("createdAt", GreaterThan, at),
		NewFilter("createdAt", LessThan, "2024-04-01"),
	), NoOrder(), nil)
	require.NoError(t, err)

	conds := c.Conditions()
	require.Len(t, conds, 5)
	assert.Equal(t, 3.0, conds[0].Value.Number())
	assert.Equal(t, 10.5, conds[1].Value.Number())
	assert.True(t, conds[2].Value.Bool())
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 123000000, time.UTC), conds[3].Value.Time())
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), conds[4].Value.Time())
}

func TestNew_SortAlwaysEndsWithTieBreaker(t *testing.T) {
	c, err := New(itemSchema, nil, NoOrder(), nil)
	require.NoError(t, err)
	assert.Equal(t, []SortKey{{Field: itemSchema.Identity()}}, c.Sort())

	c, err = New(itemSchema, nil, OrderBy("score", Desc), OffsetPagination{Limit: 5})
	require.NoError(t, err)
	sort := c.Sort()
	require.Len(t, sort, 2)
	assert.Equal(t, "score", sort[0].Field.Name)
	assert.True(t, sort[0].Desc)
	assert.Equal(t, "id", sort[1].Field.Name)
	assert.True(t, sort[1].Desc)

	c, err = New(itemSchema, nil, OrderBy("id", Asc), nil)
	require.NoError(t, err)
	assert.Len(t, c.Sort(), 1)

	_, err = New(itemSchema, nil, OrderBy("missing", Asc), nil)
	assert.Equal(t, "missing", invalidField(t, err))

	_, err = New(itemSchema, nil, Order{By: "name", Type: "sideways"}, nil)
	assert.Equal(t, "order", invalidField(t, err))
}

func TestNew_Pagination(t *testing.T) {
	c, err := New(itemSchema, nil, NoOrder(), OffsetPagination{Limit: 10, Offset: 20, WithTotal: true})
	require.NoError(t, err)
	assert.Equal(t, 10, c.Limit())
	assert.Equal(t, 20, c.Offset())
	assert.Equal(t, 11, c.FetchLimit())
	assert.True(t, c.WithTotal())
	assert.False(t, c.IsCursor())
	assert.Nil(t, c.Seek())

	c, err = New(itemSchema, nil, NoOrder(), nil)
	require.NoError(t, err)
	assert.Zero(t, c.FetchLimit())

	_, err = New(itemSchema, nil, NoOrder(), OffsetPagination{Limit: -1})
	assert.Equal(t, "pagination", invalidField(t, err))

	c, err = New(itemSchema, nil, NoOrder(), CursorPagination{Limit: 3})
	require.NoError(t, err)
	assert.True(t, c.IsCursor())
	assert.False(t, c.WithTotal())
	assert.Nil(t, c.Seek())

	_, err = New(itemSchema, nil, NoOrder(), CursorPagination{Limit: 3, TieBreaker: "name"})
	assert.Equal(t, "name", invalidField(t, err))

	c, err = New(itemSchema, nil, OrderBy("score", Asc), CursorPagination{Limit: 3, TieBreaker: "code"})
	require.NoError(t, err)
	assert.Equal(t, "code", c.TieBreaker().Name)
}

func TestCursor_SimpleFormat(t *testing.T) {
	c, err := New(itemSchema, nil, OrderBy("code", Asc), CursorPagination{Limit: 2})
	require.NoError(t, err)

	last := &item{id: "i-7", code: "user1"}
	token := c.NextCursor(itemSchema.Accessor(last))
	assert.Equal(t, "user1", token)

	next, err := New(itemSchema, nil, OrderBy("code", Asc), CursorPagination{Limit: 2, Cursor: token})
	require.NoError(t, err)
	seek := next.Seek()
	require.Len(t, seek, 1)
	require.Len(t, seek[0], 1)
	assert.Equal(t, GreaterThan, seek[0][0].Operator)
	assert.Equal(t, "user1", seek[0][0].Value.Str())

	desc, err := New(itemSchema, nil, OrderBy("code", Desc), CursorPagination{Limit: 2, Cursor: token})
	require.NoError(t, err)
	assert.Equal(t, LessThan, desc.Seek()[0][0].Operator)
}

func TestCursor_CompositeFormat(t *testing.T) {
	c, err := New(itemSchema, nil, OrderBy("score", Asc), CursorPagination{Limit: 2})
	require.NoError(t, err)

	token := c.NextCursor(itemSchema.Accessor(&item{id: "i-3", score: 4.5}))
	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"4.5","t":"i-3"}`, string(raw))

	next, err := New(itemSchema, nil, OrderBy("score", Asc), CursorPagination{Limit: 2, Cursor: token})
	require.NoError(t, err)
	seek := next.Seek()
	require.Len(t, seek, 2)
	assert.Equal(t, GreaterThan, seek[0][0].Operator)
	assert.Equal(t, Equal, seek[1][0].Operator)
	assert.Equal(t, "id", seek[1][1].Field.Name)
	assert.Equal(t, "i-3", seek[1][1].Value.Str())
}

func TestCursor_NullPositions(t *testing.T) {
	seen := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	build := func(o OrderType, last *item) Criteria {
		c, err := New(itemSchema, nil, OrderBy("seenAt", o), CursorPagination{Limit: 1})
		require.NoError(t, err)
		next, err := New(itemSchema, nil, OrderBy("seenAt", o),
			CursorPagination{Limit: 1, Cursor: c.NextCursor(itemSchema.Accessor(last))})
		require.NoError(t, err)
		return next
	}
	ops := func(cl Clause) []Operator {
		var out []Operator
		for _, cond := range cl {
			out = append(out, cond.Operator)
		}
		return out
	}

	// ASC, último nulo: quedan los nulos posteriores y todos los no nulos
	seek := build(Asc, &item{id: "a"}).Seek()
	require.Len(t, seek, 2)
	assert.Equal(t, []Operator{IsNotNull}, ops(seek[0]))
	assert.Equal(t, []Operator{IsNull, GreaterThan}, ops(seek[1]))

	// DESC, último no nulo: menores, nulos, o empate posterior
	seek = build(Desc, &item{id: "b", seenAt: &seen}).Seek()
	require.Len(t, seek, 3)
	assert.Equal(t, []Operator{LessThan}, ops(seek[0]))
	assert.Equal(t, []Operator{IsNull}, ops(seek[1]))
	assert.Equal(t, []Operator{Equal, LessThan}, ops(seek[2]))

	// DESC, último nulo: solo nulos con id menor
	seek = build(Desc, &item{id: "c"}).Seek()
	require.Len(t, seek, 1)
	assert.Equal(t, []Operator{IsNull, LessThan}, ops(seek[0]))
}

func TestCursor_Malformed(t *testing.T) {
	for _, tc := range []struct {
		order  string
		cursor string
	}{
		{"score", "%%%"},
		{"score", base64.RawURLEncoding.EncodeToString([]byte(`{"v":"x","t":"i"}`))},
		{"score", base64.RawURLEncoding.EncodeToString([]byte(`{"v":"1"}`))},
		{"score", base64.RawURLEncoding.EncodeToString([]byte(`{"v":null,"t":"i"}`))},
		{"createdAt", base64.RawURLEncoding.EncodeToString([]byte(`not json`))},
	} {
		_, err := New(itemSchema, nil, OrderBy(tc.order, Asc), CursorPagination{Limit: 1, Cursor: tc.cursor})
		assert.Equal(t, "cursor", invalidField(t, err), tc.cursor)
	}
}

func TestCompareAndEqual(t *testing.T) {
	assert.Negative(t, Compare(NullValue(KindTime), TimeValue(time.Now())))
	assert.Positive(t, Compare(StringValue("b"), StringValue("A")))
	assert.Negative(t, Compare(StringValue("alpha"), StringValue("Beta")))
	assert.Negative(t, Compare(BoolValue(false), BoolValue(true)))
	assert.Zero(t, Compare(NumberValue(2), NumberValue(2)))

	assert.False(t, EqualValues(StringValue("a"), StringValue("A")))
	assert.False(t, EqualValues(NullValue(KindString), NullValue(KindString)))
	assert.True(t, EqualValues(TimeValue(time.Unix(1, 500)), TimeValue(time.Unix(1, 900))))
}

func TestEqualValues_FollowsCollation(t *testing.T) {
	nfc, nfd := StringValue("caf\u00e9"), StringValue("cafe\u0301")

	assert.NotEqual(t, nfc.Str(), nfd.Str())
	assert.Zero(t, Compare(nfc, nfd))
	assert.True(t, EqualValues(nfc, nfd))
	assert.Equal(t, Key(nfc), Key(nfd))

	assert.NotEqual(t, Key(StringValue("a")), Key(StringValue("A")))
	assert.Equal(t, "42", Key(NumberValue(42)))
}

func TestTextRoundTrip(t *testing.T) {
	values := []Value{
		StringValue("héllo"), NumberValue(-12.25), BoolValue(true),
		TimeValue(time.Date(2024, 5, 6, 7, 8, 9, 987654321, time.UTC)),
	}
	for _, v := range values {
		back, err := ParseText(v.Kind(), v.Text())
		require.NoError(t, err)
		assert.True(t, EqualValues(v, back), v.Text())
	}
}
