package redisstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/db/dbtest"
)

type item struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

var itemSchema = criteria.NewSchema[*item]("item", "id",
	criteria.StringField("id", func(i *item) string { return i.ID }),
	criteria.StringField("code", func(i *item) string { return i.Code }, criteria.Unique()),
)

var itemCodec = Codec[*item]{
	Marshal: func(i *item) ([]byte, error) { return json.Marshal(i) },
	Unmarshal: func(b []byte) (*item, error) {
		var i item
		err := json.Unmarshal(b, &i)
		return &i, err
	},
}

// cancelOnWrite cancela el ctx del Save justo antes de escribir el documento
// (la única transacción del Save), una sola vez.
type cancelOnWrite struct {
	cancel context.CancelFunc
	armed  bool
}

func (h *cancelOnWrite) BeforeProcess(ctx context.Context, _ redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (h *cancelOnWrite) AfterProcess(context.Context, redis.Cmder) error { return nil }

func (h *cancelOnWrite) BeforeProcessPipeline(ctx context.Context, _ []redis.Cmder) (context.Context, error) {
	if !h.armed {
		return ctx, nil
	}
	h.armed = false
	h.cancel()
	return ctx, context.Canceled
}

func (h *cancelOnWrite) AfterProcessPipeline(context.Context, []redis.Cmder) error { return nil }

func TestSave_CancelledMidwayReleasesClaims(t *testing.T) {
	// Arrange
	client, prefix := dbtest.Redis(t)
	repo := NewRepository(client, prefix, itemSchema, itemCodec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.AddHook(&cancelOnWrite{cancel: cancel, armed: true})

	// Act
	err := repo.Save(ctx, &item{ID: uuid.NewString(), Code: "c-1"})

	// Assert
	require.ErrorIs(t, err, domain.ErrInfrastructure)
	n, err := client.Exists(context.Background(), repo.uniqKey("code", criteria.StringValue("c-1"))).Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	other := &item{ID: uuid.NewString(), Code: "c-1"}
	require.NoError(t, repo.Save(context.Background(), other))
	got, err := repo.FindByID(context.Background(), uuid.MustParse(other.ID))
	require.NoError(t, err)
	assert.Equal(t, "c-1", got.Code)
}

func TestSave_TakesOverStaleClaim(t *testing.T) {
	// Arrange
	ctx := context.Background()
	client, prefix := dbtest.Redis(t)
	core, logs := observer.New(zapcore.InfoLevel)
	repo := NewRepository(client, prefix, itemSchema, itemCodec, zap.New(core))

	// reserva de una entidad que nunca llegó a escribirse
	key := repo.uniqKey("code", criteria.StringValue("c-2"))
	require.NoError(t, client.Set(ctx, key, uuid.NewString(), 0).Err())

	// Act
	winner := &item{ID: uuid.NewString(), Code: "c-2"}
	err := repo.Save(ctx, winner)

	// Assert
	require.NoError(t, err)
	owner, err := client.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, winner.ID, owner)
	assert.Equal(t, 1, logs.FilterMessage("took over stale unique claim").Len())

	// con el dueño vivo la reserva se respeta
	err = repo.Save(ctx, &item{ID: uuid.NewString(), Code: "c-2"})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	field, _ := domain.ConflictField(err)
	assert.Equal(t, "code", field)
}

func TestUniqKey_CanonicallyEquivalentValuesShareClaim(t *testing.T) {
	repo := NewRepository[*item](nil, "p", itemSchema, itemCodec, zap.NewNop())

	assert.Equal(t,
		repo.uniqKey("code", criteria.StringValue("caf\u00e9")),
		repo.uniqKey("code", criteria.StringValue("cafe\u0301")))
	assert.NotEqual(t,
		repo.uniqKey("code", criteria.StringValue("a")),
		repo.uniqKey("code", criteria.StringValue("A")))
}
