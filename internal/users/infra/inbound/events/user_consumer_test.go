package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/bus"
	userDomain "github.com/davicafu/criterialab/internal/users/domain"
)

type readerStub struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (r *readerStub) GetUser(_ context.Context, id uuid.UUID) (*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, id)
	if r.err != nil {
		return nil, r.err
	}
	return &userDomain.User{ID: id}, nil
}

func (r *readerStub) Calls() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.calls...)
}

func message(t *testing.T, evt sharedDomain.Event) bus.Message {
	t.Helper()
	payload, err := json.Marshal(evt)
	require.NoError(t, err)
	return bus.Message{Topic: userDomain.UserTopic, Name: evt.EventName(), AggregateID: evt.AggregateID(), Payload: payload}
}

func TestHandleMessage_WarmsCache(t *testing.T) {
	stub := &readerStub{}
	consumer := NewUserConsumer(stub, zap.NewNop())
	id := uuid.New()

	consumer.HandleMessage(context.Background(), message(t, userDomain.UserCreated{
		BaseEvent: sharedDomain.NewBaseEvent(userDomain.UserCreatedEvent, id), Username: "ana",
	}))
	consumer.HandleMessage(context.Background(), message(t, userDomain.ProfileUpdated{
		BaseEvent: sharedDomain.NewBaseEvent(userDomain.ProfileUpdatedEvent, id),
	}))

	assert.Equal(t, []uuid.UUID{id, id}, stub.Calls())
}

func TestHandleMessage_IgnoresUnknownAndInvalid(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	stub := &readerStub{}
	consumer := NewUserConsumer(stub, zap.New(core))

	consumer.HandleMessage(context.Background(), bus.Message{Name: "channels.channel.created", Payload: []byte(`{}`)})
	consumer.HandleMessage(context.Background(), bus.Message{Name: userDomain.UserCreatedEvent, Payload: []byte(`{not json`)})

	assert.Empty(t, stub.Calls())
	assert.Equal(t, 1, logs.FilterMessage("Failed to unmarshal event data").Len())
}

func TestHandleMessage_NotFoundIsNotAWarning(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	stub := &readerStub{err: sharedDomain.NotFound("users.user", uuid.NewString())}
	consumer := NewUserConsumer(stub, zap.New(core))

	consumer.HandleMessage(context.Background(), message(t, userDomain.UserCreated{
		BaseEvent: sharedDomain.NewBaseEvent(userDomain.UserCreatedEvent, uuid.New()),
	}))

	assert.Equal(t, 1, logs.FilterMessage("User no longer exists").Len())
	assert.Zero(t, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestRun_ConsumesFromBus(t *testing.T) {
	b := bus.NewInMemoryEventBus(userDomain.UserTopic)
	stub := &readerStub{}
	consumer := NewUserConsumer(stub, zap.NewNop())

	// suscrito antes de publicar: el bus no guarda mensajes sin suscriptores
	sub := b.Subscribe(4)
	done := make(chan struct{})
	go func() {
		consumer.Run(context.Background(), sub)
		close(done)
	}()

	id := uuid.New()
	require.NoError(t, b.Publish(context.Background(), userDomain.UserCreated{
		BaseEvent: sharedDomain.NewBaseEvent(userDomain.UserCreatedEvent, id),
	}))

	assert.Eventually(t, func() bool { return len(stub.Calls()) == 1 }, time.Second, 10*time.Millisecond)
	b.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
}
