package bus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davicafu/criterialab/internal/shared/domain"
)

type pinged struct {
	domain.BaseEvent
	Note string `json:"note"`
}

func TestInMemoryEventBus_PublishSubscribe(t *testing.T) {
	b := NewInMemoryEventBus("test")
	first := b.Subscribe(4)
	second := b.Subscribe(4)

	id := uuid.New()
	require.NoError(t, b.Publish(context.Background(), pinged{BaseEvent: domain.NewBaseEvent("test.pinged", id), Note: "hi"}))

	for _, ch := range []<-chan Message{first, second} {
		msg := <-ch
		assert.Equal(t, "test", msg.Topic)
		assert.Equal(t, "test.pinged", msg.Name)
		assert.Equal(t, id, msg.AggregateID)

		var body map[string]any
		require.NoError(t, json.Unmarshal(msg.Payload, &body))
		assert.Equal(t, "hi", body["note"])
	}
}

func TestInMemoryEventBus_DropsWhenFull(t *testing.T) {
	b := NewInMemoryEventBus("test")
	ch := b.Subscribe(1)
	ev := pinged{BaseEvent: domain.NewBaseEvent("test.pinged", uuid.New())}

	require.NoError(t, b.Publish(context.Background(), ev))
	require.NoError(t, b.Publish(context.Background(), ev))
	assert.Len(t, ch, 1)

	b.Close()
	_, open := <-ch
	assert.True(t, open)
	_, open = <-ch
	assert.False(t, open)

	// publicar tras cerrar no falla
	assert.NoError(t, b.Publish(context.Background(), ev))
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, domain.Event) error {
	p.calls++
	return errors.New("broker down")
}

func TestPublishAll(t *testing.T) {
	b := NewInMemoryEventBus("test")
	ch := b.Subscribe(4)
	events := []domain.Event{
		pinged{BaseEvent: domain.NewBaseEvent("a", uuid.New())},
		pinged{BaseEvent: domain.NewBaseEvent("b", uuid.New())},
	}
	require.NoError(t, PublishAll(context.Background(), b, events))
	assert.Equal(t, "a", (<-ch).Name)
	assert.Equal(t, "b", (<-ch).Name)

	fp := &failingPublisher{}
	assert.Error(t, PublishAll(context.Background(), fp, events))
	assert.Equal(t, 1, fp.calls)

	assert.NoError(t, PublishAll(context.Background(), nil, events))
}
