package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davicafu/criterialab/internal/shared/domain"
)

// EventPublisher publica eventos de dominio. La semántica de topic y el
// formato del payload los decide cada adapter.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Message es lo que reciben los suscriptores: el evento ya serializado.
type Message struct {
	Topic       string          `json:"topic"`
	Name        string          `json:"name"`
	AggregateID uuid.UUID       `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Payload     json.RawMessage `json:"payload"`
}

// NewMessage serializa el evento en el sobre común a todos los transportes.
func NewMessage(topic string, event domain.Event) (Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Topic:       topic,
		Name:        event.EventName(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     payload,
	}, nil
}

// InMemoryEventBus reparte los eventos de UN topic entre sus suscriptores.
// Un suscriptor lento pierde mensajes en lugar de bloquear al publicador.
type InMemoryEventBus struct {
	topic       string
	mu          sync.RWMutex
	subscribers []chan Message
	closed      bool
}

var _ EventPublisher = (*InMemoryEventBus)(nil)

func NewInMemoryEventBus(topic string) *InMemoryEventBus {
	return &InMemoryEventBus{topic: topic}
}

func (b *InMemoryEventBus) Topic() string { return b.topic }

func (b *InMemoryEventBus) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := NewMessage(b.topic, event)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, sub := range b.subscribers {
		select {
		case sub <- msg:
		default:
		}
	}
	return nil
}

// Subscribe devuelve un canal con buffer; se cierra con Close.
func (b *InMemoryEventBus) Subscribe(bufferSize int) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Message, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

func (b *InMemoryEventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
}

// PublishAll publica en orden los eventos extraídos de un agregado y se
// detiene en el primer error.
func PublishAll(ctx context.Context, pub EventPublisher, events []domain.Event) error {
	if pub == nil {
		return nil
	}
	for _, e := range events {
		if err := pub.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
