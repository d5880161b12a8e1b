package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event es un evento de dominio registrado por un agregado.
type Event interface {
	EventName() string
	AggregateID() uuid.UUID
	OccurredAt() time.Time
}

// BaseEvent cubre los campos comunes a todos los eventos.
type BaseEvent struct {
	Name      string    `json:"name"`
	ID        uuid.UUID `json:"aggregateId"`
	Timestamp time.Time `json:"occurredAt"`
}

func NewBaseEvent(name string, id uuid.UUID) BaseEvent {
	return BaseEvent{Name: name, ID: id, Timestamp: time.Now().UTC()}
}

func (e BaseEvent) EventName() string      { return e.Name }
func (e BaseEvent) AggregateID() uuid.UUID { return e.ID }
func (e BaseEvent) OccurredAt() time.Time  { return e.Timestamp }

// AggregateRoot acumula eventos hasta que alguien los recoge con PullEvents.
// Se embebe por valor en las entidades.
type AggregateRoot struct {
	events []Event
}

func (a *AggregateRoot) Record(e Event) {
	a.events = append(a.events, e)
}

// PullEvents devuelve los eventos pendientes y vacía la lista.
func (a *AggregateRoot) PullEvents() []Event {
	out := a.events
	a.events = nil
	return out
}
