package bus

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/shared/domain"
)

// MessageWriter es la parte de *kafka.Writer que usa el publicador.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageReader es la parte de *kafka.Reader que usa el consumidor.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// KafkaPublisher publica el sobre Message en un topic; la clave es el id
// del agregado para conservar el orden por entidad.
type KafkaPublisher struct {
	topic  string
	writer MessageWriter
	log    *zap.Logger
}

var _ EventPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(topic string, writer MessageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{topic: topic, writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.Event) error {
	msg, err := NewMessage(p.topic, event)
	if err != nil {
		return err
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.AggregateID.String()),
		Value: value,
	}); err != nil {
		p.log.Error("Error publishing to Kafka", zap.String("topic", p.topic), zap.Error(err))
		return err
	}

	p.log.Debug("Event published", zap.String("topic", p.topic), zap.String("name", msg.Name))
	return nil
}

// KafkaConsumer lee mensajes y los entrega a handler ya decodificados.
type KafkaConsumer struct {
	reader MessageReader
	log    *zap.Logger
}

func NewKafkaConsumer(reader MessageReader, log *zap.Logger) *KafkaConsumer {
	return &KafkaConsumer{reader: reader, log: log}
}

// Run bloquea hasta que se cancela ctx. Un mensaje ilegible se descarta.
func (c *KafkaConsumer) Run(ctx context.Context, handler func(context.Context, Message)) {
	for {
		km, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Kafka consumer stopped")
				return
			}
			c.log.Error("Error reading from Kafka", zap.Error(err))
			continue
		}

		var msg Message
		if err := json.Unmarshal(km.Value, &msg); err != nil {
			c.log.Warn("Discarding malformed event", zap.ByteString("key", km.Key), zap.Error(err))
			continue
		}
		handler(ctx, msg)
	}
}
