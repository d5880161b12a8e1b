package main

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/config"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/bus"
	userDomain "github.com/davicafu/criterialab/internal/users/domain"
	userEvents "github.com/davicafu/criterialab/internal/users/infra/inbound/events"
)

const (
	channelTopic = "channels"
	authTopic    = "auth"
)

// eventBuses agrupa un publicador por contexto y sabe arrancar el
// consumidor de usuarios sobre el mismo transporte.
type eventBuses struct {
	users    bus.EventPublisher
	channels bus.EventPublisher
	auth     bus.EventPublisher
	consume  func(ctx context.Context, consumer *userEvents.UserConsumer)
	closers  []func()
}

func (e *eventBuses) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func openEventBuses(cfg *config.Config, log *zap.Logger) *eventBuses {
	if cfg.EventBus == config.BusKafka {
		return openKafkaBuses(cfg, log)
	}
	log.Info("Using in-memory event bus")

	userBus := bus.NewInMemoryEventBus(userDomain.UserTopic)
	channelBus := bus.NewInMemoryEventBus(channelTopic)
	authBus := bus.NewInMemoryEventBus(authTopic)
	messages := userBus.Subscribe(64)

	return &eventBuses{
		users:    userBus,
		channels: channelBus,
		auth:     authBus,
		consume: func(ctx context.Context, consumer *userEvents.UserConsumer) {
			consumer.Run(ctx, messages)
		},
		closers: []func(){userBus.Close, channelBus.Close, authBus.Close},
	}
}

func openKafkaBuses(cfg *config.Config, log *zap.Logger) *eventBuses {
	log.Info("Using Kafka event bus", zap.Strings("brokers", cfg.KafkaBrokers))

	e := &eventBuses{}
	writer := func(topic string) bus.EventPublisher {
		w := &kafka.Writer{
			Addr:                   kafka.TCP(cfg.KafkaBrokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		}
		e.closers = append(e.closers, func() { _ = w.Close() })
		return bus.NewKafkaPublisher(topic, w, log)
	}
	e.users = writer(userDomain.UserTopic)
	e.channels = writer(channelTopic)
	e.auth = writer(authTopic)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    userDomain.UserTopic,
		GroupID:  cfg.KafkaGroupID + "-users",
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	e.closers = append(e.closers, func() { _ = reader.Close() })
	e.consume = func(ctx context.Context, consumer *userEvents.UserConsumer) {
		bus.NewKafkaConsumer(reader, log).Run(ctx, consumer.HandleMessage)
	}
	return e
}
