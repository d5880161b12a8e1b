package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/bus"
	sharedUtils "github.com/davicafu/criterialab/internal/shared/infra/utils"
	userDomain "github.com/davicafu/criterialab/internal/users/domain"
)

const handleTimeout = 500 * time.Millisecond

// UserReader es lo único que el consumidor necesita del servicio: GetUser
// lee del repositorio y repuebla la caché.
type UserReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
}

// UserConsumer escucha el topic de usuarios y precalienta la caché tras
// cada alta o cambio de perfil.
type UserConsumer struct {
	service UserReader
	log     *zap.Logger
}

func NewUserConsumer(service UserReader, logger *zap.Logger) *UserConsumer {
	return &UserConsumer{service: service, log: logger}
}

func (c *UserConsumer) HandleMessage(ctx context.Context, msg bus.Message) {
	switch msg.Name {
	case userDomain.UserCreatedEvent:
		sharedUtils.UnmarshalAndHandle(c.log, msg.Payload, func(evt userDomain.UserCreated) {
			c.withContext(ctx, evt.ID, c.warm, "User created", zap.String("username", evt.Username))
		})

	case userDomain.ProfileUpdatedEvent:
		sharedUtils.UnmarshalAndHandle(c.log, msg.Payload, func(evt userDomain.ProfileUpdated) {
			c.withContext(ctx, evt.ID, c.warm, "User profile updated")
		})

	default:
		c.log.Debug("Ignoring event", zap.String("name", msg.Name), zap.String("topic", msg.Topic))
	}
}

func (c *UserConsumer) warm(ctx context.Context, id uuid.UUID) error {
	_, err := c.service.GetUser(ctx, id)
	return err
}

// withContext ejecuta la acción con un timeout propio y registra el resultado.
func (c *UserConsumer) withContext(ctx context.Context, id uuid.UUID, action func(context.Context, uuid.UUID) error, successMsg string, fields ...zap.Field) {
	ctxUser, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	fields = append(fields, zap.String("user_id", id.String()))
	if err := action(ctxUser, id); err != nil {
		// borrado entre la publicación y el consumo
		if errors.Is(err, sharedDomain.ErrNotFound) {
			c.log.Info("User no longer exists", fields...)
			return
		}
		c.log.Warn("Failed to process user event", append(fields, zap.Error(err))...)
		return
	}
	c.log.Info(successMsg, fields...)
}

// Run consume hasta que se cancele ctx o se cierre el canal.
func (c *UserConsumer) Run(ctx context.Context, messages <-chan bus.Message) {
	for {
		select {
		case <-ctx.Done():
			c.log.Info("UserConsumer stopped")
			return
		case msg, ok := <-messages:
			if !ok {
				c.log.Info("UserConsumer channel closed")
				return
			}
			c.HandleMessage(ctx, msg)
		}
	}
}
