package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/channels/domain"
	sharedMongo "github.com/davicafu/criterialab/internal/shared/infra/platform/db/mongodb"
)

type mongoChannel struct {
	ID               string            `bson:"_id"`
	UserID           string            `bson:"userId"`
	ChannelType      string            `bson:"channelType"`
	Name             string            `bson:"name"`
	IsActive         bool              `bson:"isActive"`
	ConnectionConfig map[string]string `bson:"connectionConfig"`
	CreatedAt        time.Time         `bson:"createdAt"`
}

var channelMapper = sharedMongo.Mapper[*domain.Channel, mongoChannel]{
	ToDocument: func(c *domain.Channel) mongoChannel {
		return mongoChannel{
			ID: c.ID.String(), UserID: c.UserID.String(), ChannelType: string(c.Type), Name: c.Name,
			IsActive: c.IsActive, ConnectionConfig: c.ConnectionConfig, CreatedAt: c.CreatedAt,
		}
	},
	FromDocument: func(m mongoChannel) (*domain.Channel, error) {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			return nil, err
		}
		userID, err := uuid.Parse(m.UserID)
		if err != nil {
			return nil, err
		}
		cfg := m.ConnectionConfig
		if cfg == nil {
			cfg = map[string]string{}
		}
		return &domain.Channel{
			ID: id, UserID: userID, Type: domain.ChannelType(m.ChannelType), Name: m.Name,
			IsActive: m.IsActive, ConnectionConfig: cfg, CreatedAt: m.CreatedAt.UTC(),
		}, nil
	},
}

func NewChannelRepository(ctx context.Context, db *mongo.Database, log *zap.Logger) (domain.ChannelRepository, error) {
	base, err := sharedMongo.NewRepository(ctx, db, sharedMongo.Config[*domain.Channel, mongoChannel]{
		Collection: "channels",
		Schema:     domain.ChannelSchema,
		Mapper:     channelMapper,
		Indexes:    []string{"userId"},
	}, log)
	if err != nil {
		return nil, err
	}
	return domain.NewChannelRepository(base), nil
}
