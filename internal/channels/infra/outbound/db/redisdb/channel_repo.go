package redisdb

import (
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/channels/domain"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/db/redisstore"
)

type redisChannel struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"userId"`
	ChannelType      string            `json:"channelType"`
	Name             string            `json:"name"`
	IsActive         bool              `json:"isActive"`
	ConnectionConfig map[string]string `json:"connectionConfig"`
	CreatedAt        time.Time         `json:"createdAt"`
}

var channelCodec = redisstore.Codec[*domain.Channel]{
	Marshal: func(c *domain.Channel) ([]byte, error) {
		return json.Marshal(redisChannel{
			ID: c.ID, UserID: c.UserID, ChannelType: string(c.Type), Name: c.Name,
			IsActive: c.IsActive, ConnectionConfig: c.ConnectionConfig, CreatedAt: c.CreatedAt,
		})
	},
	Unmarshal: func(b []byte) (*domain.Channel, error) {
		var rc redisChannel
		if err := json.Unmarshal(b, &rc); err != nil {
			return nil, err
		}
		if rc.ConnectionConfig == nil {
			rc.ConnectionConfig = map[string]string{}
		}
		return &domain.Channel{
			ID: rc.ID, UserID: rc.UserID, Type: domain.ChannelType(rc.ChannelType), Name: rc.Name,
			IsActive: rc.IsActive, ConnectionConfig: rc.ConnectionConfig, CreatedAt: rc.CreatedAt.UTC(),
		}, nil
	},
}

// NewChannelRepository guarda los canales bajo el prefijo dado ("channels" por defecto).
func NewChannelRepository(client redis.UniversalClient, prefix string, log *zap.Logger) domain.ChannelRepository {
	if prefix == "" {
		prefix = "channels"
	}
	return domain.NewChannelRepository(redisstore.NewRepository(client, prefix, domain.ChannelSchema, channelCodec, log))
}
