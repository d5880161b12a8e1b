package memory

import (
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/channels/domain"
	sharedMemory "github.com/davicafu/criterialab/internal/shared/infra/platform/db/memory"
)

func NewChannelRepository(log *zap.Logger) domain.ChannelRepository {
	return domain.NewChannelRepository(sharedMemory.NewRepository(domain.ChannelSchema,
		sharedMemory.WithClone((*domain.Channel).Clone),
		sharedMemory.WithLogger[*domain.Channel](log),
	))
}
