package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/channels/domain"
	"github.com/davicafu/criterialab/internal/channels/infra/outbound/db/repotest"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/db/dbtest"
)

func TestChannelRepository_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) domain.ChannelRepository {
		repo, err := NewChannelRepository(context.Background(), dbtest.Mongo(t), zap.NewNop())
		require.NoError(t, err)
		return repo
	})
}
