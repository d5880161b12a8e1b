package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/shared/infra/platform/db/dbtest"
	"github.com/davicafu/criterialab/internal/users/domain"
	"github.com/davicafu/criterialab/internal/users/infra/outbound/db/repotest"
)

func TestUserRepository_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) domain.UserRepository {
		repo, err := NewUserRepository(context.Background(), dbtest.Mongo(t), zap.NewNop())
		require.NoError(t, err)
		return repo
	})
}
