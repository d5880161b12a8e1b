package memory

import (
	"go.uber.org/zap"

	sharedMemory "github.com/davicafu/criterialab/internal/shared/infra/platform/db/memory"
	"github.com/davicafu/criterialab/internal/users/domain"
)

func NewUserRepository(log *zap.Logger) domain.UserRepository {
	return domain.NewUserRepository(sharedMemory.NewRepository(domain.UserSchema,
		sharedMemory.WithClone((*domain.User).Clone),
		sharedMemory.WithLogger[*domain.User](log),
	))
}
