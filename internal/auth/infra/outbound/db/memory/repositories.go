package memory

import (
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/auth/domain"
	sharedMemory "github.com/davicafu/criterialab/internal/shared/infra/platform/db/memory"
)

// NewUserRepository crea el repositorio de usuarios en memoria.
func NewUserRepository(log *zap.Logger) domain.UserRepository {
	return domain.NewUserRepository(sharedMemory.NewRepository(domain.UserSchema,
		sharedMemory.WithClone((*domain.User).Clone),
		sharedMemory.WithLogger[*domain.User](log),
	))
}

func NewEmailVerificationRepository(log *zap.Logger) domain.EmailVerificationRepository {
	return domain.NewEmailVerificationRepository(sharedMemory.NewRepository(domain.EmailVerificationSchema,
		sharedMemory.WithClone((*domain.EmailVerification).Clone),
		sharedMemory.WithLogger[*domain.EmailVerification](log),
	))
}
