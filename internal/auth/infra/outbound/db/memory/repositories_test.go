package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/auth/domain"
	"github.com/davicafu/criterialab/internal/auth/infra/outbound/db/repotest"
	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
)

func TestUserRepository_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) domain.UserRepository {
		return NewUserRepository(zap.NewNop())
	})
}

func TestUserRepository_StoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(zap.NewNop())
	u, err := domain.NewUser("copy@example.com", "copy", "hash", domain.RoleUser)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, u))

	// modificar la entidad fuera del repositorio no altera lo guardado
	u.Block()
	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Empty(t, got.PullEvents())
}

func TestUserRepository_ConcurrentSavesKeepUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(zap.NewNop())

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := domain.NewUser("race@example.com", fmt.Sprintf("racer%d", i), "hash", domain.RoleUser)
			if err != nil {
				errs <- err
				return
			}
			errs <- repo.Save(ctx, u)
		}()
	}
	wg.Wait()
	close(errs)

	saved := 0
	for err := range errs {
		if err == nil {
			saved++
			continue
		}
		assert.ErrorIs(t, err, sharedDomain.ErrAlreadyExists)
	}
	assert.Equal(t, 1, saved)
}

func TestEmailVerificationRepository_OnePerUser(t *testing.T) {
	ctx := context.Background()
	repo := NewEmailVerificationRepository(zap.NewNop())
	u, err := domain.NewUser("verify@example.com", "verify", "hash", domain.RoleUser)
	require.NoError(t, err)

	first := domain.NewEmailVerification(u.ID, u.Email, time.Hour)
	require.NoError(t, repo.Save(ctx, first))

	second := domain.NewEmailVerification(u.ID, u.Email, time.Hour)
	err = repo.Save(ctx, second)
	require.ErrorIs(t, err, sharedDomain.ErrAlreadyExists)
	field, _ := sharedDomain.ConflictField(err)
	assert.Equal(t, "userId", field)

	got, err := repo.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	require.NoError(t, got.Verify(first.Code, time.Now()))
	require.NoError(t, repo.Save(ctx, got))
	got, err = repo.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)
	assert.NotNil(t, got.VerifiedAt)
}
