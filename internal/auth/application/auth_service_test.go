package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	authDomain "github.com/davicafu/criterialab/internal/auth/domain"
	authMemory "github.com/davicafu/criterialab/internal/auth/infra/outbound/db/memory"
	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/bus"
)

type fixture struct {
	svc   *AuthService
	clock time.Time
	sub   <-chan bus.Message
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := bus.NewInMemoryEventBus("auth")
	t.Cleanup(b.Close)
	f := &fixture{clock: time.Now(), sub: b.Subscribe(32)}
	f.svc = NewAuthService(
		authMemory.NewUserRepository(zap.NewNop()),
		authMemory.NewEmailVerificationRepository(zap.NewNop()),
		b, zap.NewNop(),
		WithHashCost(bcrypt.MinCost),
		WithVerificationTTL(time.Hour),
		WithClock(func() time.Time { return f.clock }),
	)
	return f
}

func (f *fixture) events() []string {
	var names []string
	for {
		select {
		case msg := <-f.sub:
			names = append(names, msg.Name)
		default:
			return names
		}
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, v, err := f.svc.Register(ctx, " Ana@Example.com ", "ana", "s3cretpass")
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, authDomain.StatusPending, u.Status)
	assert.NotEqual(t, "s3cretpass", u.PasswordHash)
	assert.Equal(t, u.ID, v.UserID)
	assert.Equal(t, []string{authDomain.UserRegisteredEvent, authDomain.EmailVerificationRequestedEvent}, f.events())

	_, _, err = f.svc.Register(ctx, "ANA@example.com", "other", "s3cretpass")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, _, err = f.svc.Register(ctx, "bob@example.com", "bob", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, _, err = f.svc.Register(ctx, "not-an-email", "bob", "s3cretpass")
	assert.ErrorIs(t, err, authDomain.ErrInvalidUser)
}

func TestVerifyAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, v, err := f.svc.Register(ctx, "ana@example.com", "ana", "s3cretpass")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "ana@example.com", "s3cretpass")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	_, err = f.svc.VerifyEmail(ctx, u.ID, "wrong")
	assert.ErrorIs(t, err, authDomain.ErrVerificationMismatch)

	active, err := f.svc.VerifyEmail(ctx, u.ID, v.Code)
	require.NoError(t, err)
	assert.Equal(t, authDomain.StatusActive, active.Status)

	_, err = f.svc.Login(ctx, "ana@example.com", "bad-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "nobody@example.com", "s3cretpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	logged, err := f.svc.Login(ctx, "ANA@example.com", "s3cretpass")
	require.NoError(t, err)
	require.NotNil(t, logged.LastLoginAt)
	assert.Equal(t, criteria.NormalizeTime(f.clock), *logged.LastLoginAt)

	require.NoError(t, f.svc.BlockUser(ctx, u.ID))
	_, err = f.svc.Login(ctx, "ana@example.com", "s3cretpass")
	assert.ErrorIs(t, err, ErrUserBlocked)
}

func TestVerifyEmail_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, v, err := f.svc.Register(ctx, "ana@example.com", "ana", "s3cretpass")
	require.NoError(t, err)

	f.clock = f.clock.Add(2 * time.Hour)
	_, err = f.svc.VerifyEmail(ctx, u.ID, v.Code)
	assert.ErrorIs(t, err, authDomain.ErrVerificationExpired)

	_, err = f.svc.VerifyEmail(ctx, uuid.New(), v.Code)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResendVerification_ReplacesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, first, err := f.svc.Register(ctx, "ana@example.com", "ana", "s3cretpass")
	require.NoError(t, err)

	second, err := f.svc.ResendVerification(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = f.svc.VerifyEmail(ctx, u.ID, first.Code)
	assert.ErrorIs(t, err, authDomain.ErrVerificationMismatch)
	_, err = f.svc.VerifyEmail(ctx, u.ID, second.Code)
	require.NoError(t, err)

	_, err = f.svc.ResendVerification(ctx, u.ID)
	assert.ErrorIs(t, err, authDomain.ErrInvalidUser)
}

func TestSearchUsers_NeverLoggedInFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"ana", "bob", "cid"} {
		u, v, err := f.svc.Register(ctx, name+"@example.com", name, "s3cretpass")
		require.NoError(t, err)
		_, err = f.svc.VerifyEmail(ctx, u.ID, v.Code)
		require.NoError(t, err)
	}
	f.clock = f.clock.Add(time.Minute)
	_, err := f.svc.Login(ctx, "bob@example.com", "s3cretpass")
	require.NoError(t, err)

	c, err := criteria.New(authDomain.UserSchema, nil,
		criteria.OrderBy("lastLoginAt", criteria.Asc),
		criteria.OffsetPagination{Limit: 10})
	require.NoError(t, err)

	page, err := f.svc.SearchUsers(ctx, c)
	require.NoError(t, err)
	require.Len(t, page.Data, 3)
	assert.Nil(t, page.Data[0].LastLoginAt)
	assert.Nil(t, page.Data[1].LastLoginAt)
	assert.Equal(t, "bob", page.Data[2].Username)
}
