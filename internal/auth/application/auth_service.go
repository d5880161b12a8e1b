package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	authDomain "github.com/davicafu/criterialab/internal/auth/domain"
	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/bus"
)

const defaultVerificationTTL = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrUserBlocked        = errors.New("user blocked")
	ErrWeakPassword       = errors.New("password must have at least 8 characters")
)

// AuthService cubre registro, verificación de email y login.
type AuthService struct {
	users         authDomain.UserRepository
	verifications authDomain.EmailVerificationRepository
	events        bus.EventPublisher
	log           *zap.Logger

	verificationTTL time.Duration
	hashCost        int
	now             func() time.Time
}

type Option func(*AuthService)

func WithVerificationTTL(ttl time.Duration) Option {
	return func(s *AuthService) { s.verificationTTL = ttl }
}

// WithHashCost permite bajar el coste de bcrypt (tests).
func WithHashCost(cost int) Option {
	return func(s *AuthService) { s.hashCost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(users authDomain.UserRepository, verifications authDomain.EmailVerificationRepository, events bus.EventPublisher, log *zap.Logger, opts ...Option) *AuthService {
	s := &AuthService{
		users:           users,
		verifications:   verifications,
		events:          events,
		log:             log,
		verificationTTL: defaultVerificationTTL,
		hashCost:        bcrypt.DefaultCost,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register crea el usuario en estado pending junto con su verificación.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (*authDomain.User, *authDomain.EmailVerification, error) {
	if len(password) < 8 {
		return nil, nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := authDomain.NewUser(email, username, string(hash), authDomain.RoleUser)
	if err != nil {
		return nil, nil, err
	}
	if err := s.users.Save(ctx, u); err != nil {
		return nil, nil, err
	}
	s.publish(ctx, u.ID, u.PullEvents())

	v, err := s.requestVerification(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, v, nil
}

// ResendVerification sustituye la verificación pendiente por una nueva.
func (s *AuthService) ResendVerification(ctx context.Context, userID uuid.UUID) (*authDomain.EmailVerification, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	old, err := s.verifications.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		if old.Verified {
			return nil, fmt.Errorf("%w: already verified", authDomain.ErrInvalidUser)
		}
		// userId es único: la anterior tiene que desaparecer antes de guardar la nueva
		if err := s.verifications.Remove(ctx, old.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	return s.requestVerification(ctx, u)
}

func (s *AuthService) requestVerification(ctx context.Context, u *authDomain.User) (*authDomain.EmailVerification, error) {
	v := authDomain.NewEmailVerification(u.ID, u.Email, s.verificationTTL)
	if err := s.verifications.Save(ctx, v); err != nil {
		return nil, err
	}
	s.publish(ctx, v.ID, v.PullEvents())
	return v, nil
}

// VerifyEmail valida el código y activa al usuario.
func (s *AuthService) VerifyEmail(ctx context.Context, userID uuid.UUID, code string) (*authDomain.User, error) {
	v, err := s.verifications.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := v.Verify(code, s.now()); err != nil {
		return nil, err
	}
	if err := s.verifications.Save(ctx, v); err != nil {
		return nil, err
	}
	s.publish(ctx, v.ID, v.PullEvents())

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Activate()
	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login comprueba credenciales y estado, y registra el acceso.
func (s *AuthService) Login(ctx context.Context, email, password string) (*authDomain.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	switch u.Status {
	case authDomain.StatusPending:
		return nil, ErrEmailNotVerified
	case authDomain.StatusBlocked:
		return nil, ErrUserBlocked
	}

	u.RecordLogin(s.now())
	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}
	s.publish(ctx, u.ID, u.PullEvents())
	return u, nil
}

func (s *AuthService) BlockUser(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	u.Block()
	return s.users.Save(ctx, u)
}

func (s *AuthService) SearchUsers(ctx context.Context, c criteria.Criteria) (domain.PaginatedResult[*authDomain.User], error) {
	return s.users.FindByCriteria(ctx, c)
}

func (s *AuthService) publish(ctx context.Context, id uuid.UUID, events []domain.Event) {
	if err := bus.PublishAll(ctx, s.events, events); err != nil {
		s.log.Warn("Failed to publish auth events", zap.String("aggregate_id", id.String()), zap.Error(err))
	}
}
