package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/bus"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/cache"
	sharedUtils "github.com/davicafu/criterialab/internal/shared/infra/utils"
	userDomain "github.com/davicafu/criterialab/internal/users/domain"
)

const (
	cacheTTL      = time.Minute
	retryAttempts = 3
	retryDelay    = 100 * time.Millisecond
)

// UserService define los casos de uso relacionados con User.
type UserService struct {
	repo   userDomain.UserRepository
	cache  userDomain.UserCache
	events userDomain.EventPublisher
	log    *zap.Logger
	limits Limits
}

// Limits acota el tamaño de página de los listados.
type Limits struct {
	Default int
	Max     int
}

type Option func(*UserService)

func WithLimits(l Limits) Option {
	return func(s *UserService) { s.limits = l }
}

// NewUserService: cache y events son opcionales (nil).
func NewUserService(repo userDomain.UserRepository, cache userDomain.UserCache, events userDomain.EventPublisher, log *zap.Logger, opts ...Option) *UserService {
	s := &UserService{
		repo:   repo,
		cache:  cache,
		events: events,
		log:    log,
		limits: Limits{Default: 20, Max: 100},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---------- Comandos ----------

func (s *UserService) CreateUser(ctx context.Context, email, username string, profile userDomain.Profile, role userDomain.Role) (*userDomain.User, error) {
	u, err := userDomain.NewUser(email, username, profile, role)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, profile userDomain.Profile) (*userDomain.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.UpdateProfile(profile)
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	u.Deactivate()
	return s.save(ctx, u)
}

func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Remove(ctx, id); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

// save persiste, invalida la caché y publica los eventos pendientes.
// Un fallo al publicar no deshace la escritura: se registra.
func (s *UserService) save(ctx context.Context, u *userDomain.User) error {
	if err := s.repo.Save(ctx, u); err != nil {
		return err
	}
	s.invalidate(u.ID)

	if err := bus.PublishAll(ctx, s.events, u.PullEvents()); err != nil {
		s.log.Warn("Failed to publish user events", zap.String("user_id", u.ID.String()), zap.Error(err))
	}
	return nil
}

func (s *UserService) invalidate(id uuid.UUID) {
	if s.cache != nil {
		cache.AsyncDelete(s.cache, userDomain.CacheKeyByID(id), s.log)
	}
}

// ---------- Consultas ----------

// GetUser lee primero de caché; en un miss va al repositorio reintentando
// solo los fallos de infraestructura.
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*userDomain.User, error) {
	if s.cache != nil {
		var u userDomain.User
		if ok, err := s.cache.Get(ctx, userDomain.CacheKeyByID(id), &u); err != nil {
			s.log.Warn("Cache read failed", zap.String("user_id", id.String()), zap.Error(err))
		} else if ok {
			return &u, nil
		}
	}

	var user *userDomain.User
	err := sharedUtils.Retry(ctx, retryAttempts, retryDelay, isTransient, func() error {
		var err error
		user, err = s.repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cache.AsyncSet(s.cache, userDomain.CacheKeyByID(user.ID), user, cacheTTL, s.log)
	}
	return user, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*userDomain.User, error) {
	return s.repo.FindByEmail(ctx, email)
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrInfrastructure)
}
