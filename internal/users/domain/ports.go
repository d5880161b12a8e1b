package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
)

// ---------- Interfaces (Ports) ----------

type UserRepository interface {
	sharedDomain.Repository[*User]

	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
}

// UserCache guarda usuarios serializados por clave.
type UserCache interface {
	// Get intenta poblar dest (puntero). (true, nil) si hay hit.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publica los eventos de dominio ya extraídos con PullEvents.
type EventPublisher interface {
	Publish(ctx context.Context, event sharedDomain.Event) error
}

func NewUserRepository(base sharedDomain.Repository[*User]) UserRepository {
	return &userRepository{Repository: base}
}

type userRepository struct {
	sharedDomain.Repository[*User]
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return sharedDomain.FindOneBy[*User](ctx, r, UserSchema, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return sharedDomain.FindOneBy[*User](ctx, r, UserSchema, "username", username)
}

// CacheKeyByID forma una key consistente para cache usando ID.
func CacheKeyByID(id uuid.UUID) string {
	return fmt.Sprintf("user:id:%s", id.String())
}
