package domain

import (
	"context"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
)

// ---------- Interfaces (Ports) ----------

// UserRepository añade los finders de User al contrato genérico.
type UserRepository interface {
	sharedDomain.Repository[*User]

	// Devuelve NotFound si no existe. El email se normaliza antes de buscar.
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
}

type EmailVerificationRepository interface {
	sharedDomain.Repository[*EmailVerification]

	FindByUserID(ctx context.Context, userID uuid.UUID) (*EmailVerification, error)
}

// NewUserRepository monta los finders sobre cualquier backend.
func NewUserRepository(base sharedDomain.Repository[*User]) UserRepository {
	return &userRepository{Repository: base}
}

type userRepository struct {
	sharedDomain.Repository[*User]
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return sharedDomain.FindOneBy[*User](ctx, r, UserSchema, "email", NormalizeEmail(email))
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return sharedDomain.FindOneBy[*User](ctx, r, UserSchema, "username", username)
}

func NewEmailVerificationRepository(base sharedDomain.Repository[*EmailVerification]) EmailVerificationRepository {
	return &emailVerificationRepository{Repository: base}
}

type emailVerificationRepository struct {
	sharedDomain.Repository[*EmailVerification]
}

func (r *emailVerificationRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*EmailVerification, error) {
	return sharedDomain.FindOneBy[*EmailVerification](ctx, r, EmailVerificationSchema, "userId", userID.String())
}
