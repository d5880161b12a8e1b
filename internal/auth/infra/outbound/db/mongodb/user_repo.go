package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/auth/domain"
	sharedMongo "github.com/davicafu/criterialab/internal/shared/infra/platform/db/mongodb"
)

const (
	usersCollection         = "auth_users"
	verificationsCollection = "auth_email_verifications"
)

// --- Structs de BSON para el mapeo ---

type mongoUser struct {
	ID           string     `bson:"_id"`
	Email        string     `bson:"email"`
	Username     string     `bson:"username"`
	PasswordHash string     `bson:"passwordHash"`
	Role         string     `bson:"role"`
	Status       string     `bson:"status"`
	LastLoginAt  *time.Time `bson:"lastLoginAt"`
	CreatedAt    time.Time  `bson:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt"`
}

var userMapper = sharedMongo.Mapper[*domain.User, mongoUser]{
	ToDocument: func(u *domain.User) mongoUser {
		return mongoUser{
			ID: u.ID.String(), Email: u.Email, Username: u.Username, PasswordHash: u.PasswordHash,
			Role: string(u.Role), Status: string(u.Status), LastLoginAt: u.LastLoginAt,
			CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
		}
	},
	FromDocument: func(m mongoUser) (*domain.User, error) {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			return nil, err
		}
		return &domain.User{
			ID: id, Email: m.Email, Username: m.Username, PasswordHash: m.PasswordHash,
			Role: domain.Role(m.Role), Status: domain.Status(m.Status), LastLoginAt: utcPtr(m.LastLoginAt),
			CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC(),
		}, nil
	},
}

// NewUserRepository crea la colección con índices únicos en email y username
// y uno secundario en role.
func NewUserRepository(ctx context.Context, db *mongo.Database, log *zap.Logger) (domain.UserRepository, error) {
	base, err := sharedMongo.NewRepository(ctx, db, sharedMongo.Config[*domain.User, mongoUser]{
		Collection: usersCollection,
		Schema:     domain.UserSchema,
		Mapper:     userMapper,
		Indexes:    []string{"role"},
	}, log)
	if err != nil {
		return nil, err
	}
	return domain.NewUserRepository(base), nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
