package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	sharedMongo "github.com/davicafu/criterialab/internal/shared/infra/platform/db/mongodb"
	"github.com/davicafu/criterialab/internal/users/domain"
)

const usersCollection = "users"

type mongoProfile struct {
	FirstName string `bson:"firstName"`
	LastName  string `bson:"lastName"`
}

// El perfil va anidado: los filtros sobre "profile.firstName" usan la ruta tal cual.
type mongoUser struct {
	ID          string       `bson:"_id"`
	Email       string       `bson:"email"`
	Username    string       `bson:"username"`
	Profile     mongoProfile `bson:"profile"`
	Role        string       `bson:"role"`
	Status      string       `bson:"status"`
	LastLoginAt *time.Time   `bson:"lastLoginAt"`
	CreatedAt   time.Time    `bson:"createdAt"`
}

var userMapper = sharedMongo.Mapper[*domain.User, mongoUser]{
	ToDocument: func(u *domain.User) mongoUser {
		return mongoUser{
			ID:          u.ID.String(),
			Email:       u.Email,
			Username:    u.Username,
			Profile:     mongoProfile{FirstName: u.Profile.FirstName, LastName: u.Profile.LastName},
			Role:        string(u.Role),
			Status:      string(u.Status),
			LastLoginAt: u.LastLoginAt,
			CreatedAt:   u.CreatedAt,
		}
	},
	FromDocument: func(m mongoUser) (*domain.User, error) {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			return nil, err
		}
		u := &domain.User{
			ID:        id,
			Email:     m.Email,
			Username:  m.Username,
			Profile:   domain.Profile{FirstName: m.Profile.FirstName, LastName: m.Profile.LastName},
			Role:      domain.Role(m.Role),
			Status:    domain.Status(m.Status),
			CreatedAt: m.CreatedAt.UTC(),
		}
		if m.LastLoginAt != nil {
			t := m.LastLoginAt.UTC()
			u.LastLoginAt = &t
		}
		return u, nil
	},
}

func NewUserRepository(ctx context.Context, db *mongo.Database, log *zap.Logger) (domain.UserRepository, error) {
	base, err := sharedMongo.NewRepository(ctx, db, sharedMongo.Config[*domain.User, mongoUser]{
		Collection: usersCollection,
		Schema:     domain.UserSchema,
		Mapper:     userMapper,
		Indexes:    []string{"role", "status"},
	}, log)
	if err != nil {
		return nil, err
	}
	return domain.NewUserRepository(base), nil
}
