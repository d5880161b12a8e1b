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

type mongoEmailVerification struct {
	ID         string     `bson:"_id"`
	UserID     string     `bson:"userId"`
	Email      string     `bson:"email"`
	Code       string     `bson:"code"`
	ExpiresAt  time.Time  `bson:"expiresAt"`
	Verified   bool       `bson:"verified"`
	VerifiedAt *time.Time `bson:"verifiedAt"`
	CreatedAt  time.Time  `bson:"createdAt"`
}

var verificationMapper = sharedMongo.Mapper[*domain.EmailVerification, mongoEmailVerification]{
	ToDocument: func(v *domain.EmailVerification) mongoEmailVerification {
		return mongoEmailVerification{
			ID: v.ID.String(), UserID: v.UserID.String(), Email: v.Email, Code: v.Code,
			ExpiresAt: v.ExpiresAt, Verified: v.Verified, VerifiedAt: v.VerifiedAt, CreatedAt: v.CreatedAt,
		}
	},
	FromDocument: func(m mongoEmailVerification) (*domain.EmailVerification, error) {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			return nil, err
		}
		userID, err := uuid.Parse(m.UserID)
		if err != nil {
			return nil, err
		}
		return &domain.EmailVerification{
			ID: id, UserID: userID, Email: m.Email, Code: m.Code,
			ExpiresAt: m.ExpiresAt.UTC(), Verified: m.Verified, VerifiedAt: utcPtr(m.VerifiedAt), CreatedAt: m.CreatedAt.UTC(),
		}, nil
	},
}

func NewEmailVerificationRepository(ctx context.Context, db *mongo.Database, log *zap.Logger) (domain.EmailVerificationRepository, error) {
	base, err := sharedMongo.NewRepository(ctx, db, sharedMongo.Config[*domain.EmailVerification, mongoEmailVerification]{
		Collection: verificationsCollection,
		Schema:     domain.EmailVerificationSchema,
		Mapper:     verificationMapper,
	}, log)
	if err != nil {
		return nil, err
	}
	return domain.NewEmailVerificationRepository(base), nil
}
