package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

var (
	ErrVerificationExpired  = errors.New("email verification expired")
	ErrVerificationMismatch = errors.New("email verification code mismatch")
)

// EmailVerification es la verificación pendiente de un usuario; hay como
// mucho una por usuario (userId es único).
type EmailVerification struct {
	sharedDomain.AggregateRoot

	ID         uuid.UUID
	UserID     uuid.UUID
	Email      string
	Code       string
	ExpiresAt  time.Time
	Verified   bool
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

func NewEmailVerification(userID uuid.UUID, email string, ttl time.Duration) *EmailVerification {
	now := criteria.NormalizeTime(time.Now())
	v := &EmailVerification{
		ID:        uuid.New(),
		UserID:    userID,
		Email:     NormalizeEmail(email),
		Code:      uuid.NewString(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	v.Record(EmailVerificationRequested{
		BaseEvent: sharedDomain.NewBaseEvent(EmailVerificationRequestedEvent, v.ID),
		Email:     v.Email,
		ExpiresAt: v.ExpiresAt,
	})
	return v
}

func (v *EmailVerification) IsExpired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// Verify marca la verificación como completada si el código coincide y no ha caducado.
func (v *EmailVerification) Verify(code string, now time.Time) error {
	if v.IsExpired(now) {
		return ErrVerificationExpired
	}
	if code != v.Code {
		return ErrVerificationMismatch
	}
	at := criteria.NormalizeTime(now)
	v.Verified = true
	v.VerifiedAt = &at
	v.Record(EmailVerified{BaseEvent: sharedDomain.NewBaseEvent(EmailVerifiedEvent, v.ID), Email: v.Email})
	return nil
}

func (v *EmailVerification) Clone() *EmailVerification {
	c := *v
	c.AggregateRoot = sharedDomain.AggregateRoot{}
	if v.VerifiedAt != nil {
		t := *v.VerifiedAt
		c.VerifiedAt = &t
	}
	return &c
}

var EmailVerificationSchema = criteria.NewSchema[*EmailVerification]("email_verification", "id",
	criteria.StringField("id", func(v *EmailVerification) string { return v.ID.String() }),
	criteria.StringField("userId", func(v *EmailVerification) string { return v.UserID.String() }, criteria.Unique()),
	criteria.StringField("email", func(v *EmailVerification) string { return v.Email }),
	criteria.TimeField("expiresAt", func(v *EmailVerification) time.Time { return v.ExpiresAt }),
	criteria.BoolField("verified", func(v *EmailVerification) bool { return v.Verified }),
	criteria.NullableTimeField("verifiedAt", func(v *EmailVerification) *time.Time { return v.VerifiedAt }),
	criteria.TimeField("createdAt", func(v *EmailVerification) time.Time { return v.CreatedAt }),
)
