package domain

import (
	"time"

	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
)

const (
	UserRegisteredEvent             = "auth.user.registered"
	UserLoggedInEvent               = "auth.user.logged_in"
	EmailVerificationRequestedEvent = "auth.email_verification.requested"
	EmailVerifiedEvent              = "auth.email_verification.verified"
)

type UserRegistered struct {
	sharedDomain.BaseEvent
	Email string `json:"email"`
}

type UserLoggedIn struct {
	sharedDomain.BaseEvent
	At time.Time `json:"at"`
}

type EmailVerificationRequested struct {
	sharedDomain.BaseEvent
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type EmailVerified struct {
	sharedDomain.BaseEvent
	Email string `json:"email"`
}
