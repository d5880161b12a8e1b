package domain

import sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"

const (
	UserCreatedEvent    = "users.user.created"
	ProfileUpdatedEvent = "users.user.profile_updated"

	// UserTopic es el topic del bus para los eventos de este contexto.
	UserTopic = "users"
)

type UserCreated struct {
	sharedDomain.BaseEvent
	Email    string `json:"email"`
	Username string `json:"username"`
}

type ProfileUpdated struct {
	sharedDomain.BaseEvent
	Profile Profile `json:"profile"`
}
