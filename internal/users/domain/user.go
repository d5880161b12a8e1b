package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

var ErrInvalidUser = errors.New("invalid user")

// Profile son los datos personales del usuario.
type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// User es el usuario visto desde el contexto de gestión de usuarios.
type User struct {
	sharedDomain.AggregateRoot `json:"-"`

	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Profile     Profile    `json:"profile"`
	Role        Role       `json:"role"`
	Status      Status     `json:"status"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func NewUser(email, username string, profile Profile, role Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email %q", ErrInvalidUser, email)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", ErrInvalidUser)
	}
	if role == "" {
		role = RoleUser
	}

	u := &User{
		ID:        uuid.New(),
		Email:     email,
		Username:  username,
		Profile:   profile,
		Role:      role,
		Status:    StatusActive,
		CreatedAt: criteria.NormalizeTime(time.Now()),
	}
	u.Record(UserCreated{BaseEvent: sharedDomain.NewBaseEvent(UserCreatedEvent, u.ID), Email: u.Email, Username: u.Username})
	return u, nil
}

func (u *User) UpdateProfile(p Profile) {
	u.Profile = p
	u.Record(ProfileUpdated{BaseEvent: sharedDomain.NewBaseEvent(ProfileUpdatedEvent, u.ID), Profile: p})
}

func (u *User) Deactivate() { u.Status = StatusInactive }

func (u *User) Clone() *User {
	c := *u
	c.AggregateRoot = sharedDomain.AggregateRoot{}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

var UserSchema = criteria.NewSchema[*User]("users.user", "id",
	criteria.StringField("id", func(u *User) string { return u.ID.String() }),
	criteria.StringField("email", func(u *User) string { return u.Email }, criteria.Unique()),
	criteria.StringField("username", func(u *User) string { return u.Username }, criteria.Unique()),
	criteria.StringField("profile.firstName", func(u *User) string { return u.Profile.FirstName }),
	criteria.StringField("profile.lastName", func(u *User) string { return u.Profile.LastName }),
	criteria.StringField("role", func(u *User) string { return string(u.Role) }),
	criteria.StringField("status", func(u *User) string { return string(u.Status) }),
	criteria.NullableTimeField("lastLoginAt", func(u *User) *time.Time { return u.LastLoginAt }),
	criteria.TimeField("createdAt", func(u *User) time.Time { return u.CreatedAt }),
)
