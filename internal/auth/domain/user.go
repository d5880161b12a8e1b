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
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

var ErrInvalidUser = errors.New("invalid user")

// User es la cuenta de autenticación.
type User struct {
	sharedDomain.AggregateRoot

	ID           uuid.UUID
	Email        string // siempre en minúsculas
	Username     string
	PasswordHash string
	Role         Role
	Status       Status
	LastLoginAt  *time.Time // nil = nunca
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser valida y normaliza los datos; registra UserRegistered.
func NewUser(email, username, passwordHash string, role Role) (*User, error) {
	email = NormalizeEmail(email)
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

	now := criteria.NormalizeTime(time.Now())
	u := &User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.Record(UserRegistered{BaseEvent: sharedDomain.NewBaseEvent(UserRegisteredEvent, u.ID), Email: u.Email})
	return u, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) Activate() {
	u.Status = StatusActive
	u.touch()
}

func (u *User) Block() {
	u.Status = StatusBlocked
	u.touch()
}

// RecordLogin fija el último acceso y registra UserLoggedIn.
func (u *User) RecordLogin(at time.Time) {
	at = criteria.NormalizeTime(at)
	u.LastLoginAt = &at
	u.touch()
	u.Record(UserLoggedIn{BaseEvent: sharedDomain.NewBaseEvent(UserLoggedInEvent, u.ID), At: at})
}

func (u *User) touch() {
	u.UpdatedAt = criteria.NormalizeTime(time.Now())
}

// Clone copia la entidad sin los eventos pendientes.
func (u *User) Clone() *User {
	c := *u
	c.AggregateRoot = sharedDomain.AggregateRoot{}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

// UserSchema son los campos consultables de User.
var UserSchema = criteria.NewSchema[*User]("user", "id",
	criteria.StringField("id", func(u *User) string { return u.ID.String() }),
	criteria.StringField("email", func(u *User) string { return u.Email }, criteria.Unique()),
	criteria.StringField("username", func(u *User) string { return u.Username }, criteria.Unique()),
	criteria.StringField("role", func(u *User) string { return string(u.Role) }),
	criteria.StringField("status", func(u *User) string { return string(u.Status) }),
	criteria.NullableTimeField("lastLoginAt", func(u *User) *time.Time { return u.LastLoginAt }),
	criteria.TimeField("createdAt", func(u *User) time.Time { return u.CreatedAt }),
	criteria.TimeField("updatedAt", func(u *User) time.Time { return u.UpdatedAt }),
)
