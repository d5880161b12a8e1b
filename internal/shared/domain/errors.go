package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeAlreadyExists  ErrorCode = "ALREADY_EXISTS"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeInfrastructure ErrorCode = "INFRASTRUCTURE_FAULT"
)

// ---------- Errores de repositorio ----------
// Se comparan por código: errors.Is(err, ErrNotFound) vale para cualquier entidad.
var (
	ErrAlreadyExists  = &RepositoryError{Code: CodeAlreadyExists}
	ErrNotFound       = &RepositoryError{Code: CodeNotFound}
	ErrInfrastructure = &RepositoryError{Code: CodeInfrastructure}
)

// RepositoryError es el único tipo de error que sale de un repositorio,
// aparte de criteria.ErrInvalidCriteria.
type RepositoryError struct {
	Code   ErrorCode
	Op     string // operación del repositorio, p.ej. "user.Save"
	Entity string
	Field  string // campo único en conflicto
	ID     string
	Cause  error
}

func (e *RepositoryError) Error() string {
	switch e.Code {
	case CodeAlreadyExists:
		if e.Field != "" {
			return fmt.Sprintf("%s already exists: duplicate %s", e.Entity, e.Field)
		}
		return fmt.Sprintf("%s already exists", e.Entity)
	case CodeNotFound:
		if e.ID != "" {
			return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
		}
		return fmt.Sprintf("%s not found", e.Entity)
	case CodeInfrastructure:
		if e.Cause != nil {
			return fmt.Sprintf("infrastructure fault in %s: %v", e.Op, e.Cause)
		}
		return fmt.Sprintf("infrastructure fault in %s", e.Op)
	}
	return string(e.Code)
}

func (e *RepositoryError) Unwrap() error { return e.Cause }

// Is compara por código, igual que los DomainError por Code.
func (e *RepositoryError) Is(target error) bool {
	var t *RepositoryError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func AlreadyExists(entity, field string) error {
	return &RepositoryError{Code: CodeAlreadyExists, Entity: entity, Field: field}
}

func NotFound(entity, id string) error {
	return &RepositoryError{Code: CodeNotFound, Entity: entity, ID: id}
}

// InfrastructureFault envuelve un fallo del backend. Si ya viene clasificado
// (p.ej. AlreadyExists traducido más abajo) se devuelve tal cual.
func InfrastructureFault(op string, cause error) error {
	var re *RepositoryError
	if errors.As(cause, &re) {
		return cause
	}
	return &RepositoryError{Code: CodeInfrastructure, Op: op, Cause: cause}
}

// ConflictField devuelve el campo en conflicto de un AlreadyExists.
func ConflictField(err error) (string, bool) {
	var re *RepositoryError
	if errors.As(err, &re) && re.Code == CodeAlreadyExists {
		return re.Field, true
	}
	return "", false
}
