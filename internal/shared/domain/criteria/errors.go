package criteria

import (
	"errors"
	"fmt"
)

// ErrInvalidCriteria se devuelve al construir un Criteria que no encaja con el esquema.
var ErrInvalidCriteria = errors.New("invalid criteria")

// ValidationError detalla qué parte del Criteria es inválida.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidCriteria, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidCriteria }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
