// Package criteria modela consultas independientes del backend:
// filtros AND, orden, y paginación por offset o por cursor.
package criteria

import (
	"fmt"
	"strings"
)

// Operator es el operador de comparación de un filtro.
type Operator string

const (
	Equal       Operator = "EQUAL"
	NotEqual    Operator = "NOT_EQUAL"
	Contains    Operator = "CONTAINS"
	NotContains Operator = "NOT_CONTAINS"
	GreaterThan Operator = "GT"
	LessThan    Operator = "LT"

	// Operadores internos, solo los genera el cursor.
	IsNull    Operator = "IS_NULL"
	IsNotNull Operator = "IS_NOT_NULL"
)

var publicOperators = map[Operator]struct{}{
	Equal: {}, NotEqual: {}, Contains: {}, NotContains: {}, GreaterThan: {}, LessThan: {},
}

// ParseOperator acepta el nombre del operador sin distinguir mayúsculas.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := publicOperators[op]; !ok {
		return "", &ValidationError{Field: "operator", Reason: fmt.Sprintf("unknown operator %q", s)}
	}
	return op, nil
}

func (o Operator) String() string { return string(o) }

// allows indica si el operador tiene sentido para el tipo del campo.
func (k Kind) allows(op Operator) bool {
	switch k {
	case KindString:
		return op == Equal || op == NotEqual || op == Contains || op == NotContains
	case KindNumber, KindTime:
		return op == Equal || op == NotEqual || op == GreaterThan || op == LessThan
	case KindBool:
		return op == Equal || op == NotEqual
	}
	return false
}
