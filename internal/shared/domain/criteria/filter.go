package criteria

// Filter es un predicado (campo, operador, valor) tal como lo pide el llamador.
// El valor es opaco hasta que New lo interpreta según el esquema.
type Filter struct {
	Field    string
	Operator Operator
	Value    any
}

func NewFilter(field string, op Operator, value any) Filter {
	return Filter{Field: field, Operator: op, Value: value}
}

// Filters se combinan siempre con AND. Vacío equivale a "todo".
type Filters []Filter

func NewFilters(filters ...Filter) Filters { return Filters(filters) }

// Condition es un filtro ya validado y tipado contra el esquema.
type Condition struct {
	Field    FieldInfo
	Operator Operator
	Value    Value
}

// Clause es una conjunción de condiciones.
type Clause []Condition
