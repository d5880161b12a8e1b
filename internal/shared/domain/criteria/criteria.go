package criteria

// Criteria es una consulta validada e inmutable: filtros AND, orden y paginación.
// Se construye con New para cada consulta; los convertidores solo la leen.
type Criteria struct {
	entity    string
	filters   []Condition
	order     Order
	sort      []SortKey
	limit     int
	offset    int
	withTotal bool
	cursor    bool
	simple    bool
	tie       FieldInfo
	seek      []Clause
}

// New valida filtros, orden y paginación contra el esquema de la entidad.
// page nil equivale a OffsetPagination{} (todo, sin total).
func New(spec Spec, filters Filters, order Order, page Pagination) (Criteria, error) {
	c := Criteria{entity: spec.Entity()}

	for _, f := range filters {
		cond, err := buildCondition(spec, f)
		if err != nil {
			return Criteria{}, err
		}
		c.filters = append(c.filters, cond)
	}

	var primary *FieldInfo
	if order.Type != "" && order.Type != None && order.Type != Asc && order.Type != Desc {
		return Criteria{}, invalid("order", "unknown order type %q", order.Type)
	}
	if !order.IsNone() {
		info, ok := spec.Lookup(order.By)
		if !ok {
			return Criteria{}, invalid(order.By, "unknown sort field")
		}
		primary = &info
		c.order = order
	} else {
		c.order = NoOrder()
	}
	desc := c.order.Type == Desc

	identity := spec.Identity()
	switch p := page.(type) {
	case nil:
		c.tie = identity
	case OffsetPagination:
		if p.Limit < 0 || p.Offset < 0 {
			return Criteria{}, invalid("pagination", "limit and offset must be >= 0")
		}
		c.limit, c.offset, c.withTotal = p.Limit, p.Offset, p.WithTotal
		c.tie = identity
	case CursorPagination:
		if p.Limit < 0 {
			return Criteria{}, invalid("pagination", "limit must be >= 0")
		}
		c.limit, c.cursor = p.Limit, true
		c.tie = identity
		if p.TieBreaker != "" {
			tie, ok := spec.Lookup(p.TieBreaker)
			if !ok {
				return Criteria{}, invalid(p.TieBreaker, "unknown tie-breaker field")
			}
			if !tie.Unique || tie.Nullable {
				return Criteria{}, invalid(p.TieBreaker, "tie-breaker must be unique and non-null")
			}
			c.tie = tie
		}
	default:
		return Criteria{}, invalid("pagination", "unsupported pagination %T", page)
	}

	// Sin orden explícito el desempate ordena ascendente.
	if primary == nil {
		c.sort = []SortKey{{Field: c.tie}}
	} else {
		c.sort = []SortKey{{Field: *primary, Desc: desc}}
		if primary.Name != c.tie.Name {
			c.sort = append(c.sort, SortKey{Field: c.tie, Desc: desc})
		}
	}

	if c.cursor {
		c.simple = isSimpleCursor(c.sort[0].Field, c.tie)
		if token := page.(CursorPagination).Cursor; token != "" {
			pv, tv, err := decodeCursor(c.simple, c.sort[0].Field, c.tie, token)
			if err != nil {
				return Criteria{}, err
			}
			c.seek = seekClauses(c.simple, c.sort[0], c.tie, pv, tv)
		}
	}
	return c, nil
}

func buildCondition(spec Spec, f Filter) (Condition, error) {
	info, ok := spec.Lookup(f.Field)
	if !ok {
		return Condition{}, invalid(f.Field, "unknown field")
	}
	if _, public := publicOperators[f.Operator]; !public {
		return Condition{}, invalid(f.Field, "unknown operator %q", f.Operator)
	}
	if !info.Kind.allows(f.Operator) {
		return Condition{}, invalid(f.Field, "operator %s not supported on %s field", f.Operator, info.Kind)
	}
	v, err := coerce(info.Kind, f.Value)
	if err != nil {
		return Condition{}, invalid(f.Field, "%v", err)
	}
	return Condition{Field: info, Operator: f.Operator, Value: v}, nil
}

// Entity es el nombre de la entidad para la que se validó.
func (c Criteria) Entity() string { return c.entity }

// Conditions son los filtros tipados, en el orden dado.
func (c Criteria) Conditions() []Condition {
	return append([]Condition(nil), c.filters...)
}

func (c Criteria) Order() Order { return c.order }

// Sort es la secuencia completa de claves, terminando siempre en el desempate.
func (c Criteria) Sort() []SortKey {
	return append([]SortKey(nil), c.sort...)
}

func (c Criteria) Limit() int      { return c.limit }
func (c Criteria) Offset() int     { return c.offset }
func (c Criteria) WithTotal() bool { return c.withTotal && !c.cursor }
func (c Criteria) IsCursor() bool  { return c.cursor }

// TieBreaker es el campo que desempata el orden.
func (c Criteria) TieBreaker() FieldInfo { return c.tie }

// Seek es la condición "después del cursor" como OR de cláusulas AND;
// nil en la primera página o en modo offset.
func (c Criteria) Seek() []Clause {
	if len(c.seek) == 0 {
		return nil
	}
	out := make([]Clause, len(c.seek))
	for i, cl := range c.seek {
		out[i] = append(Clause(nil), cl...)
	}
	return out
}

// FetchLimit es cuántas filas pedir al backend: limit+1 para saber si hay más.
// 0 significa sin límite.
func (c Criteria) FetchLimit() int {
	if c.limit == 0 {
		return 0
	}
	return c.limit + 1
}

// NextCursor codifica la posición de la última fila devuelta.
func (c Criteria) NextCursor(valueOf func(field string) Value) string {
	if !c.cursor {
		return ""
	}
	primary := valueOf(c.sort[0].Field.Name)
	return encodeCursor(c.simple, primary, valueOf(c.tie.Name))
}
