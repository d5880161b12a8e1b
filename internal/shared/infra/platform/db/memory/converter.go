package memory

import (
	"sort"
	"strings"

	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

// Converter evalúa un Criteria sobre entidades ya cargadas en memoria.
// Lo usan el repositorio en memoria y el de Redis.
type Converter[T any] struct {
	schema *criteria.Schema[T]
}

func NewConverter[T any](schema *criteria.Schema[T]) *Converter[T] {
	return &Converter[T]{schema: schema}
}

// Execute filtra, ordena y pagina. items no se modifica.
func (cv *Converter[T]) Execute(c criteria.Criteria, items []T) (domain.PaginatedResult[T], error) {
	if err := cv.check(c); err != nil {
		return domain.PaginatedResult[T]{}, err
	}

	rows := cv.filter(c.Conditions(), items)

	var total *int
	if c.WithTotal() {
		n := len(rows)
		total = &n
	}

	if seek := c.Seek(); seek != nil {
		rows = cv.seek(seek, rows)
	}

	cv.sort(c.Sort(), rows)

	if off := c.Offset(); off > 0 {
		if off >= len(rows) {
			rows = rows[:0]
		} else {
			rows = rows[off:]
		}
	}
	if fetch := c.FetchLimit(); fetch > 0 && len(rows) > fetch {
		rows = rows[:fetch]
	}

	return domain.NewPage(c, rows, cv.schema.Accessor, total), nil
}

// Count ignora la paginación.
func (cv *Converter[T]) Count(c criteria.Criteria, items []T) (int, error) {
	if err := cv.check(c); err != nil {
		return 0, err
	}
	return len(cv.filter(c.Conditions(), items)), nil
}

// Matches indica si la entidad cumple todos los filtros.
func (cv *Converter[T]) Matches(conds []criteria.Condition, e T) bool {
	for _, cond := range conds {
		if !Evaluate(cond, cv.schema.Value(e, cond.Field.Name)) {
			return false
		}
	}
	return true
}

func (cv *Converter[T]) check(c criteria.Criteria) error {
	if c.Entity() != cv.schema.Entity() {
		return &criteria.ValidationError{Field: "entity", Reason: "criteria built for " + c.Entity() + ", not " + cv.schema.Entity()}
	}
	return nil
}

func (cv *Converter[T]) filter(conds []criteria.Condition, items []T) []T {
	out := make([]T, 0, len(items))
	for _, e := range items {
		if cv.Matches(conds, e) {
			out = append(out, e)
		}
	}
	return out
}

func (cv *Converter[T]) seek(clauses []criteria.Clause, rows []T) []T {
	out := rows[:0]
	for _, e := range rows {
		for _, cl := range clauses {
			if cv.Matches(cl, e) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func (cv *Converter[T]) sort(keys []criteria.SortKey, rows []T) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			c := criteria.Compare(cv.schema.Value(rows[i], k.Field.Name), cv.schema.Value(rows[j], k.Field.Name))
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// Evaluate aplica una condición a un valor. Un valor nulo solo cumple
// NOT_EQUAL, NOT_CONTAINS e IS_NULL.
func Evaluate(cond criteria.Condition, v criteria.Value) bool {
	switch cond.Operator {
	case criteria.IsNull:
		return v.IsNull()
	case criteria.IsNotNull:
		return !v.IsNull()
	case criteria.NotEqual:
		return v.IsNull() || !criteria.EqualValues(v, cond.Value)
	case criteria.NotContains:
		return v.IsNull() || !containsFold(v.Str(), cond.Value.Str())
	}

	if v.IsNull() {
		return false
	}
	switch cond.Operator {
	case criteria.Equal:
		return criteria.EqualValues(v, cond.Value)
	case criteria.Contains:
		return containsFold(v.Str(), cond.Value.Str())
	case criteria.GreaterThan:
		return criteria.Compare(v, cond.Value) > 0
	case criteria.LessThan:
		return criteria.Compare(v, cond.Value) < 0
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
