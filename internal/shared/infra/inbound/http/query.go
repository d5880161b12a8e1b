// Package http traduce la query string de un listado a un Criteria.
//
//	?filter=field:op:value   (repetible, se combinan con AND)
//	&sort=field&order=asc|desc
//	&limit=20&offset=40&with_total=true   (offset)
//	&cursor=<token>                       (cursor; vacío = primera página)
package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
	sharedUtils "github.com/davicafu/criterialab/internal/shared/infra/utils"
)

// Limits acota el tamaño de página pedido por el cliente.
type Limits struct {
	Default int
	Max     int
}

// Aliases permite exponer nombres de parámetro distintos a los campos del
// esquema (p.ej. "firstName" -> "profile.firstName").
type Aliases map[string]string

func (a Aliases) resolve(name string) string {
	if field, ok := a[name]; ok {
		return field
	}
	return name
}

// ParseCriteria construye y valida el Criteria de la petición.
func ParseCriteria(c *gin.Context, spec criteria.Spec, limits Limits, aliases Aliases) (criteria.Criteria, error) {
	var filters criteria.Filters
	for _, raw := range c.QueryArray("filter") {
		f, err := parseFilter(raw, aliases)
		if err != nil {
			return criteria.Criteria{}, err
		}
		filters = append(filters, f)
	}

	order := criteria.NoOrder()
	if by := strings.TrimSpace(c.Query("sort")); by != "" {
		t, err := criteria.ParseOrderType(c.DefaultQuery("order", string(criteria.Asc)))
		if err != nil {
			return criteria.Criteria{}, err
		}
		order = criteria.OrderBy(aliases.resolve(by), t)
	}

	limit, err := intParam(c, "limit", limits.Default)
	if err != nil {
		return criteria.Criteria{}, err
	}
	limit = sharedUtils.AtMost(limit, limits.Max)

	var page criteria.Pagination
	if cursor, ok := c.GetQuery("cursor"); ok {
		page = criteria.CursorPagination{Limit: limit, Cursor: cursor}
	} else {
		offset, err := intParam(c, "offset", 0)
		if err != nil {
			return criteria.Criteria{}, err
		}
		withTotal, err := boolParam(c, "with_total")
		if err != nil {
			return criteria.Criteria{}, err
		}
		page = criteria.OffsetPagination{Limit: limit, Offset: offset, WithTotal: withTotal}
	}

	return criteria.New(spec, filters, order, page)
}

// parseFilter separa "field:op:value"; el valor puede contener ':'.
func parseFilter(raw string, aliases Aliases) (criteria.Filter, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return criteria.Filter{}, &criteria.ValidationError{
			Field:  "filter",
			Reason: fmt.Sprintf("expected field:operator:value, got %q", raw),
		}
	}
	op, err := criteria.ParseOperator(parts[1])
	if err != nil {
		return criteria.Filter{}, err
	}
	return criteria.NewFilter(aliases.resolve(parts[0]), op, parts[2]), nil
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &criteria.ValidationError{Field: name, Reason: "must be a non-negative integer"}
	}
	return n, nil
}

func boolParam(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &criteria.ValidationError{Field: name, Reason: "must be a boolean"}
	}
	return b, nil
}
