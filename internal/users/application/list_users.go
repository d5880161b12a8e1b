package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
	userDomain "github.com/davicafu/criterialab/internal/users/domain"
)

// ListUsersQuery: cada filtro es opcional; nil no filtra.
// Cursor != nil activa la paginación por cursor ("" es la primera página);
// en ese modo Offset y WithTotal se ignoran.
type ListUsersQuery struct {
	ID            *uuid.UUID
	Status        *userDomain.Status
	Role          *userDomain.Role
	Email         *string // contiene
	Username      *string // contiene
	CreatedAfter  *time.Time
	CreatedBefore *time.Time

	SortBy string
	Order  criteria.OrderType

	Limit     int
	Offset    int
	Cursor    *string
	WithTotal bool
}

// Criteria traduce la consulta a un Criteria validado. limit 0 toma el
// límite por defecto y se recorta al máximo.
func (q ListUsersQuery) Criteria(limits Limits) (criteria.Criteria, error) {
	var filters criteria.Filters
	add := func(field string, op criteria.Operator, v any) {
		filters = append(filters, criteria.NewFilter(field, op, v))
	}
	if q.ID != nil {
		add("id", criteria.Equal, q.ID.String())
	}
	if q.Status != nil {
		add("status", criteria.Equal, string(*q.Status))
	}
	if q.Role != nil {
		add("role", criteria.Equal, string(*q.Role))
	}
	if q.Email != nil {
		add("email", criteria.Contains, *q.Email)
	}
	if q.Username != nil {
		add("username", criteria.Contains, *q.Username)
	}
	if q.CreatedAfter != nil {
		add("createdAt", criteria.GreaterThan, *q.CreatedAfter)
	}
	if q.CreatedBefore != nil {
		add("createdAt", criteria.LessThan, *q.CreatedBefore)
	}

	order := criteria.NoOrder()
	if q.SortBy != "" {
		order = criteria.OrderBy(q.SortBy, q.Order)
		if q.Order == "" {
			order.Type = criteria.Asc
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = limits.Default
	}
	if limits.Max > 0 && limit > limits.Max {
		limit = limits.Max
	}

	var page criteria.Pagination = criteria.OffsetPagination{Limit: limit, Offset: q.Offset, WithTotal: q.WithTotal}
	if q.Cursor != nil {
		page = criteria.CursorPagination{Limit: limit, Cursor: *q.Cursor}
	}
	return criteria.New(userDomain.UserSchema, filters, order, page)
}

func (s *UserService) ListUsers(ctx context.Context, q ListUsersQuery) (domain.PaginatedResult[*userDomain.User], error) {
	c, err := q.Criteria(s.limits)
	if err != nil {
		return domain.PaginatedResult[*userDomain.User]{}, err
	}
	return s.repo.FindByCriteria(ctx, c)
}

// SearchUsers ejecuta un Criteria ya construido (p.ej. desde la query HTTP).
func (s *UserService) SearchUsers(ctx context.Context, c criteria.Criteria) (domain.PaginatedResult[*userDomain.User], error) {
	return s.repo.FindByCriteria(ctx, c)
}

func (s *UserService) CountUsers(ctx context.Context, q ListUsersQuery) (int, error) {
	c, err := q.Criteria(s.limits)
	if err != nil {
		return 0, err
	}
	return s.repo.CountByCriteria(ctx, c)
}
