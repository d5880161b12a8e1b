package domain

import (
	"context"
	"fmt"

	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
	"github.com/google/uuid"
)

// Repository es el contrato común a todos los agregados y backends.
type Repository[T any] interface {
	// Save inserta o reemplaza por identidad. Devuelve AlreadyExists si otra
	// entidad tiene el mismo valor en un campo único.
	Save(ctx context.Context, entity T) error

	// FindByID devuelve NotFound si no existe.
	FindByID(ctx context.Context, id uuid.UUID) (T, error)

	// Remove no falla si la entidad no existe.
	Remove(ctx context.Context, id uuid.UUID) error

	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	FindByCriteria(ctx context.Context, c criteria.Criteria) (PaginatedResult[T], error)

	// CountByCriteria cuenta las filas que cumplen los filtros, ignorando la paginación.
	CountByCriteria(ctx context.Context, c criteria.Criteria) (int, error)
}

// PaginatedResult es la página devuelta por FindByCriteria.
// Total solo se rellena en modo offset con WithTotal; Cursor vacío indica última página.
type PaginatedResult[T any] struct {
	Data    []T    `json:"data"`
	Total   *int   `json:"total"`
	Cursor  string `json:"cursor,omitempty"`
	HasNext bool   `json:"hasNext"`
}

// NewPage recorta las filas leídas con criteria.FetchLimit y calcula HasNext y Cursor.
func NewPage[T any](c criteria.Criteria, rows []T, accessor func(T) func(string) criteria.Value, total *int) PaginatedResult[T] {
	res := PaginatedResult[T]{Data: rows, Total: total}
	if res.Data == nil {
		res.Data = []T{}
	}
	if limit := c.Limit(); limit > 0 && len(res.Data) > limit {
		res.Data = res.Data[:limit]
		res.HasNext = true
	}
	if c.IsCursor() && res.HasNext {
		res.Cursor = c.NextCursor(accessor(res.Data[len(res.Data)-1]))
	}
	return res
}

// FindOneBy es la base de los finders de cada agregado (FindByEmail, ...):
// un único filtro EQUAL con límite 1. Devuelve NotFound si no hay coincidencia.
func FindOneBy[T any](ctx context.Context, repo Repository[T], spec criteria.Spec, field string, value any) (T, error) {
	var zero T
	c, err := criteria.New(spec,
		criteria.NewFilters(criteria.NewFilter(field, criteria.Equal, value)),
		criteria.NoOrder(),
		criteria.OffsetPagination{Limit: 1},
	)
	if err != nil {
		return zero, err
	}
	res, err := repo.FindByCriteria(ctx, c)
	if err != nil {
		return zero, err
	}
	if len(res.Data) == 0 {
		return zero, NotFound(spec.Entity(), fmt.Sprintf("%s=%v", field, value))
	}
	return res.Data[0], nil
}
