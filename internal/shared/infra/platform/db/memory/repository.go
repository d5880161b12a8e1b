package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/telemetry"
)

// Repository es el repositorio genérico en memoria. El mutex hace atómicos
// la comprobación de unicidad y la escritura.
type Repository[T any] struct {
	mu        sync.RWMutex
	items     map[string]T
	schema    *criteria.Schema[T]
	converter *Converter[T]
	clone     func(T) T
	log       *zap.Logger
	tracer    trace.Tracer
	tel       *telemetry.Instrumentation
}

var _ domain.Repository[struct{}] = (*Repository[struct{}])(nil)

type Option[T any] func(*Repository[T])

// WithClone copia las entidades al entrar y al salir, para que el llamador
// no pueda modificar el estado guardado por referencia.
func WithClone[T any](clone func(T) T) Option[T] {
	return func(r *Repository[T]) { r.clone = clone }
}

func WithLogger[T any](log *zap.Logger) Option[T] {
	return func(r *Repository[T]) { r.log = log }
}

func WithTracer[T any](t trace.Tracer) Option[T] {
	return func(r *Repository[T]) { r.tracer = t }
}

func NewRepository[T any](schema *criteria.Schema[T], opts ...Option[T]) *Repository[T] {
	r := &Repository[T]{
		items:     make(map[string]T),
		schema:    schema,
		converter: NewConverter(schema),
		clone:     func(e T) T { return e },
	}
	for _, opt := range opts {
		opt(r)
	}
	// la instrumentación se monta al final: las opciones pueden llegar en cualquier orden
	r.tel = telemetry.New("memory", schema.Entity(), r.log)
	if r.tracer != nil {
		r.tel.WithTracer(r.tracer)
	}
	return r
}

func (r *Repository[T]) Save(ctx context.Context, entity T) (err error) {
	ctx, span := r.tel.Start(ctx, "Save")
	defer func() { span.End(err) }()

	if err := ctx.Err(); err != nil {
		return domain.InfrastructureFault(r.op("Save"), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.schema.ID(entity)
	for _, f := range r.schema.UniqueFields() {
		v := r.schema.Value(entity, f.Name)
		for otherID, other := range r.items {
			if otherID != id && criteria.EqualValues(v, r.schema.Value(other, f.Name)) {
				return domain.AlreadyExists(r.schema.Entity(), f.Name)
			}
		}
	}
	r.items[id] = r.clone(entity)
	return nil
}

func (r *Repository[T]) FindByID(ctx context.Context, id uuid.UUID) (_ T, err error) {
	ctx, span := r.tel.Start(ctx, "FindByID")
	defer func() { span.End(err) }()

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, domain.InfrastructureFault(r.op("FindByID"), err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.items[id.String()]
	if !ok {
		return zero, domain.NotFound(r.schema.Entity(), id.String())
	}
	return r.clone(e), nil
}

func (r *Repository[T]) Remove(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := r.tel.Start(ctx, "Remove")
	defer func() { span.End(err) }()

	if err := ctx.Err(); err != nil {
		return domain.InfrastructureFault(r.op("Remove"), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id.String())
	return nil
}

func (r *Repository[T]) Exists(ctx context.Context, id uuid.UUID) (_ bool, err error) {
	ctx, span := r.tel.Start(ctx, "Exists")
	defer func() { span.End(err) }()

	if err := ctx.Err(); err != nil {
		return false, domain.InfrastructureFault(r.op("Exists"), err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[id.String()]
	return ok, nil
}

func (r *Repository[T]) FindByCriteria(ctx context.Context, c criteria.Criteria) (_ domain.PaginatedResult[T], err error) {
	ctx, span := r.tel.Start(ctx, "FindByCriteria")
	defer func() { span.End(err) }()

	if err := ctx.Err(); err != nil {
		return domain.PaginatedResult[T]{}, domain.InfrastructureFault(r.op("FindByCriteria"), err)
	}

	res, err := r.converter.Execute(c, r.snapshot())
	if err != nil {
		return domain.PaginatedResult[T]{}, err
	}
	for i := range res.Data {
		res.Data[i] = r.clone(res.Data[i])
	}
	return res, nil
}

func (r *Repository[T]) CountByCriteria(ctx context.Context, c criteria.Criteria) (_ int, err error) {
	ctx, span := r.tel.Start(ctx, "CountByCriteria")
	defer func() { span.End(err) }()

	if err := ctx.Err(); err != nil {
		return 0, domain.InfrastructureFault(r.op("CountByCriteria"), err)
	}
	return r.converter.Count(c, r.snapshot())
}

func (r *Repository[T]) snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, len(r.items))
	for _, e := range r.items {
		out = append(out, e)
	}
	return out
}

func (r *Repository[T]) op(name string) string {
	return r.schema.Entity() + "." + name
}
