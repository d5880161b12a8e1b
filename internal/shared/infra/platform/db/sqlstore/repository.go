package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/telemetry"
)

// Scanner es *sql.Row o *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Table describe cómo se guarda un agregado en una tabla.
type Table[T any] struct {
	Name   string
	Schema *criteria.Schema[T]
	// FieldColumns mapea campo del esquema -> columna ("createdAt" -> "created_at").
	FieldColumns map[string]string
	// Columns en el orden de Values y Scan; la primera es la identidad.
	Columns []string
	Values  func(d Dialect, e T) []any
	Scan    func(d Dialect, row Scanner) (T, error)
	// DDL por dialecto, idempotente (CREATE ... IF NOT EXISTS).
	DDL map[string][]string
}

// Repository es el repositorio genérico SQL. La unicidad la garantizan los
// índices únicos de la tabla (ver Dialect.UniqueIndex).
type Repository[T any] struct {
	db      *sql.DB
	dialect Dialect
	table   Table[T]
	conv    *Converter
	tel     *telemetry.Instrumentation
	fields  map[string]string // columna -> campo
}

// NewRepository aplica el DDL del dialecto y devuelve el repositorio.
func NewRepository[T any](ctx context.Context, db *sql.DB, d Dialect, table Table[T], log *zap.Logger) (*Repository[T], error) {
	r := &Repository[T]{
		db:      db,
		dialect: d,
		table:   table,
		conv:    NewConverter(d, table.FieldColumns),
		tel:     telemetry.New(d.Name, table.Schema.Entity(), log),
		fields:  make(map[string]string),
	}
	for _, f := range table.Schema.Fields() {
		r.fields[r.conv.Column(f.Name)] = f.Name
	}
	if err := r.Migrate(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository[T]) WithTracer(t trace.Tracer) *Repository[T] {
	r.tel.WithTracer(t)
	return r
}

// Migrate prepara el dialecto (collation) y ejecuta el DDL de la tabla.
func (r *Repository[T]) Migrate(ctx context.Context) error {
	stmts := append(append([]string(nil), r.dialect.setup...), r.table.DDL[r.dialect.Name]...)
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return domain.InfrastructureFault(r.op("Migrate"), err)
		}
	}
	return nil
}

func (r *Repository[T]) idColumn() string {
	return r.conv.Column(r.table.Schema.Identity().Name)
}

// Save hace upsert por identidad con INSERT ... ON CONFLICT (válido en ambos dialectos).
func (r *Repository[T]) Save(ctx context.Context, entity T) (err error) {
	ctx, span := r.tel.Start(ctx, "Save")
	defer func() { span.End(err) }()

	id := r.idColumn()
	var set []string
	for _, c := range r.table.Columns {
		if c != id {
			set = append(set, c+" = excluded."+c)
		}
	}

	query, args, err := r.conv.Builder().
		Insert(r.table.Name).
		Columns(r.table.Columns...).
		Values(r.table.Values(r.dialect, entity)...).
		Suffix("ON CONFLICT (" + id + ") DO UPDATE SET " + strings.Join(set, ", ")).
		ToSql()
	if err != nil {
		return domain.InfrastructureFault(r.op("Save"), err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if col, ok := r.dialect.uniqueViolation(err, r.table.Name); ok {
			return domain.AlreadyExists(r.table.Schema.Entity(), r.fieldOf(col))
		}
		return domain.InfrastructureFault(r.op("Save"), err)
	}
	return nil
}

func (r *Repository[T]) FindByID(ctx context.Context, id uuid.UUID) (_ T, err error) {
	ctx, span := r.tel.Start(ctx, "FindByID")
	defer func() { span.End(err) }()

	var zero T
	query, args, err := r.conv.Builder().
		Select(r.table.Columns...).
		From(r.table.Name).
		Where(r.idColumn()+" = ?", id.String()).
		ToSql()
	if err != nil {
		return zero, domain.InfrastructureFault(r.op("FindByID"), err)
	}

	e, err := r.table.Scan(r.dialect, r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, domain.NotFound(r.table.Schema.Entity(), id.String())
		}
		return zero, domain.InfrastructureFault(r.op("FindByID"), err)
	}
	return e, nil
}

func (r *Repository[T]) Remove(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := r.tel.Start(ctx, "Remove")
	defer func() { span.End(err) }()

	query, args, err := r.conv.Builder().
		Delete(r.table.Name).
		Where(r.idColumn()+" = ?", id.String()).
		ToSql()
	if err != nil {
		return domain.InfrastructureFault(r.op("Remove"), err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.InfrastructureFault(r.op("Remove"), err)
	}
	return nil
}

func (r *Repository[T]) Exists(ctx context.Context, id uuid.UUID) (_ bool, err error) {
	ctx, span := r.tel.Start(ctx, "Exists")
	defer func() { span.End(err) }()

	query, args, err := r.conv.Builder().
		Select("1").
		From(r.table.Name).
		Where(r.idColumn()+" = ?", id.String()).
		Limit(1).
		ToSql()
	if err != nil {
		return false, domain.InfrastructureFault(r.op("Exists"), err)
	}

	var one int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, domain.InfrastructureFault(r.op("Exists"), err)
	}
	return true, nil
}

func (r *Repository[T]) FindByCriteria(ctx context.Context, c criteria.Criteria) (_ domain.PaginatedResult[T], err error) {
	ctx, span := r.tel.Start(ctx, "FindByCriteria")
	defer func() { span.End(err) }()

	if err := r.check(c); err != nil {
		return domain.PaginatedResult[T]{}, err
	}

	query, args, err := r.conv.Select(c, r.table.Name, r.table.Columns...).ToSql()
	if err != nil {
		return domain.PaginatedResult[T]{}, domain.InfrastructureFault(r.op("FindByCriteria"), err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.PaginatedResult[T]{}, domain.InfrastructureFault(r.op("FindByCriteria"), err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		e, err := r.table.Scan(r.dialect, rows)
		if err != nil {
			return domain.PaginatedResult[T]{}, domain.InfrastructureFault(r.op("FindByCriteria"), err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return domain.PaginatedResult[T]{}, domain.InfrastructureFault(r.op("FindByCriteria"), err)
	}

	var total *int
	if c.WithTotal() {
		n, err := r.count(ctx, c)
		if err != nil {
			return domain.PaginatedResult[T]{}, err
		}
		total = &n
	}
	return domain.NewPage(c, out, r.table.Schema.Accessor, total), nil
}

func (r *Repository[T]) CountByCriteria(ctx context.Context, c criteria.Criteria) (_ int, err error) {
	ctx, span := r.tel.Start(ctx, "CountByCriteria")
	defer func() { span.End(err) }()

	if err := r.check(c); err != nil {
		return 0, err
	}
	return r.count(ctx, c)
}

func (r *Repository[T]) count(ctx context.Context, c criteria.Criteria) (int, error) {
	query, args, err := r.conv.Count(c, r.table.Name).ToSql()
	if err != nil {
		return 0, domain.InfrastructureFault(r.op("CountByCriteria"), err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, domain.InfrastructureFault(r.op("CountByCriteria"), err)
	}
	return n, nil
}

func (r *Repository[T]) fieldOf(column string) string {
	if f, ok := r.fields[column]; ok {
		return f
	}
	return column
}

func (r *Repository[T]) check(c criteria.Criteria) error {
	if c.Entity() != r.table.Schema.Entity() {
		return &criteria.ValidationError{Field: "entity", Reason: "criteria built for " + c.Entity()}
	}
	return nil
}

func (r *Repository[T]) op(name string) string {
	return r.table.Schema.Entity() + "." + name
}
