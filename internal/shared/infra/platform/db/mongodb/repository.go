package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/telemetry"
)

// Mapper convierte entre la entidad y su documento BSON.
// Se definen fuera del dominio para no "contaminarlo" con tags de BSON.
type Mapper[T any, D any] struct {
	ToDocument   func(T) D
	FromDocument func(D) (T, error)
}

// Config describe la colección de un agregado.
type Config[T any, D any] struct {
	Collection string
	Schema     *criteria.Schema[T]
	Mapper     Mapper[T, D]
	// Paths sobrescribe la ruta BSON de un campo; por defecto es su nombre.
	Paths map[string]string
	// Indexes extra, no únicos (p.ej. "role").
	Indexes []string
}

// Repository es el repositorio genérico sobre una colección de MongoDB.
// La unicidad se delega en índices únicos, uno por campo único del esquema.
type Repository[T any, D any] struct {
	coll    *mongo.Collection
	cfg     Config[T, D]
	conv    *Converter[T]
	tel     *telemetry.Instrumentation
	indexes map[string]string // nombre de índice -> campo
}

// NewRepository hace ping al primario y asegura los índices.
func NewRepository[T any, D any](ctx context.Context, db *mongo.Database, cfg Config[T, D], log *zap.Logger) (*Repository[T, D], error) {
	if err := db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	r := &Repository[T, D]{
		coll:    db.Collection(cfg.Collection),
		cfg:     cfg,
		conv:    NewConverter(cfg.Schema, cfg.Paths),
		tel:     telemetry.New("mongodb", cfg.Schema.Entity(), log),
		indexes: make(map[string]string),
	}
	if err := r.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository[T, D]) WithTracer(t trace.Tracer) *Repository[T, D] {
	r.tel.WithTracer(t)
	return r
}

func indexName(prefix, field string) string {
	return prefix + "_" + strings.ReplaceAll(field, ".", "_")
}

// EnsureIndexes crea un índice único por campo único y los índices
// secundarios pedidos. Los únicos de tipo string llevan la collation de las
// consultas: dos valores que ordenan igual no pueden coexistir.
func (r *Repository[T, D]) EnsureIndexes(ctx context.Context) error {
	var models []mongo.IndexModel
	for _, f := range r.cfg.Schema.UniqueFields() {
		name := indexName("uniq_"+r.cfg.Collection, f.Name)
		r.indexes[name] = f.Name
		opts := options.Index().SetName(name).SetUnique(true)
		if f.Kind == criteria.KindString {
			opts.SetCollation(collation)
		}
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: r.conv.Path(f.Name), Value: 1}},
			Options: opts,
		})
	}
	for _, f := range r.cfg.Indexes {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: r.conv.Path(f), Value: 1}},
			Options: options.Index().SetName(indexName("idx_"+r.cfg.Collection, f)),
		})
	}
	if len(models) == 0 {
		return nil
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		return domain.InfrastructureFault(r.op("EnsureIndexes"), err)
	}
	return nil
}

// Collection expone la colección para consultas específicas del agregado.
func (r *Repository[T, D]) Collection() *mongo.Collection { return r.coll }

func (r *Repository[T, D]) Save(ctx context.Context, entity T) (err error) {
	ctx, span := r.tel.Start(ctx, "Save")
	defer func() { span.End(err) }()

	id := r.cfg.Schema.ID(entity)
	_, err = r.coll.ReplaceOne(ctx,
		bson.M{"_id": id},
		r.cfg.Mapper.ToDocument(entity),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return r.translateWriteError(err)
	}
	return nil
}

func (r *Repository[T, D]) FindByID(ctx context.Context, id uuid.UUID) (_ T, err error) {
	ctx, span := r.tel.Start(ctx, "FindByID")
	defer func() { span.End(err) }()

	var zero T
	var doc D
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, domain.NotFound(r.cfg.Schema.Entity(), id.String())
		}
		return zero, domain.InfrastructureFault(r.op("FindByID"), err)
	}
	e, err := r.cfg.Mapper.FromDocument(doc)
	if err != nil {
		return zero, domain.InfrastructureFault(r.op("FindByID"), err)
	}
	return e, nil
}

func (r *Repository[T, D]) Remove(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := r.tel.Start(ctx, "Remove")
	defer func() { span.End(err) }()

	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()}); err != nil {
		return domain.InfrastructureFault(r.op("Remove"), err)
	}
	return nil
}

func (r *Repository[T, D]) Exists(ctx context.Context, id uuid.UUID) (_ bool, err error) {
	ctx, span := r.tel.Start(ctx, "Exists")
	defer func() { span.End(err) }()

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id.String()}, options.Count().SetLimit(1))
	if err != nil {
		return false, domain.InfrastructureFault(r.op("Exists"), err)
	}
	return n > 0, nil
}

func (r *Repository[T, D]) FindByCriteria(ctx context.Context, c criteria.Criteria) (_ domain.PaginatedResult[T], err error) {
	ctx, span := r.tel.Start(ctx, "FindByCriteria")
	defer func() { span.End(err) }()

	if err := r.check(c); err != nil {
		return domain.PaginatedResult[T]{}, err
	}

	cursor, err := r.coll.Find(ctx, r.conv.Filter(c), r.conv.FindOptions(c))
	if err != nil {
		return domain.PaginatedResult[T]{}, domain.InfrastructureFault(r.op("FindByCriteria"), err)
	}
	defer cursor.Close(ctx)

	var rows []T
	for cursor.Next(ctx) {
		var doc D
		if err := cursor.Decode(&doc); err != nil {
			return domain.PaginatedResult[T]{}, domain.InfrastructureFault(r.op("FindByCriteria"), err)
		}
		e, err := r.cfg.Mapper.FromDocument(doc)
		if err != nil {
			return domain.PaginatedResult[T]{}, domain.InfrastructureFault(r.op("FindByCriteria"), err)
		}
		rows = append(rows, e)
	}
	if err := cursor.Err(); err != nil {
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

	return domain.NewPage(c, rows, r.cfg.Schema.Accessor, total), nil
}

func (r *Repository[T, D]) CountByCriteria(ctx context.Context, c criteria.Criteria) (_ int, err error) {
	ctx, span := r.tel.Start(ctx, "CountByCriteria")
	defer func() { span.End(err) }()

	if err := r.check(c); err != nil {
		return 0, err
	}
	return r.count(ctx, c)
}

func (r *Repository[T, D]) count(ctx context.Context, c criteria.Criteria) (int, error) {
	n, err := r.coll.CountDocuments(ctx, r.conv.CountFilter(c), r.conv.CountOptions())
	if err != nil {
		return 0, domain.InfrastructureFault(r.op("CountByCriteria"), err)
	}
	return int(n), nil
}

// translateWriteError convierte un duplicate key en AlreadyExists con el
// campo del índice violado.
func (r *Repository[T, D]) translateWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		msg := err.Error()
		for name, field := range r.indexes {
			if strings.Contains(msg, "index: "+name+" ") {
				return domain.AlreadyExists(r.cfg.Schema.Entity(), field)
			}
		}
	}
	return domain.InfrastructureFault(r.op("Save"), err)
}

func (r *Repository[T, D]) check(c criteria.Criteria) error {
	if c.Entity() != r.cfg.Schema.Entity() {
		return &criteria.ValidationError{Field: "entity", Reason: "criteria built for " + c.Entity()}
	}
	return nil
}

func (r *Repository[T, D]) op(name string) string {
	return r.cfg.Schema.Entity() + "." + name
}
