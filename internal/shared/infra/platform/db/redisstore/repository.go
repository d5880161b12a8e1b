package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/db/memory"
	"github.com/davicafu/criterialab/internal/shared/infra/platform/telemetry"
)

// Codec serializa la entidad (normalmente JSON de un struct plano).
type Codec[T any] struct {
	Marshal   func(T) ([]byte, error)
	Unmarshal func([]byte) (T, error)
}

// Repository guarda cada entidad como un valor JSON y evalúa los Criteria
// en memoria con el mismo Converter que el backend en memoria.
//
// Claves:
//
//	<prefix>:ids                      set con todas las identidades
//	<prefix>:doc:<id>                 documento
//	<prefix>:uniq:<field>:<value>     reserva de valor único -> id (SETNX)
type Repository[T any] struct {
	client redis.UniversalClient
	prefix string
	schema *criteria.Schema[T]
	codec  Codec[T]
	conv   *memory.Converter[T]
	tel    *telemetry.Instrumentation
}

func NewRepository[T any](client redis.UniversalClient, prefix string, schema *criteria.Schema[T], codec Codec[T], log *zap.Logger) *Repository[T] {
	return &Repository[T]{
		client: client,
		prefix: prefix,
		schema: schema,
		codec:  codec,
		conv:   memory.NewConverter(schema),
		tel:    telemetry.New("redis", schema.Entity(), log),
	}
}

func (r *Repository[T]) WithTracer(t trace.Tracer) *Repository[T] {
	r.tel.WithTracer(t)
	return r
}

func (r *Repository[T]) idsKey() string          { return r.prefix + ":ids" }
func (r *Repository[T]) docKey(id string) string { return r.prefix + ":doc:" + id }
func (r *Repository[T]) uniqKey(field string, v criteria.Value) string {
	return r.prefix + ":uniq:" + field + ":" + criteria.Key(v)
}

// releaseTimeout acota la limpieza de reservas, que no depende del ctx del llamador.
const releaseTimeout = 2 * time.Second

// takeOverScript sustituye la reserva solo si sigue apuntando al dueño obsoleto.
var takeOverScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2])
	return 1
end
return 0`)

// Save reserva primero los valores únicos con SETNX; si alguno pertenece a
// otra entidad deshace sus reservas y devuelve AlreadyExists.
func (r *Repository[T]) Save(ctx context.Context, entity T) (err error) {
	ctx, span := r.tel.Start(ctx, "Save")
	defer func() { span.End(err) }()

	id := r.schema.ID(entity)
	payload, err := r.codec.Marshal(entity)
	if err != nil {
		return domain.InfrastructureFault(r.op("Save"), err)
	}

	previous, found, err := r.load(ctx, id)
	if err != nil {
		return err
	}

	var claimed []string
	release := func() {
		if len(claimed) == 0 {
			return
		}
		// sobrevive a la cancelación del llamador para no dejar reservas huérfanas
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := r.client.Del(rctx, claimed...).Err(); err != nil {
			r.tel.Logger().Warn("could not release unique claims", zap.Strings("keys", claimed), zap.Error(err))
		}
	}
	for _, f := range r.schema.UniqueFields() {
		v := r.schema.Value(entity, f.Name)
		if v.IsNull() {
			continue
		}
		key := r.uniqKey(f.Name, v)
		res, err := r.claim(ctx, key, id)
		if err != nil {
			release()
			return domain.InfrastructureFault(r.op("Save"), err)
		}
		switch res {
		case claimNew:
			claimed = append(claimed, key)
		case claimConflict:
			release()
			return domain.AlreadyExists(r.schema.Entity(), f.Name)
		}
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.docKey(id), payload, 0)
		p.SAdd(ctx, r.idsKey(), id)
		return nil
	})
	if err != nil {
		release()
		return domain.InfrastructureFault(r.op("Save"), err)
	}

	// libera los valores únicos que la versión anterior ya no usa
	if found {
		for _, f := range r.schema.UniqueFields() {
			old, cur := r.schema.Value(previous, f.Name), r.schema.Value(entity, f.Name)
			if !old.IsNull() && (cur.IsNull() || criteria.Key(old) != criteria.Key(cur)) {
				r.releaseIfOwner(ctx, r.uniqKey(f.Name, old), id)
			}
		}
	}
	return nil
}

func (r *Repository[T]) FindByID(ctx context.Context, id uuid.UUID) (_ T, err error) {
	ctx, span := r.tel.Start(ctx, "FindByID")
	defer func() { span.End(err) }()

	var zero T
	e, found, err := r.load(ctx, id.String())
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, domain.NotFound(r.schema.Entity(), id.String())
	}
	return e, nil
}

func (r *Repository[T]) Remove(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := r.tel.Start(ctx, "Remove")
	defer func() { span.End(err) }()

	e, found, err := r.load(ctx, id.String())
	if err != nil || !found {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.docKey(id.String()))
		p.SRem(ctx, r.idsKey(), id.String())
		return nil
	})
	if err != nil {
		return domain.InfrastructureFault(r.op("Remove"), err)
	}
	for _, f := range r.schema.UniqueFields() {
		if v := r.schema.Value(e, f.Name); !v.IsNull() {
			r.releaseIfOwner(ctx, r.uniqKey(f.Name, v), id.String())
		}
	}
	return nil
}

func (r *Repository[T]) Exists(ctx context.Context, id uuid.UUID) (_ bool, err error) {
	ctx, span := r.tel.Start(ctx, "Exists")
	defer func() { span.End(err) }()

	n, err := r.client.Exists(ctx, r.docKey(id.String())).Result()
	if err != nil {
		return false, domain.InfrastructureFault(r.op("Exists"), err)
	}
	return n > 0, nil
}

func (r *Repository[T]) FindByCriteria(ctx context.Context, c criteria.Criteria) (_ domain.PaginatedResult[T], err error) {
	ctx, span := r.tel.Start(ctx, "FindByCriteria")
	defer func() { span.End(err) }()

	all, err := r.all(ctx)
	if err != nil {
		return domain.PaginatedResult[T]{}, err
	}
	return r.conv.Execute(c, all)
}

func (r *Repository[T]) CountByCriteria(ctx context.Context, c criteria.Criteria) (_ int, err error) {
	ctx, span := r.tel.Start(ctx, "CountByCriteria")
	defer func() { span.End(err) }()

	all, err := r.all(ctx)
	if err != nil {
		return 0, err
	}
	return r.conv.Count(c, all)
}

func (r *Repository[T]) load(ctx context.Context, id string) (T, bool, error) {
	var zero T
	raw, err := r.client.Get(ctx, r.docKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, domain.InfrastructureFault(r.op("load"), err)
	}
	e, err := r.codec.Unmarshal(raw)
	if err != nil {
		return zero, false, domain.InfrastructureFault(r.op("load"), err)
	}
	return e, true, nil
}

// all lee todas las entidades: SMEMBERS + MGET.
func (r *Repository[T]) all(ctx context.Context) ([]T, error) {
	ids, err := r.client.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return nil, domain.InfrastructureFault(r.op("scan"), err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.InfrastructureFault(r.op("scan"), err)
	}

	out := make([]T, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			// borrada entre SMEMBERS y MGET
			continue
		}
		e, err := r.codec.Unmarshal([]byte(s))
		if err != nil {
			return nil, domain.InfrastructureFault(r.op("scan"), err)
		}
		out = append(out, e)
	}
	return out, nil
}

type claimResult int

const (
	claimNew      claimResult = iota // reservada ahora; se libera si el Save falla
	claimHeld                        // ya era de esta entidad
	claimConflict                    // pertenece a otra entidad viva
)

// claim reserva key para id. Una reserva cuyo dueño ya no tiene documento
// (Save interrumpido) se recupera con un compare-and-set.
func (r *Repository[T]) claim(ctx context.Context, key, id string) (claimResult, error) {
	for {
		ok, err := r.client.SetNX(ctx, key, id, 0).Result()
		if err != nil {
			return claimConflict, err
		}
		if ok {
			return claimNew, nil
		}
		owner, err := r.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			// liberada entre SETNX y GET
			continue
		}
		if err != nil {
			return claimConflict, err
		}
		if owner == id {
			return claimHeld, nil
		}
		alive, err := r.client.Exists(ctx, r.docKey(owner)).Result()
		if err != nil {
			return claimConflict, err
		}
		if alive > 0 {
			return claimConflict, nil
		}
		swapped, err := takeOverScript.Run(ctx, r.client, []string{key}, owner, id).Int()
		if err != nil {
			return claimConflict, err
		}
		if swapped == 1 {
			r.tel.Logger().Info("took over stale unique claim", zap.String("key", key), zap.String("stale_owner", owner))
			return claimNew, nil
		}
	}
}

func (r *Repository[T]) releaseIfOwner(ctx context.Context, key, id string) {
	if owner, err := r.client.Get(ctx, key).Result(); err == nil && owner == id {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			r.tel.Logger().Warn("could not release unique claim", zap.String("key", key), zap.Error(err))
		}
	}
}

func (r *Repository[T]) op(name string) string {
	return r.schema.Entity() + "." + name
}
