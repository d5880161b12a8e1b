package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

var (
	// OperationDuration mide cada operación de repositorio por backend, entidad y resultado.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "criterialab_repository_operation_duration_seconds",
			Help:    "Latency of repository operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "entity", "operation", "outcome"},
	)
)

// Instrumentation agrupa tracer, métricas y logger de un repositorio.
type Instrumentation struct {
	backend string
	entity  string
	tracer  trace.Tracer
	log     *zap.Logger
}

// New usa el TracerProvider global (noop mientras nadie instale uno).
func New(backend, entity string, log *zap.Logger) *Instrumentation {
	if log == nil {
		log = zap.NewNop()
	}
	return &Instrumentation{
		backend: backend,
		entity:  entity,
		tracer:  otel.Tracer("criterialab/" + backend),
		log:     log,
	}
}

// WithTracer sustituye el tracer.
func (i *Instrumentation) WithTracer(t trace.Tracer) *Instrumentation {
	i.tracer = t
	return i
}

func (i *Instrumentation) Logger() *zap.Logger { return i.log }

// Span es una operación en curso; se cierra con End.
type Span struct {
	inst  *Instrumentation
	op    string
	start time.Time
	span  trace.Span
}

// Start abre el span "<entity>.<op>".
func (i *Instrumentation) Start(ctx context.Context, op string) (context.Context, *Span) {
	ctx, span := i.tracer.Start(ctx, i.entity+"."+op)
	span.SetAttributes(
		attribute.String("db.system", i.backend),
		attribute.String("db.collection", i.entity),
		attribute.String("db.operation", op),
	)
	return ctx, &Span{inst: i, op: op, start: time.Now(), span: span}
}

// End registra la duración y el resultado. Los fallos de infraestructura se
// loguean en Warn; NotFound y AlreadyExists son resultados normales.
func (s *Span) End(err error) {
	defer s.span.End()

	outcome := outcomeOf(err)
	OperationDuration.WithLabelValues(s.inst.backend, s.inst.entity, s.op, outcome).
		Observe(time.Since(s.start).Seconds())

	if err == nil {
		return
	}
	s.span.SetAttributes(attribute.String("db.outcome", outcome))
	if outcome == "fault" {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		s.inst.log.Warn("repository operation failed",
			zap.String("backend", s.inst.backend),
			zap.String("entity", s.inst.entity),
			zap.String("operation", s.op),
			zap.Error(err))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAlreadyExists):
		return "conflict"
	case errors.Is(err, criteria.ErrInvalidCriteria):
		return "invalid"
	}
	return "fault"
}
