package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

type countingTracer struct {
	noop.Tracer
	starts int
}

func (c *countingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	c.starts++
	return c.Tracer.Start(ctx, name, opts...)
}

func TestRepository_OptionsInAnyOrder(t *testing.T) {
	cases := map[string]func(*countingTracer, *zap.Logger) []Option[*doc]{
		"tracer first": func(tr *countingTracer, log *zap.Logger) []Option[*doc] {
			return []Option[*doc]{WithTracer[*doc](tr), WithLogger[*doc](log)}
		},
		"logger first": func(tr *countingTracer, log *zap.Logger) []Option[*doc] {
			return []Option[*doc]{WithLogger[*doc](log), WithTracer[*doc](tr)}
		},
	}

	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			// Arrange
			tracer := &countingTracer{}
			core, logs := observer.New(zapcore.WarnLevel)
			repo := NewRepository(docSchema, opts(tracer, zap.New(core))...)

			cancelled, cancel := context.WithCancel(context.Background())
			cancel()

			// Act
			err := repo.Save(cancelled, &doc{ID: "00000000-0000-0000-0000-000000000001", Label: "a"})

			// Assert
			assert.ErrorIs(t, err, domain.ErrInfrastructure)
			assert.Equal(t, 1, tracer.starts)
			assert.Equal(t, 1, logs.Len())
		})
	}
}

func TestRepository_UniquenessFollowsCollation(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(docSchema)

	require.NoError(t, repo.Save(ctx, &doc{ID: "00000000-0000-0000-0000-000000000001", Label: "caf\u00e9"}))

	err := repo.Save(ctx, &doc{ID: "00000000-0000-0000-0000-000000000002", Label: "cafe\u0301"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	// EQUAL con la forma descompuesta encuentra la compuesta
	got, err := repo.FindByCriteria(ctx, mustCriteria(t, "label", "cafe\u0301"))
	require.NoError(t, err)
	require.Len(t, got.Data, 1)
	assert.Equal(t, "caf\u00e9", got.Data[0].Label)

	n, err := repo.CountByCriteria(ctx, mustCriteriaOp(t, "label", criteria.NotEqual, "cafe\u0301"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func mustCriteriaOp(t *testing.T, field string, op criteria.Operator, value string) criteria.Criteria {
	t.Helper()
	c, err := criteria.New(docSchema, criteria.NewFilters(criteria.NewFilter(field, op, value)), criteria.NoOrder(), nil)
	require.NoError(t, err)
	return c
}
