package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "ok", outcomeOf(nil))
	assert.Equal(t, "not_found", outcomeOf(domain.NotFound("e", "1")))
	assert.Equal(t, "conflict", outcomeOf(domain.AlreadyExists("e", "email")))
	assert.Equal(t, "invalid", outcomeOf(&criteria.ValidationError{Field: "x"}))
	assert.Equal(t, "fault", outcomeOf(domain.InfrastructureFault("e.Save", errors.New("boom"))))
}

func TestSpan_ObservesAndLogsFaults(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	inst := New("test", "telemetry_entity", zap.New(core))

	before := testutil.CollectAndCount(OperationDuration)

	_, span := inst.Start(context.Background(), "FindByID")
	span.End(domain.NotFound("telemetry_entity", "1"))

	_, span = inst.Start(context.Background(), "Save")
	span.End(domain.InfrastructureFault("telemetry_entity.Save", context.Canceled))

	assert.Equal(t, before+2, testutil.CollectAndCount(OperationDuration))
	assert.Equal(t, 1, logs.FilterMessage("repository operation failed").Len())
}
