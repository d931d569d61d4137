package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnTurnAppended(ctx, &domain.TurnEvent{Turn: domain.Turn{Role: domain.RoleUser, Presentation: domain.PresentText}})
	hooks.OnTurnAppended(ctx, &domain.TurnEvent{Turn: domain.Turn{Role: domain.RoleAssistant, Presentation: domain.PresentForm}})
	hooks.OnFlowStep(ctx, &domain.FlowEvent{FlowID: "payment", StepID: "payment_details"})
	hooks.OnFlowStep(ctx, &domain.FlowEvent{FlowID: "payment", StepID: "payment_details"})
	hooks.OnFlowCompleted(ctx, &domain.FlowEvent{FlowID: "payment", Reference: "PAY-101"})
	hooks.OnResolveFailed(ctx, &domain.FaultEvent{Err: errors.New("boom"), Duration: 2 * time.Second})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("user", "text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("assistant", "form")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FlowSteps.WithLabelValues("payment", "payment_details")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowsCompleted.WithLabelValues("payment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolveFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FaultDuration))
}

func TestMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}
