package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"oraclequest/config"
	"oraclequest/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestProvider(t *testing.T) (*MetricsProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := NewMetricsProvider(config.NewTestConfig())
	mp.mu.Lock()
	require.NoError(t, mp.start(reader))
	mp.mu.Unlock()
	t.Cleanup(func() { mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %s not collected", name)
	return metricdata.Metrics{}
}

func attr(set attribute.Set, key string) string {
	v, ok := set.Value(attribute.Key(key))
	if !ok {
		return ""
	}
	return v.AsString()
}

func TestObserveTransition_Outcomes(t *testing.T) {
	mp, reader := newTestProvider(t)
	ctx := context.Background()

	mp.ObserveTransition(ctx, "place_bet", entities.RegimeDirect, 3*time.Millisecond, nil)
	mp.ObserveTransition(ctx, "place_bet", entities.RegimeDirect, time.Millisecond, entities.ErrDuplicateBet)
	mp.ObserveTransition(ctx, "place_bet", entities.RegimeCompressed, time.Millisecond, errors.New("connection reset"))

	sum, ok := collect(t, reader, TransitionsTotal).Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 3)

	outcomes := map[string]metricdata.DataPoint[int64]{}
	for _, dp := range sum.DataPoints {
		outcomes[attr(dp.Attributes, LabelOutcome)] = dp
	}
	require.Contains(t, outcomes, OutcomeCommitted)
	require.Contains(t, outcomes, OutcomeRejected)
	require.Contains(t, outcomes, OutcomeFailed)

	rejected := outcomes[OutcomeRejected]
	assert.Equal(t, "DuplicateBet", attr(rejected.Attributes, LabelErrorName))
	assert.Equal(t, string(entities.CategoryStateConflict), attr(rejected.Attributes, LabelCategory))
	assert.Equal(t, "compressed", attr(outcomes[OutcomeFailed].Attributes, LabelRegime))
}

func TestObserveBatch_RecordsEveryRole(t *testing.T) {
	mp, reader := newTestProvider(t)

	mp.ObserveBatch(context.Background(), 1, 2, 1, 3)

	hist, ok := collect(t, reader, TreeBatchAccounts).Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 4)
	for _, dp := range hist.DataPoints {
		assert.Equal(t, uint64(1), dp.Count)
		if attr(dp.Attributes, LabelRole) == RoleOutput {
			assert.Equal(t, int64(3), dp.Sum)
		}
	}
}

func TestMetricsProvider_DisabledIsNoop(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = false
	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))

	assert.False(t, mp.isEnabled())
	assert.NotPanics(t, func() {
		mp.ObserveTransition(context.Background(), "resolve_event", entities.RegimeDirect, time.Millisecond, nil)
		mp.ObserveBatch(context.Background(), 0, 1, 0, 1)
		mp.RecordEventPublished("bet_placed", nil)
	})
}
