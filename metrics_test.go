package spanz

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	tracer, _, _ := newTestTracer(t, WithMetrics(m))

	ctx, outer, err := tracer.StartSpan(context.Background(), "outer")
	require.NoError(t, err)
	_, inner, err := tracer.StartSpan(ctx, "inner")
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.started))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.openSpans))

	require.NoError(t, inner.End())
	require.NoError(t, outer.End())

	assert.Equal(t, float64(2), testutil.ToFloat64(m.finished))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.openSpans))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.flushes))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.flushErrors))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestMetricsFlushErrors(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	failing := ConsumerFunc(func([]*Trace) error { return errors.New("unavailable") })
	tracer, err := New(failing, "p", "t", WithMetrics(m), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer tracer.Close()

	_, span, err := tracer.StartSpan(context.Background(), "s")
	require.NoError(t, err)
	assert.Error(t, span.End())

	assert.Equal(t, float64(1), testutil.ToFloat64(m.flushErrors))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.flushes))
}

func TestMetricsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.spanStarted()
		m.spanFinished()
		m.flushed()
		m.flushFailed()
	})
}
