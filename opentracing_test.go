package spanz

import (
	"context"
	"testing"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromOpenTracing(t *testing.T) {
	tracer, rec, _ := newTestTracer(t)

	opts := FromOpenTracing(
		ext.SpanKindRPCServer,
		opentracing.Tags{"http.method": "GET", "http.status_code": 200},
		opentracing.StartTime(time.Unix(0, 0)),
	)

	_, span, err := tracer.StartSpan(context.Background(), "GET /users", opts...)
	require.NoError(t, err)
	require.NoError(t, span.End())

	got := rec.Traces()[0].Spans[0]
	assert.Equal(t, KindRPCServer, got.Kind)
	assert.Equal(t, map[string]string{"http.method": "GET", "http.status_code": "200"}, got.Labels)
	assert.NotEqual(t, time.Unix(0, 0), got.StartTime, "start time comes from the tracer clock")
}

func TestFromOpenTracingKinds(t *testing.T) {
	tests := []struct {
		name string
		opt  opentracing.StartSpanOption
		want Kind
	}{
		{"server", ext.SpanKindRPCServer, KindRPCServer},
		{"client", ext.SpanKindRPCClient, KindRPCClient},
		{"producer", ext.SpanKindProducer, KindUnspecified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := buildSpanOptions(FromOpenTracing(tt.opt))
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.kind)
			assert.Empty(t, o.labels)
		})
	}
}

func TestFromOpenTracingEmpty(t *testing.T) {
	assert.Empty(t, FromOpenTracing())
	assert.Empty(t, FromOpenTracing(nil))
}
