package benchmarks

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/zoobzio/spanz"
)

func newBenchTracer(b *testing.B) *spanz.Tracer {
	b.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	consumer := spanz.ConsumerFunc(func([]*spanz.Trace) error { return nil })
	tracer, err := spanz.New(consumer, "bench", spanz.NewTraceID(), spanz.WithLogger(logger))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(tracer.Close)
	return tracer
}

// BenchmarkStartEnd measures a root span that flushes on every end.
func BenchmarkStartEnd(b *testing.B) {
	tracer := newBenchTracer(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, span, _ := tracer.StartSpan(ctx, "op")
		_ = span.End()
	}
}

// BenchmarkNestedUnderRoot measures child spans appended to an open trace.
func BenchmarkNestedUnderRoot(b *testing.B) {
	tracer := newBenchTracer(b)
	ctx, root, _ := tracer.StartSpan(context.Background(), "root")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, span, _ := tracer.StartSpan(ctx, "child")
		_ = span.End()
	}
	b.StopTimer()
	_ = root.End()
}

// BenchmarkRunInSpan measures the wrapper on the success path.
func BenchmarkRunInSpan(b *testing.B) {
	tracer := newBenchTracer(b)
	ctx := context.Background()
	fn := func(context.Context) error { return nil }

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tracer.RunInSpan(ctx, "op", fn)
	}
}

// BenchmarkDepth measures start cost as the stack grows.
func BenchmarkDepth(b *testing.B) {
	for _, depth := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("depth-%d", depth), func(b *testing.B) {
			tracer := newBenchTracer(b)
			ctx := context.Background()
			spans := make([]*spanz.Span, depth)
			for d := 0; d < depth; d++ {
				ctx, spans[d], _ = tracer.StartSpan(ctx, "frame")
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, span, _ := tracer.StartSpan(ctx, "leaf")
				_ = span.End()
			}
			b.StopTimer()
			for d := depth - 1; d >= 0; d-- {
				_ = spans[d].End()
			}
		})
	}
}

// BenchmarkForkParallel measures forked flows started in parallel.
func BenchmarkForkParallel(b *testing.B) {
	tracer := newBenchTracer(b)
	ctx, root, _ := tracer.StartSpan(context.Background(), "root")

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		forked := tracer.Fork(ctx)
		for pb.Next() {
			_, span, _ := tracer.StartSpan(forked, "worker")
			_ = span.End()
		}
	})
	b.StopTimer()
	_ = root.End()
}
