package spanz

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
)

// recorder is a Consumer remembering every trace it receives.
type recorder struct {
	mu     sync.Mutex
	traces []*Trace
	calls  int
}

func (r *recorder) Receive(traces []*Trace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.traces = append(r.traces, traces...)
	return nil
}

func (r *recorder) Traces() []*Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Trace, len(r.traces))
	copy(out, r.traces)
	return out
}

func (r *recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// mockConsumer is a testify mock of Consumer.
type mockConsumer struct {
	mock.Mock
}

func (m *mockConsumer) Receive(traces []*Trace) error {
	args := m.Called(traces)
	return args.Error(0)
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeClock is the part of the clockz fake clock the tests drive.
type fakeClock interface {
	clockz.Clock
	Advance(d time.Duration)
}

// newTestTracer returns a tracer on a fake clock writing to a recorder.
func newTestTracer(t *testing.T, opts ...Option) (*Tracer, *recorder, fakeClock) {
	t.Helper()
	rec := &recorder{}
	clock := clockz.NewFakeClock()
	base := []Option{WithClock(clock), WithLogger(quietLogger())}
	tracer, err := New(rec, "test-project", "0123456789abcdef0123456789abcdef", append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(tracer.Close)
	return tracer, rec, clock
}

func spanNames(tr *Trace) []string {
	names := make([]string, len(tr.Spans))
	for i, s := range tr.Spans {
		names[i] = s.Name
	}
	return names
}
