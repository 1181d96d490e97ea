package spanz

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/zoobzio/clockz"
)

// Tracer manages the spans of one trace.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order optimized for functionality over memory
type Tracer struct {
	consumer   Consumer
	ids        *SpanIDFactory
	clock      clockz.Clock
	logger     logrus.FieldLogger
	metrics    *Metrics
	traceID    string
	projectID  string
	rootParent uint64
	hasRoot    bool
	ownsIDs    bool

	mu    sync.Mutex // Guards trace; flushes happen under it.
	trace *Trace
	open  atomic.Int64
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithClock sets the clock used for span timestamps.
// Enables clock injection for deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(t *Tracer) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(logger logrus.FieldLogger) Option {
	return func(t *Tracer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithRootParentSpanID makes root spans of the tracer children of the span
// with the given id, usually a span of another tracer or process.
func WithRootParentSpanID(id uint64) Option {
	return func(t *Tracer) {
		t.rootParent = id
		t.hasRoot = id != 0
	}
}

// WithSpanIDFactory sets the span id factory. The tracer does not close a
// factory it was given.
func WithSpanIDFactory(f *SpanIDFactory) Option {
	return func(t *Tracer) {
		if f != nil {
			t.ids = f
			t.ownsIDs = false
		}
	}
}

// WithIDPoolSize sizes the pool of pre-generated span ids.
func WithIDPoolSize(n int) Option {
	return func(t *Tracer) {
		t.ids = NewSpanIDFactory(n)
		t.ownsIDs = true
	}
}

// WithMetrics records span and flush counts in m.
func WithMetrics(m *Metrics) Option {
	return func(t *Tracer) {
		t.metrics = m
	}
}

// New creates a tracer for the trace traceID of project projectID. Finished
// traces are handed to consumer.
func New(consumer Consumer, projectID, traceID string, opts ...Option) (*Tracer, error) {
	if consumer == nil {
		return nil, invalidArgument("consumer must not be nil")
	}
	if projectID == "" {
		return nil, invalidArgument("project id must not be empty")
	}
	if traceID == "" {
		return nil, invalidArgument("trace id must not be empty")
	}

	t := &Tracer{
		consumer:  consumer,
		clock:     clockz.RealClock,
		logger:    logrus.StandardLogger(),
		traceID:   traceID,
		projectID: projectID,
		ownsIDs:   true,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.ids == nil {
		t.ids = NewSpanIDFactory(0)
	}
	t.trace = newTrace(t.traceID, t.projectID)
	return t, nil
}

// derive creates a tracer sharing t's identity and collaborators whose root
// spans are children of parent.
func (t *Tracer) derive(parent uint64) *Tracer {
	d := &Tracer{
		consumer:   t.consumer,
		ids:        t.ids,
		clock:      t.clock,
		logger:     t.logger,
		metrics:    t.metrics,
		traceID:    t.traceID,
		projectID:  t.projectID,
		rootParent: parent,
		hasRoot:    parent != 0,
	}
	d.trace = newTrace(d.traceID, d.projectID)
	return d
}

// TraceID returns the id of the trace. It does not change across flushes.
func (t *Tracer) TraceID() string {
	return t.traceID
}

// ProjectID returns the project the trace belongs to.
func (t *Tracer) ProjectID() string {
	return t.projectID
}

// OpenSpans returns the number of spans started and not yet ended, on any
// flow.
func (t *Tracer) OpenSpans() int64 {
	return t.open.Load()
}

// StartSpan starts a span whose parent is the most recent unfinished span of
// ctx's flow, or the root parent of the tracer if there is none. The
// returned context carries the flow; pass it on to start child spans.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, *Span, error) {
	if name == "" {
		return ctx, nil, invalidArgument("span name must not be empty")
	}
	o, err := buildSpanOptions(opts)
	if err != nil {
		return ctx, nil, err
	}

	ctx, f := t.ensureFlow(ctx)

	f.mu.Lock()
	top, _ := f.top.prune()
	parent := t.rootParent
	if live := top.peek(); live != nil {
		parent = live.id
	}
	span := &Span{
		tracer:   t,
		flow:     f,
		name:     name,
		id:       t.ids.NextID(),
		parentID: parent,
		kind:     o.kind,
		start:    t.clock.Now(),
		labels:   o.labels,
	}
	// Counted before it becomes visible, so an EndSpan on a shared flow
	// cannot decrement for it first.
	t.open.Add(1)
	f.top = top.push(span)
	f.mu.Unlock()

	t.metrics.spanStarted()
	return ctx, span, nil
}

// EndSpan ends the most recent unfinished span of ctx's flow. Both the
// span's owning flow and ctx's flow are left without ended spans on top.
func (t *Tracer) EndSpan(ctx context.Context) error {
	f := t.flowFrom(ctx)
	if f == nil {
		return errors.Wrap(ErrNoOpenSpan, "end span")
	}
	span := f.live()
	if span == nil {
		return errors.Wrap(ErrNoOpenSpan, "end span")
	}
	err := span.End()
	if span.flow != f {
		f.live()
	}
	return err
}

// endSpan reconciles f with the end of span and records it. span has
// already been flagged disposed, so another walk over f may have dropped
// it already; it is recorded either way.
func (t *Tracer) endSpan(f *flow, span *Span) error {
	f.mu.Lock()
	// If span is on top it goes now, with any ended spans under it. If not,
	// it stays flagged in the stack until a later walk reaches it.
	f.top, _ = f.top.prune()
	f.mu.Unlock()

	record := span.finished()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.trace.Spans = append(t.trace.Spans, record)
	t.metrics.spanFinished()

	open := t.open.Add(-1)
	if open < 0 {
		panic(fmt.Sprintf("spanz: open span count went negative (%d) ending span %q", open, span.name))
	}
	if open == 0 {
		return t.flushLocked()
	}
	return nil
}

// flushLocked hands the trace in progress to the consumer and starts a new
// one. Must be called with t.mu held.
func (t *Tracer) flushLocked() error {
	old := t.trace
	t.trace = newTrace(t.traceID, t.projectID)

	log := t.logger.WithFields(logrus.Fields{
		"trace_id":   old.TraceID,
		"project_id": old.ProjectID,
		"spans":      len(old.Spans),
	})
	log.Debug("Flushing trace")

	if err := t.consumer.Receive([]*Trace{old}); err != nil {
		t.metrics.flushFailed()
		log.WithError(err).Error("Consumer failed to receive trace")
		return errors.Wrapf(err, "flush trace %s", old.TraceID)
	}
	t.metrics.flushed()
	return nil
}

// AnnotateSpan adds labels to the most recent unfinished span of ctx's
// flow.
func (t *Tracer) AnnotateSpan(ctx context.Context, labels map[string]string) error {
	if labels == nil {
		return invalidArgument("labels must not be nil")
	}
	span, err := t.currentSpan(ctx)
	if err != nil {
		return errors.Wrap(err, "annotate span")
	}
	return span.AnnotateSpan(labels)
}

// SetStackTrace records st on the most recent unfinished span of ctx's flow.
func (t *Tracer) SetStackTrace(ctx context.Context, st errors.StackTrace) error {
	labels, err := StackTraceLabels(st)
	if err != nil {
		return err
	}
	return t.AnnotateSpan(ctx, labels)
}

// CurrentSpanID returns the id of the most recent unfinished span of ctx's
// flow. Without one it returns the tracer's root parent id, if set.
func (t *Tracer) CurrentSpanID(ctx context.Context) (uint64, bool) {
	if f := t.flowFrom(ctx); f != nil {
		if span := f.live(); span != nil {
			return span.id, true
		}
	}
	return t.rootParent, t.hasRoot
}

func (t *Tracer) currentSpan(ctx context.Context) (*Span, error) {
	f := t.flowFrom(ctx)
	if f == nil {
		return nil, ErrNoOpenSpan
	}
	span := f.live()
	if span == nil {
		return nil, ErrNoOpenSpan
	}
	return span, nil
}

// Close releases the span id pool of the tracer. Spans still open can be
// ended afterwards.
func (t *Tracer) Close() {
	if t.ownsIDs {
		t.ids.Close()
	}
}
