package spanz

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Span is the handle of an open span. End finishes it.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order groups immutable identity before mutable state
type Span struct {
	tracer   *Tracer
	flow     *flow
	name     string
	id       uint64
	parentID uint64
	kind     Kind
	start    time.Time

	mu       sync.Mutex // Protects labels and end.
	labels   map[string]string
	end      time.Time
	disposed atomic.Bool
}

// SpanID returns the id of the span.
func (s *Span) SpanID() uint64 {
	return s.id
}

// ParentSpanID returns the id of the span's parent, 0 if it has none.
func (s *Span) ParentSpanID() uint64 {
	return s.parentID
}

// Name returns the span name.
func (s *Span) Name() string {
	return s.name
}

// Disposed reports whether the span has ended.
func (s *Span) Disposed() bool {
	return s.disposed.Load()
}

// AnnotateSpan adds labels to the span. A key that is already set fails
// the whole call with ErrDuplicateLabel and no label is added.
func (s *Span) AnnotateSpan(labels map[string]string) error {
	if labels == nil {
		return invalidArgument("labels must not be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed.Load() {
		return errors.Wrapf(ErrSpanEnded, "annotate %q", s.name)
	}
	return s.addLabelsLocked(labels)
}

// SetStackTrace records st on the span under StackTraceLabel.
func (s *Span) SetStackTrace(st errors.StackTrace) error {
	labels, err := StackTraceLabels(st)
	if err != nil {
		return err
	}
	return s.AnnotateSpan(labels)
}

// End finishes the span and records it in the trace. If it was the last
// open span of the tracer the trace is flushed to the consumer and the
// consumer's error, if any, is returned.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Span) End() error {
	s.mu.Lock()
	if s.disposed.Load() {
		s.mu.Unlock()
		return nil
	}
	s.end = s.tracer.clock.Now()
	s.disposed.Store(true)
	s.mu.Unlock()

	return s.tracer.endSpan(s.flow, s)
}

// NewTracer returns a tracer whose root spans are children of this span.
// It shares the consumer, trace id and project id of the span's tracer but
// keeps its own open span count and trace in progress, so it flushes on its
// own. Use it to attach a goroutine's spans to a span that is not on the
// goroutine's stack.
func (s *Span) NewTracer() *Tracer {
	return s.tracer.derive(s.id)
}

func (s *Span) addLabelsLocked(labels map[string]string) error {
	for k := range labels {
		if _, exists := s.labels[k]; exists {
			return errors.Wrapf(ErrDuplicateLabel, "label %q on span %q", k, s.name)
		}
	}
	if s.labels == nil {
		s.labels = make(map[string]string, len(labels))
	}
	for k, v := range labels {
		s.labels[k] = v
	}
	return nil
}

// finished snapshots the span record. Only valid after End.
func (s *Span) finished() FinishedSpan {
	s.mu.Lock()
	defer s.mu.Unlock()

	return FinishedSpan{
		SpanID:       s.id,
		ParentSpanID: s.parentID,
		Name:         s.name,
		Kind:         s.kind,
		StartTime:    s.start,
		EndTime:      s.end,
		Labels:       copyLabels(s.labels),
	}
}

// SpanOption configures a span at start.
type SpanOption func(*spanOptions) error

type spanOptions struct {
	labels map[string]string
	kind   Kind
}

// WithKind sets the span kind. The default is KindUnspecified.
func WithKind(kind Kind) SpanOption {
	return func(o *spanOptions) error {
		if !kind.valid() {
			return errInvalidKind(kind)
		}
		o.kind = kind
		return nil
	}
}

// WithLabels sets initial labels. Labels from several WithLabels options
// are merged; a key given twice is an error.
func WithLabels(labels map[string]string) SpanOption {
	return func(o *spanOptions) error {
		if labels == nil {
			return invalidArgument("labels must not be nil")
		}
		if o.labels == nil {
			o.labels = make(map[string]string, len(labels))
		}
		for k, v := range labels {
			if _, exists := o.labels[k]; exists {
				return errors.Wrapf(ErrDuplicateLabel, "label %q", k)
			}
			o.labels[k] = v
		}
		return nil
	}
}

func buildSpanOptions(opts []SpanOption) (spanOptions, error) {
	var o spanOptions
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&o); err != nil {
			return spanOptions{}, err
		}
	}
	return o, nil
}
