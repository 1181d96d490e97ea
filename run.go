package spanz

import (
	"context"

	"github.com/pkg/errors"
)

// RunInSpan runs fn inside a new span. The span ends however fn returns. If
// fn fails, by error or panic, the failure's stack trace is recorded on the
// span first; the error is then returned as is, or the panic resumed with
// the same value.
func (t *Tracer) RunInSpan(ctx context.Context, name string, fn func(context.Context) error, opts ...SpanOption) error {
	if fn == nil {
		return invalidArgument("fn must not be nil")
	}
	_, err := RunInSpanValue(ctx, t, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
	return err
}

// RunInSpanValue is RunInSpan for functions returning a value.
func RunInSpanValue[T any](ctx context.Context, t *Tracer, name string, fn func(context.Context) (T, error), opts ...SpanOption) (T, error) {
	if fn == nil {
		var zero T
		return zero, invalidArgument("fn must not be nil")
	}
	ctx, span, err := t.StartSpan(ctx, name, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return runStarted(ctx, span, fn)
}

func runStarted[T any](ctx context.Context, span *Span, fn func(context.Context) (T, error)) (result T, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		// Still on the panicking goroutine's stack, so the panic site is
		// in the captured frames.
		span.recordFailure(callers(1))
		span.endAfterFailure()
		panic(r)
	}()

	result, err = fn(ctx)
	if err != nil {
		span.recordFailure(stackOf(err, 0))
		span.endAfterFailure()
		return result, err
	}
	return result, span.End()
}

func (s *Span) recordFailure(st errors.StackTrace) {
	if err := s.SetStackTrace(st); err != nil {
		s.tracer.logger.WithError(err).WithField("span", s.name).Warn("Could not record stack trace on span")
	}
}

// endAfterFailure ends the span on a failure path, where the original
// failure takes precedence over an error from End.
func (s *Span) endAfterFailure() {
	if err := s.End(); err != nil {
		s.tracer.logger.WithError(err).WithField("span", s.name).Error("Error ending span after failure")
	}
}

// Pending is the outcome of RunInSpanAsync.
type Pending struct {
	done      chan struct{}
	err       error
	recovered interface{}
	panicked  bool
}

// Done is closed once the work has finished and its span has ended.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the work has finished and returns its error. If the
// work panicked, Wait panics with the same value.
func (p *Pending) Wait() error {
	<-p.done
	if p.panicked {
		panic(p.recovered)
	}
	return p.err
}

// RunInSpanAsync runs fn on a new goroutine inside a new span. The span is
// started on a fork of ctx's flow before RunInSpanAsync returns, so it is
// a child of ctx's current span and does not appear on ctx's stack.
func (t *Tracer) RunInSpanAsync(ctx context.Context, name string, fn func(context.Context) error, opts ...SpanOption) *Pending {
	p := &Pending{done: make(chan struct{})}
	if fn == nil {
		p.err = invalidArgument("fn must not be nil")
		close(p.done)
		return p
	}

	ctx, span, err := t.StartSpan(t.Fork(ctx), name, opts...)
	if err != nil {
		p.err = err
		close(p.done)
		return p
	}

	go func() {
		defer close(p.done)
		defer func() {
			if r := recover(); r != nil {
				p.recovered = r
				p.panicked = true
			}
		}()
		_, p.err = runStarted(ctx, span, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, fn(ctx)
		})
	}()
	return p
}
