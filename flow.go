package spanz

import (
	"context"
	"sync"
)

// flowKey is keyed by tracer so derived tracers keep separate stacks on the
// same context.
type flowKey struct {
	tracer *Tracer
}

// flow is the slot holding one flow's current stack value. The value it
// holds is immutable; the slot itself is guarded because a span can be
// ended from a goroutine other than the one that owns the flow.
type flow struct {
	mu  sync.Mutex
	top *stack
}

func (f *flow) load() *stack {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.top
}

// live prunes ended spans off the top, stores the result and returns the
// live top span, or nil if none is left.
func (f *flow) live() *Span {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.top, _ = f.top.prune()
	return f.top.peek()
}

func (t *Tracer) flowFrom(ctx context.Context) *flow {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(flowKey{tracer: t}).(*flow)
	return f
}

// ensureFlow returns the flow carried by ctx, attaching a new empty one if
// ctx has none.
func (t *Tracer) ensureFlow(ctx context.Context) (context.Context, *flow) {
	if ctx == nil {
		ctx = context.Background()
	}
	if f := t.flowFrom(ctx); f != nil {
		return ctx, f
	}
	f := &flow{}
	return context.WithValue(ctx, flowKey{tracer: t}, f), f
}

// Fork returns a context with a new flow seeded from the current stack of
// ctx's flow. Spans started or ended through the returned context do not
// change the stack seen through ctx, and the other way around.
//
// Hand a forked context to every goroutine that starts spans of its own:
//
//	go func(ctx context.Context) {
//		ctx, span, _ := tracer.StartSpan(ctx, "background")
//		defer span.End()
//		...
//	}(tracer.Fork(ctx))
func (t *Tracer) Fork(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	child := &flow{}
	if parent := t.flowFrom(ctx); parent != nil {
		child.top = parent.load()
	}
	return context.WithValue(ctx, flowKey{tracer: t}, child)
}
