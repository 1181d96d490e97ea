// Package spanz provides an in-process span tracker for one logical trace.
//
// spanz keeps a stack of open spans per flow of execution. Starting a span
// makes it the parent of the next span started on the same flow; ending the
// last open span hands the finished trace to a Consumer.
//
// Core Components:
//   - Tracer: starts, ends and annotates spans, owns the trace in progress.
//   - Span: handle for one open span, End() finishes it.
//   - Trace: the finished spans of one flush, handed to the Consumer.
//   - Consumer: receives finished traces (Collector, JSONConsumer).
//
// Basic Usage:
//
//	tracer, err := spanz.New(consumer, "my-project", spanz.NewTraceID())
//	if err != nil {
//		return err
//	}
//	defer tracer.Close()
//
//	ctx, span, err := tracer.StartSpan(ctx, "handle-request")
//	if err != nil {
//		return err
//	}
//	defer span.End()
//
//	// Child spans pick up the current span from ctx.
//	err = tracer.RunInSpan(ctx, "load-user", func(ctx context.Context) error {
//		return load(ctx)
//	})
//
// Flows:
//
// The context returned by StartSpan carries a flow: a slot holding the
// stack of open spans. Spans started with that context (or one derived
// from it) share the slot. A goroutine that should get its own view of
// the stack must be handed Fork(ctx):
//
//	go worker(tracer.Fork(ctx))
//
// After the fork, spans started or ended on one side are invisible to the
// other. Both sides still see the spans that were open at the fork.
//
// Out of order ends:
//
// A span may be ended while spans started after it are still open, or from
// a different flow. The entry is flagged and skipped by the next walk that
// reaches it at the top of a stack; its data is recorded once, at End.
//
// Thread Safety:
//
// Tracer and Span are safe for concurrent use by multiple goroutines.
package spanz

// Kind classifies a span.
type Kind int

// Span kinds.
const (
	KindUnspecified Kind = iota
	KindRPCServer
	KindRPCClient
)

// StackTraceLabel is the label key holding a captured stack trace.
const StackTraceLabel = "/stacktrace"

var kindNames = map[Kind]string{
	KindUnspecified: "SPAN_KIND_UNSPECIFIED",
	KindRPCServer:   "RPC_SERVER",
	KindRPCClient:   "RPC_CLIENT",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "SPAN_KIND_UNKNOWN"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, errInvalidKind(k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return errInvalidKindName(string(text))
}

func (k Kind) valid() bool {
	_, ok := kindNames[k]
	return ok
}
