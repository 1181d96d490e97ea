package spanz

import (
	"fmt"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// FromOpenTracing converts opentracing start options to span options, so
// code written against opentracing can start spans on a Tracer. Tags become
// labels; the span.kind tag sets the kind instead. References and start
// times are ignored: the parent always comes from the flow.
func FromOpenTracing(opts ...opentracing.StartSpanOption) []SpanOption {
	var sso opentracing.StartSpanOptions
	for _, o := range opts {
		if o != nil {
			o.Apply(&sso)
		}
	}

	var out []SpanOption
	labels := make(map[string]string, len(sso.Tags))
	for k, v := range sso.Tags {
		if k == string(ext.SpanKind) {
			out = append(out, WithKind(kindFromOpenTracing(v)))
			continue
		}
		labels[k] = fmt.Sprint(v)
	}
	if len(labels) > 0 {
		out = append(out, WithLabels(labels))
	}
	return out
}

func kindFromOpenTracing(v interface{}) Kind {
	switch fmt.Sprint(v) {
	case string(ext.SpanKindRPCServerEnum):
		return KindRPCServer
	case string(ext.SpanKindRPCClientEnum):
		return KindRPCClient
	default:
		return KindUnspecified
	}
}
