package spanz

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// FinishedSpan is the record of an ended span. It is not modified after it
// has been added to a Trace.
type FinishedSpan struct {
	Labels       map[string]string `json:"labels,omitempty"`
	StartTime    time.Time         `json:"start_time"`
	EndTime      time.Time         `json:"end_time"`
	Name         string            `json:"name"`
	SpanID       uint64            `json:"span_id,string"`
	ParentSpanID uint64            `json:"parent_span_id,string,omitempty"`
	Kind         Kind              `json:"kind"`
}

// Duration is the time between start and end.
func (s FinishedSpan) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Trace accumulates the spans that finished since the last flush, in the
// order they finished.
type Trace struct {
	TraceID   string         `json:"trace_id"`
	ProjectID string         `json:"project_id"`
	Spans     []FinishedSpan `json:"spans"`
}

func newTrace(traceID, projectID string) *Trace {
	return &Trace{TraceID: traceID, ProjectID: projectID}
}

// clone returns a deep copy, labels included.
func (tr *Trace) clone() *Trace {
	out := &Trace{
		TraceID:   tr.TraceID,
		ProjectID: tr.ProjectID,
		Spans:     make([]FinishedSpan, len(tr.Spans)),
	}
	for i, span := range tr.Spans {
		out.Spans[i] = span
		out.Spans[i].Labels = copyLabels(span.Labels)
	}
	return out
}

// NewTraceID returns a random trace id: 32 lowercase hex characters.
func NewTraceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
