package spanz

import (
	"io"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Consumer receives finished traces. Receive is called synchronously by the
// End call that closed the last open span, once per flush, with a single
// trace. An error is returned to that caller.
type Consumer interface {
	Receive(traces []*Trace) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(traces []*Trace) error

// Receive calls f.
func (f ConsumerFunc) Receive(traces []*Trace) error {
	return f(traces)
}

// JSONConsumer writes every trace it receives as one line of JSON.
// Safe for concurrent use.
type JSONConsumer struct {
	w  io.Writer
	mu sync.Mutex
}

// NewJSONConsumer creates a consumer writing to w.
func NewJSONConsumer(w io.Writer) *JSONConsumer {
	return &JSONConsumer{w: w}
}

// Receive encodes the traces to the writer.
func (c *JSONConsumer) Receive(traces []*Trace) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	enc := json.NewEncoder(c.w)
	for _, tr := range traces {
		if tr == nil {
			continue
		}
		if err := enc.Encode(tr); err != nil {
			return errors.Wrapf(err, "write trace %s", tr.TraceID)
		}
	}
	return nil
}
