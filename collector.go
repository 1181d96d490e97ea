package spanz

import (
	"sync"
	"sync/atomic"
)

// Collector is a Consumer that buffers received traces until they are
// exported. Receive never blocks: when the intake queue is full the trace is
// dropped and counted.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type Collector struct {
	traces       []*Trace
	tracesCh     chan *Trace
	stopCh       chan struct{}
	done         chan struct{}
	droppedCount atomic.Int64
	name         string
	mu           sync.Mutex
	closeOnce    sync.Once
	closed       atomic.Bool
	syncMode     atomic.Bool // Bypass the queue for deterministic tests.
}

// NewCollector creates a collector with the given name and queue size.
func NewCollector(name string, bufferSize int) *Collector {
	c := &Collector{
		name:     name,
		traces:   make([]*Trace, 0, 8),
		tracesCh: make(chan *Trace, bufferSize),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.start()
	return c
}

// Name returns the collector name.
func (c *Collector) Name() string {
	return c.name
}

func (c *Collector) start() {
	defer close(c.done)

	for {
		select {
		case <-c.stopCh:
			// Drain what was queued before shutdown.
			for {
				select {
				case tr := <-c.tracesCh:
					c.buffer(tr)
				default:
					return
				}
			}
		case tr := <-c.tracesCh:
			c.buffer(tr)
		}
	}
}

// Close stops the intake goroutine and waits for it to buffer what was
// queued. Traces received afterwards are dropped.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stopCh)
	})
	<-c.done
}

// Receive queues deep copies of traces. It implements Consumer and never
// fails.
func (c *Collector) Receive(traces []*Trace) error {
	for _, tr := range traces {
		if tr == nil {
			c.droppedCount.Add(1)
			continue
		}
		// Copy so later changes by the caller are not observed.
		cp := tr.clone()

		if c.closed.Load() {
			c.droppedCount.Add(1)
			continue
		}
		if c.syncMode.Load() {
			c.buffer(cp)
			continue
		}
		select {
		case c.tracesCh <- cp:
		default:
			c.droppedCount.Add(1)
		}
	}
	return nil
}

func (c *Collector) buffer(tr *Trace) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traces = append(c.traces, tr)
}

// Export returns the buffered traces and clears the buffer.
func (c *Collector) Export() []*Trace {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.traces) == 0 {
		return nil
	}
	result := c.traces

	// Only shrink a buffer that is very oversized, to avoid allocation churn.
	if cap(c.traces) > 256 && len(c.traces) < cap(c.traces)/8 {
		c.traces = make([]*Trace, 0, cap(c.traces)/4)
	} else {
		c.traces = make([]*Trace, 0, cap(c.traces))
	}
	return result
}

// Count returns the number of buffered traces.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.traces)
}

// DroppedCount returns the number of traces dropped because the queue was
// full or the collector closed.
func (c *Collector) DroppedCount() int64 {
	return c.droppedCount.Load()
}

// SetSyncMode makes Receive buffer directly instead of going through the
// queue. Tests use it to avoid waiting on the intake goroutine.
func (c *Collector) SetSyncMode(sync bool) {
	c.syncMode.Store(sync)
}

// Reset clears the buffer and the drop counter.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.traces = c.traces[:0]
	c.droppedCount.Store(0)
}
