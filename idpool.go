package spanz

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
	"runtime"
	"sync"
)

// IDPool keeps a buffer of pre-generated span ids to amortize crypto/rand
// overhead.
type IDPool struct {
	factory func() uint64
	ids     chan uint64
	stopCh  chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	closed  bool
}

// NewIDPool creates a pool with the given capacity, filled in the
// background from factory.
func NewIDPool(capacity int, factory func() uint64) *IDPool {
	pool := &IDPool{
		ids:     make(chan uint64, capacity),
		factory: factory,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go pool.refill()
	return pool
}

// Get returns a pooled id, or a fresh one when the pool is drained.
func (p *IDPool) Get() uint64 {
	select {
	case id := <-p.ids:
		return id
	default:
		return p.factory()
	}
}

func (p *IDPool) refill() {
	defer close(p.done)
	for {
		select {
		case <-p.stopCh:
			return
		case p.ids <- p.factory():
		}
	}
}

// Close stops the refill goroutine and waits for it to exit. Get keeps
// working afterwards.
func (p *IDPool) Close() {
	p.mu.Lock()
	if !p.closed {
		close(p.stopCh)
		p.closed = true
	}
	p.mu.Unlock()
	<-p.done
}

// SpanIDFactory hands out span ids. Ids are 64 random bits with zero
// rejected, so two spans of a trace with n spans collide with probability
// of roughly n*n/2^65.
// Safe for concurrent use.
type SpanIDFactory struct {
	pool *IDPool
	size int
	once sync.Once
}

// NewSpanIDFactory creates a factory whose pool holds size ids.
// A size <= 0 sizes the pool from the number of CPUs.
func NewSpanIDFactory(size int) *SpanIDFactory {
	if size <= 0 {
		size = runtime.NumCPU() * 100
	}
	return &SpanIDFactory{size: size}
}

// NextID returns a new span id. It never returns 0.
func (f *SpanIDFactory) NextID() uint64 {
	f.once.Do(func() {
		f.pool = NewIDPool(f.size, randomSpanID)
	})
	if f.pool == nil {
		// Closed before first use.
		return randomSpanID()
	}
	return f.pool.Get()
}

// Close stops the background pool refill.
func (f *SpanIDFactory) Close() {
	// Mark the factory initialized so a later NextID cannot restart the pool.
	f.once.Do(func() {})
	if f.pool != nil {
		f.pool.Close()
	}
}

func randomSpanID() uint64 {
	var b [8]byte
	for {
		var id uint64
		if _, err := rand.Read(b[:]); err != nil {
			// crypto/rand failing is not worth failing a span over.
			id = mrand.Uint64()
		} else {
			id = binary.BigEndian.Uint64(b[:])
		}
		if id != 0 {
			return id
		}
	}
}
