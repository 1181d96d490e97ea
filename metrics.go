package spanz

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts spans and flushes. A nil *Metrics records nothing.
type Metrics struct {
	started     prometheus.Counter
	finished    prometheus.Counter
	flushes     prometheus.Counter
	flushErrors prometheus.Counter
	openSpans   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spanz",
			Name:      "spans_started_total",
			Help:      "Spans started.",
		}),
		finished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spanz",
			Name:      "spans_finished_total",
			Help:      "Spans ended and added to a trace.",
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spanz",
			Name:      "traces_flushed_total",
			Help:      "Traces handed to a consumer.",
		}),
		flushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spanz",
			Name:      "flush_errors_total",
			Help:      "Traces the consumer failed to receive.",
		}),
		openSpans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spanz",
			Name:      "open_spans",
			Help:      "Spans started and not yet ended.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.started, m.finished, m.flushes, m.flushErrors, m.openSpans} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register spanz metrics")
		}
	}
	return m, nil
}

func (m *Metrics) spanStarted() {
	if m == nil {
		return
	}
	m.started.Inc()
	m.openSpans.Inc()
}

func (m *Metrics) spanFinished() {
	if m == nil {
		return
	}
	m.finished.Inc()
	m.openSpans.Dec()
}

func (m *Metrics) flushed() {
	if m == nil {
		return
	}
	m.flushes.Inc()
}

func (m *Metrics) flushFailed() {
	if m == nil {
		return
	}
	m.flushErrors.Inc()
}
