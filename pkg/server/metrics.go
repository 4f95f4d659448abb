package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crystal-mush/godaad/pkg/events"
)

// Metrics holds Prometheus metric descriptors for the server. It is a
// global event bus subscriber: sentence, timeout, save and reload counts
// come from session events.
type Metrics struct {
	registry  *prometheus.Registry
	startTime time.Time

	sessionsActive  *prometheus.GaugeVec
	sessionsTotal   *prometheus.CounterVec
	sentencesTotal  prometheus.Counter
	unknownTotal    prometheus.Counter
	timeoutsTotal   prometheus.Counter
	slotsTotal      *prometheus.CounterVec
	reloadsTotal    prometheus.Counter
	uptimeSeconds   prometheus.Gauge
	memoryHeapBytes prometheus.Gauge
	goroutines      prometheus.Gauge
}

// NewMetrics creates the metrics on a registry of their own.
func NewMetrics(startTime time.Time) *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: startTime,
		sessionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "godaad_sessions_active",
			Help: "Number of running sessions by transport.",
		}, []string{"transport"}),
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "godaad_sessions_total",
			Help: "Sessions started since server start.",
		}, []string{"transport"}),
		sentencesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "godaad_sentences_total",
			Help: "Logical sentences resolved.",
		}),
		unknownTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "godaad_unknown_word_lines_total",
			Help: "Input lines with words missing from the vocabulary.",
		}),
		timeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "godaad_input_timeouts_total",
			Help: "Input waits that timed out.",
		}),
		slotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "godaad_save_slots_total",
			Help: "Save slot writes and restores.",
		}, []string{"op"}),
		reloadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "godaad_reloads_total",
			Help: "Database reloads.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "godaad_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
		memoryHeapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "godaad_memory_heap_bytes",
			Help: "Go heap memory allocated in bytes.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "godaad_goroutines",
			Help: "Number of active goroutines.",
		}),
	}

	m.registry.MustRegister(
		m.sessionsActive,
		m.sessionsTotal,
		m.sentencesTotal,
		m.unknownTotal,
		m.timeoutsTotal,
		m.slotsTotal,
		m.reloadsTotal,
		m.uptimeSeconds,
		m.memoryHeapBytes,
		m.goroutines,
	)
	return m
}

// Receive implements events.Subscriber.
func (m *Metrics) Receive(ev events.Event) {
	switch ev.Type {
	case events.EvSentence:
		m.sentencesTotal.Inc()
	case events.EvUnknown:
		m.unknownTotal.Inc()
	case events.EvTimeout:
		m.timeoutsTotal.Inc()
	case events.EvSave, events.EvLoad:
		m.slotsTotal.WithLabelValues(ev.Type.String()).Inc()
	case events.EvReload:
		m.reloadsTotal.Inc()
	}
}

// Closed implements events.Subscriber.
func (m *Metrics) Closed() bool { return false }

func (m *Metrics) sessionStarted(transport string) {
	m.sessionsTotal.WithLabelValues(transport).Inc()
	m.sessionsActive.WithLabelValues(transport).Inc()
}

func (m *Metrics) sessionEnded(transport string) {
	m.sessionsActive.WithLabelValues(transport).Dec()
}

// Update refreshes the runtime gauges.
func (m *Metrics) Update() {
	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.memoryHeapBytes.Set(float64(mem.HeapAlloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
}

// Handler returns an http.Handler that updates metrics before serving them.
func (m *Metrics) Handler() http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		h.ServeHTTP(w, r)
	})
}
