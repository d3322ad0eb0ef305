package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	SessionsCreated   prometheus.Counter
	PhaseOutcomes     *prometheus.CounterVec
	PhaseLatency      *prometheus.HistogramVec
	GenerationBatches prometheus.Counter
	ProviderErrors    *prometheus.CounterVec
	ScriptBytes       prometheus.Histogram
	AudioBytes        prometheus.Counter
	IdempotencyHits   prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created.",
		}),
		PhaseOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_outcomes_total",
			Help:      "Lifecycle phase outcomes by phase and result.",
		}, []string{"phase", "outcome"}),
		PhaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_latency_seconds",
			Help:      "Wall time spent in each lifecycle phase.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		GenerationBatches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_batches_total",
			Help:      "Markup batches generated.",
		}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		ScriptBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "script_bytes",
			Help:      "Serialized size of validated markup documents.",
			Buckets:   []float64{500, 1000, 2000, 3000, 4000, 4500, 5000},
		}),
		AudioBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_total",
			Help:      "Synthesized audio bytes produced.",
		}),
		IdempotencyHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotency_hits_total",
			Help:      "Requests short-circuited by the idempotency cache.",
		}),
	}
}

func (m *Metrics) ObservePhase(phase string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.PhaseOutcomes.WithLabelValues(phase, outcome).Inc()
	m.PhaseLatency.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
