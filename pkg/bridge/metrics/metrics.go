// Package metrics exposes the bridge's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the bridge reports. Construct with New
// against a dedicated registry so tests can instantiate freely.
type Metrics struct {
	CallsPlaced        *prometheus.CounterVec
	PreviewRequests    *prometheus.CounterVec
	PreviewDuration    prometheus.Histogram
	ActiveBridges      prometheus.Gauge
	SessionOpens       *prometheus.CounterVec
	ModelFallbacks     prometheus.Counter
	FollowUpsScheduled prometheus.Counter
	StreamFrames       *prometheus.CounterVec
	RegistryEntries    *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CallsPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cupid",
			Name:      "calls_placed_total",
			Help:      "Outbound calls placed, by result.",
		}, []string{"result"}),
		PreviewRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cupid",
			Name:      "preview_requests_total",
			Help:      "Voice preview syntheses, by result.",
		}, []string{"result"}),
		PreviewDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cupid",
			Name:      "preview_duration_seconds",
			Help:      "Wall time to synthesize a preview.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		ActiveBridges: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cupid",
			Name:      "active_bridges",
			Help:      "Media-stream bridges currently connected.",
		}),
		SessionOpens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cupid",
			Name:      "session_opens_total",
			Help:      "Realtime session opens, by model and result.",
		}, []string{"model", "result"}),
		ModelFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cupid",
			Name:      "model_fallbacks_total",
			Help:      "Times a request fell through to a fallback model.",
		}),
		FollowUpsScheduled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cupid",
			Name:      "followups_scheduled_total",
			Help:      "Post-call follow-up messages scheduled.",
		}),
		StreamFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cupid",
			Name:      "stream_frames_total",
			Help:      "Media-stream frames handled, by event.",
		}, []string{"event"}),
		RegistryEntries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cupid",
			Name:      "registry_entries",
			Help:      "Live call registry entries, by kind.",
		}, []string{"kind"}),
	}
}
