package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	erpCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_erp_calls_total",
			Help: "ERP JSON-RPC calls by model, method and outcome",
		},
		[]string{"model", "method", "outcome"},
	)
	erpLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pos_erp_call_duration_seconds",
			Help:    "ERP JSON-RPC call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model", "method"},
	)
	loginDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_login_rate_limit_decisions_total",
			Help: "Login rate limiter decisions",
		},
		[]string{"decision"},
	)
	attrCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_attribute_cache_lookups_total",
			Help: "Attribute cache batch lookups by result",
		},
		[]string{"result"},
	)
	pickingOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_picking_outcomes_total",
			Help: "Delivery picking outcomes from confirm-delivery and send-to-shipper",
		},
		[]string{"workflow", "outcome"},
	)
	trackedBuckets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pos_login_rate_limit_buckets",
		Help: "Rate limit buckets currently held in memory",
	})
)

func ObserveERPCall(model, method, outcome string, elapsed time.Duration) {
	erpCalls.WithLabelValues(model, method, outcome).Inc()
	erpLatency.WithLabelValues(model, method).Observe(elapsed.Seconds())
}

func LoginDecision(allowed bool) {
	if allowed {
		loginDecisions.WithLabelValues("allowed").Inc()
		return
	}
	loginDecisions.WithLabelValues("denied").Inc()
}

func AttributeCacheLookup(hit bool) {
	if hit {
		attrCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	attrCacheLookups.WithLabelValues("miss").Inc()
}

func PickingOutcome(workflow, outcome string) {
	pickingOutcomes.WithLabelValues(workflow, outcome).Inc()
}

func SetRateLimitBuckets(n int) {
	trackedBuckets.Set(float64(n))
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
