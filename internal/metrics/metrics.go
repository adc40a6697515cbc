// Package metrics registra los collectors Prometheus del servicio.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace  = "reconciliation"
	upstreamNS = "upstream"
	httpNS     = "service"
)

var (
	// ActionsTotal cuenta acciones por mercado y estado final.
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Affiliate actions reconciled, by market and resulting state.",
		},
		[]string{"market", "state"},
	)

	// MarketRunsTotal cuenta pasadas de mercado por resultado (done/failed).
	MarketRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "market_runs_total",
			Help:      "Market reconciliation passes, by market and outcome.",
		},
		[]string{"market", "outcome", "cause"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a full multi-market run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: upstreamNS,
			Name:      "request_duration_seconds",
			Help:      "Latency of calls to Impact and PATA.",
		},
		[]string{"upstream", "operation", "status"},
	)

	reqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: httpNS,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
		},
		[]string{"status", "endpoint", "method"},
	)
)

func init() {
	prometheus.MustRegister(ActionsTotal, MarketRunsTotal, RunDuration, upstreamDuration, reqDuration)
}

// ObserveUpstream registra la latencia de una llamada externa. status 0
// significa error de transporte.
func ObserveUpstream(upstream, operation string, status int, started time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	upstreamDuration.WithLabelValues(upstream, operation, label).Observe(time.Since(started).Seconds())
}

// ObserveRequest registra la latencia de un request HTTP entrante.
func ObserveRequest(endpoint, method string, status int, d time.Duration) {
	reqDuration.WithLabelValues(strconv.Itoa(status), endpoint, method).Observe(d.Seconds())
}
