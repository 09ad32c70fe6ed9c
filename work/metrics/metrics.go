package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package metrics registers the process-wide Prometheus collectors.
// Everything is registered through promauto at init so handlers and
// background workers can record without plumbing a registry around.

var (
	// CatalogReloads counts refresh attempts against the catalog
	// source-of-record, labeled by outcome ("success"/"failure").
	CatalogReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moontv_catalog_reloads_total",
		Help: "Catalog snapshot reload attempts by outcome.",
	}, []string{"outcome"})

	// ProxyBytes counts bytes forwarded through the gateway, labeled
	// by tunnel ("secure"/"plain") and direction ("downstream").
	ProxyBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moontv_proxy_bytes_total",
		Help: "Bytes forwarded through the mixed-content tunnels.",
	}, []string{"tunnel"})

	// ProxyErrors counts gateway failures by tunnel and reason
	// ("bad_request"/"upstream_unreachable").
	ProxyErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moontv_proxy_errors_total",
		Help: "Gateway request failures by tunnel and reason.",
	}, []string{"tunnel", "reason"})

	// ProxyRequests counts gateway requests by tunnel and upstream
	// status class ("2xx"/"3xx"/"4xx"/"5xx").
	ProxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moontv_proxy_requests_total",
		Help: "Gateway requests by tunnel and upstream status class.",
	}, []string{"tunnel", "class"})

	// PlaybackTransitions counts playback session state transitions,
	// labeled by the state entered.
	PlaybackTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moontv_playback_transitions_total",
		Help: "Playback session state transitions by target state.",
	}, []string{"state"})

	// PlaybackFallbacks counts engine-to-native fallbacks and
	// source advances, labeled by kind ("native"/"next_source").
	PlaybackFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moontv_playback_fallbacks_total",
		Help: "Playback fallback events by kind.",
	}, []string{"kind"})

	// LivenessChecks counts stream liveness probes by outcome
	// ("alive"/"dead").
	LivenessChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moontv_liveness_checks_total",
		Help: "Stream liveness probe results.",
	}, []string{"outcome"})
)

// StatusClass buckets an HTTP status code for the request counters.
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
