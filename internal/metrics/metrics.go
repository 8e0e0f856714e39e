package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Résultats possibles d'une tentative de redirection.
const (
	RedirectOK       = "ok"
	RedirectNotFound = "not_found"
	RedirectExpired  = "expired"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	LinksCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quickpath_links_created_total",
			Help: "Number of short links persisted",
		},
	)

	// Collisions détectées par l'index unique au moment de l'insertion.
	SlugConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quickpath_slug_conflicts_total",
			Help: "Number of slug insertions rejected by the unique index",
		},
	)

	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickpath_redirects_total",
			Help: "Redirect attempts partitioned by result",
		},
		[]string{"result"},
	)
)
