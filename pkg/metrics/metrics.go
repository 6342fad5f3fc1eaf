// Package metrics exposes Prometheus instrumentation for the trust-boundary
// components.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CredentialValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "antevus_credential_validations_total",
		Help: "API key validation outcomes, labelled by result.",
	}, []string{"result"})

	CSRFValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "antevus_csrf_validations_total",
		Help: "CSRF token validation outcomes, labelled by result.",
	}, []string{"result"})

	SessionVaultSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "antevus_session_vault_size",
		Help: "Number of thread sessions currently held in the vault.",
	})

	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "antevus_sessions_expired_total",
		Help: "Sessions removed by inactivity expiry.",
	})

	KeysExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "antevus_api_keys_expired_total",
		Help: "API keys removed by the expiry sweep.",
	})

	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "antevus_rate_limit_rejections_total",
		Help: "Requests rejected by the per-credential rate limiter.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "antevus_http_requests_total",
		Help: "HTTP requests, labelled by method, path and status.",
	}, []string{"method", "path", "status"})
)

// ObserveValidation records a credential validation outcome. An empty reason
// means success.
func ObserveValidation(reason string) {
	if reason == "" {
		reason = "ok"
	}
	CredentialValidations.WithLabelValues(reason).Inc()
}

// ObserveCSRF records a CSRF validation outcome. An empty reason means success.
func ObserveCSRF(reason string) {
	if reason == "" {
		reason = "ok"
	}
	CSRFValidations.WithLabelValues(reason).Inc()
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
