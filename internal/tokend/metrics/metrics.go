// Package metrics owns the prometheus registry for the token service.
// Every metric lives under the tokend_ namespace and hangs off a Metrics
// value rather than package globals, so tests can build as many isolated
// instances as they like.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rotation outcome label values.
const (
	RotationOutcomeRotated  = "rotated"
	RotationOutcomeReuse    = "reuse"
	RotationOutcomeExpired  = "expired"
	RotationOutcomeInvalid  = "invalid"
	RotationOutcomeInactive = "inactive_user"
	RotationOutcomeError    = "error"
)

// Revocation scope label values.
const (
	RevocationScopeToken   = "token"
	RevocationScopeSession = "session"
	RevocationScopeUser    = "user"
)

type Metrics struct {
	registry *prometheus.Registry

	IssuedPairs            prometheus.Counter
	Rotations              *prometheus.CounterVec
	ReuseDetected          prometheus.Counter
	Revocations            *prometheus.CounterVec
	SessionLimitRejections prometheus.Counter

	HousekeepingDeleted     prometheus.Counter
	HousekeepingLastDeleted prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		IssuedPairs: factory.NewCounter(prometheus.CounterOpts{
			Name: "tokend_issued_pairs_total",
			Help: "Token pairs issued for fresh logins.",
		}),
		Rotations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tokend_rotations_total",
			Help: "Refresh rotation attempts by outcome.",
		}, []string{"outcome"}),
		ReuseDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "tokend_refresh_reuse_detected_total",
			Help: "Refresh tokens presented after they were already rotated or revoked.",
		}),
		Revocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tokend_revocations_total",
			Help: "Revocations by scope (token, session, user).",
		}, []string{"scope"}),
		SessionLimitRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "tokend_session_limit_rejections_total",
			Help: "Logins rejected because the user already holds the session maximum.",
		}),
		HousekeepingDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "tokend_housekeeping_deleted_total",
			Help: "Expired refresh token rows pruned by housekeeping.",
		}),
		HousekeepingLastDeleted: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tokend_housekeeping_last_deleted",
			Help: "Rows pruned by the most recent housekeeping run.",
		}),
	}
}

// Handler serves this instance's registry in exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
