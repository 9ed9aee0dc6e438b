package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the session core. Host applications
// mount these through the default registry (New) or their own (NewWith).
type Metrics struct {
	Logins         prometheus.Counter
	LoginFailures  prometheus.Counter
	Registrations  prometheus.Counter
	SilentReauths  prometheus.Counter
	Logouts        prometheus.Counter
	TokenRefreshes prometheus.Counter
	Authenticated  prometheus.Gauge
	TransportCalls *prometheus.CounterVec
	GuardDecisions *prometheus.CounterVec
}

// New registers and returns collectors on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers collectors on the given registerer. Tests pass a fresh
// registry to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Logins: factory.NewCounter(prometheus.CounterOpts{
			Name: "worldpet_logins_total",
			Help: "Total number of successful logins",
		}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "worldpet_login_failures_total",
			Help: "Total number of failed logins",
		}),
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "worldpet_registrations_total",
			Help: "Total number of successful registrations",
		}),
		SilentReauths: factory.NewCounter(prometheus.CounterOpts{
			Name: "worldpet_silent_reauths_total",
			Help: "Total number of sessions restored from stored credentials",
		}),
		Logouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "worldpet_logouts_total",
			Help: "Total number of logouts",
		}),
		TokenRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Name: "worldpet_token_refreshes_total",
			Help: "Total number of access token refreshes",
		}),
		Authenticated: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worldpet_authenticated",
			Help: "Whether the client currently holds an authenticated session (0 or 1)",
		}),
		TransportCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worldpet_transport_calls_total",
			Help: "Total identity service calls by outcome",
		}, []string{"outcome"}),
		GuardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worldpet_guard_decisions_total",
			Help: "Total route guard decisions by outcome",
		}, []string{"decision"}),
	}
}
