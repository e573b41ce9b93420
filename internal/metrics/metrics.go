package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the subsystem's Prometheus collectors.
type Registry struct {
	TwoFactorVerifications *prometheus.CounterVec
	SessionRevocations     *prometheus.CounterVec
	TokenLookups           *prometheus.CounterVec
	DenylistRaces          prometheus.Counter
}

// NewRegistry creates and registers all collectors against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		TwoFactorVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_two_factor_verifications_total",
				Help: "Total number of TOTP verification attempts",
			},
			[]string{"outcome"},
		),
		SessionRevocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_session_revocations_total",
				Help: "Total number of session revocation calls",
			},
			[]string{"entry_point", "outcome"},
		),
		TokenLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_single_use_token_lookups_total",
				Help: "Total number of single-use token lookups",
			},
			[]string{"kind", "outcome"},
		),
		DenylistRaces: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_denylist_duplicate_inserts_total",
				Help: "Denylist inserts that lost a benign unique-constraint race",
			},
		),
	}

	reg.MustRegister(
		r.TwoFactorVerifications,
		r.SessionRevocations,
		r.TokenLookups,
		r.DenylistRaces,
	)
	return r
}
