package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas Prometheus de los flows de autenticación. Package aparte
// para evitar ciclos de import entre services y HTTP.

var (
	SignUpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flowgate_signups_total",
		Help: "Sign-ups por resultado",
	}, []string{"outcome"})

	SignInsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flowgate_signins_total",
		Help: "Sign-ins por resultado",
	}, []string{"outcome"})

	FederatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flowgate_federated_signins_total",
		Help: "Autenticaciones federadas por provider y resultado",
	}, []string{"provider", "outcome"})

	ExternalTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flowgate_external_tokens_total",
		Help: "Verificaciones de tokens externos por resultado",
	}, []string{"outcome"})
)

// RegisterAuth registra las métricas de auth en el registry dado (o el
// default si es nil).
func RegisterAuth(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{SignUpsTotal, SignInsTotal, FederatedTotal, ExternalTokensTotal} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// Outcomes estandarizados para los labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
