package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics defines counters for authentication decisions.
type Metrics interface {
	IncDecision(site, decision string)
	IncLogin(site, provider, outcome string)
	IncForcedLogout(site string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncDecision(string, string)      {}
func (Noop) IncLogin(string, string, string) {}
func (Noop) IncForcedLogout(string)          {}

// Prom implements Metrics with Prometheus counters.
type Prom struct {
	decisions     *prometheus.CounterVec
	logins        *prometheus.CounterVec
	forcedLogouts *prometheus.CounterVec
}

// NewProm registers the gateway counters with reg.
func NewProm(reg prometheus.Registerer) (*Prom, error) {
	p := &Prom{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amphora_auth",
			Name:      "decisions_total",
			Help:      "Route protection decisions by outcome.",
		}, []string{"site", "decision"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amphora_auth",
			Name:      "logins_total",
			Help:      "Login attempts by provider and outcome.",
		}, []string{"site", "provider", "outcome"}),
		forcedLogouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amphora_auth",
			Name:      "forced_logouts_total",
			Help:      "Sessions logged out because their user could not be resolved.",
		}, []string{"site"}),
	}
	for _, c := range []prometheus.Collector{p.decisions, p.logins, p.forcedLogouts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prom) IncDecision(site, decision string) {
	p.decisions.WithLabelValues(site, decision).Inc()
}

func (p *Prom) IncLogin(site, provider, outcome string) {
	p.logins.WithLabelValues(site, provider, outcome).Inc()
}

func (p *Prom) IncForcedLogout(site string) {
	p.forcedLogouts.WithLabelValues(site).Inc()
}
