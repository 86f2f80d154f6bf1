package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upstream outcomes recorded per proxied action.
const (
	OutcomeSuccess   = "success"
	OutcomeRetryable = "retryable"
	OutcomeTerminal  = "terminal"
	OutcomeFallback  = "fallback"
)

// UpstreamMetrics tracks signed calls to the Dr. Green API and the
// authorization decisions taken before them.
type UpstreamMetrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	denials  *prometheus.CounterVec
}

// NewUpstreamMetrics registers the upstream metrics on the provided registerer.
func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	if reg == nil {
		return &UpstreamMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Signed upstream requests by action and outcome.",
	}, []string{"action", "outcome"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_retries_total",
		Help:      "Upstream attempts repeated after a retryable failure.",
	}, []string{"action"})
	denials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proxy_authz_denials_total",
		Help:      "Proxy actions rejected by the authorization gate, by access class.",
	}, []string{"class"})
	reg.MustRegister(requests, retries, denials)
	return &UpstreamMetrics{
		requests: requests,
		retries:  retries,
		denials:  denials,
	}
}

// IncRequest counts one finished upstream call.
func (u *UpstreamMetrics) IncRequest(action, outcome string) {
	if u == nil || u.requests == nil {
		return
	}
	u.requests.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

// IncRetry counts one repeated attempt.
func (u *UpstreamMetrics) IncRetry(action string) {
	if u == nil || u.retries == nil {
		return
	}
	u.retries.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncDenial counts one authorization rejection.
func (u *UpstreamMetrics) IncDenial(class string) {
	if u == nil || u.denials == nil {
		return
	}
	u.denials.WithLabelValues(normalizeLabel(class)).Inc()
}
