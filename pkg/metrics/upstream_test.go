package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestUpstreamMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewUpstreamMetrics(reg)

	m.IncRequest("get-strains", OutcomeSuccess)
	m.IncRequest("get-strains", OutcomeSuccess)
	m.IncRetry("create-order")
	m.IncDenial("ownership")

	require.Equal(t, 2.0, sample(t, reg, "greengate_upstream_requests_total", "action", "get-strains").GetCounter().GetValue())
	require.Equal(t, 1.0, sample(t, reg, "greengate_upstream_retries_total", "action", "create-order").GetCounter().GetValue())
	require.Equal(t, 1.0, sample(t, reg, "greengate_proxy_authz_denials_total", "class", "ownership").GetCounter().GetValue())
}

func TestNilUpstreamMetricsIsSafe(t *testing.T) {
	var m *UpstreamMetrics
	m.IncRequest("a", OutcomeTerminal)
	m.IncRetry("a")
	m.IncDenial("admin")

	unregistered := NewUpstreamMetrics(nil)
	unregistered.IncRequest("a", OutcomeSuccess)
}
