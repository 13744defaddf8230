package observability_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ometra-Hela/Alize/internal/observability"
)

func TestCollectorsAreRegisteredOnce(t *testing.T) {
	observability.RegisterMetrics()
	observability.RegisterMetrics()

	observability.RecordSOAPRequest("1001", "success", 120*time.Millisecond)
	observability.RecordBreakerRejection("soap_test")
	observability.RecordStateTransition("INITIAL", "PORT_REQUESTED")
	observability.RecordTimerExpiration("T1", "expired")
	observability.RecordInboundMessage("1002", "dispatched")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, name := range []string{
		"alize_soap_requests_total",
		"alize_soap_request_duration_seconds",
		"alize_circuit_breaker_rejections_total",
		"alize_state_transitions_total",
		"alize_timer_expirations_total",
		"alize_inbound_messages_total",
	} {
		assert.True(t, names[name], name)
	}
}

func TestRecordStateTransitionCounts(t *testing.T) {
	before := countTransitions(t, "PORT_REQUESTED", "CANCELLED")

	observability.RecordStateTransition("PORT_REQUESTED", "CANCELLED")
	observability.RecordStateTransition("PORT_REQUESTED", "CANCELLED")

	assert.InDelta(t, before+2, countTransitions(t, "PORT_REQUESTED", "CANCELLED"), 0.001)
}

func countTransitions(t *testing.T, from, to string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != "alize_state_transitions_total" {
			continue
		}

		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}

			if labels["from"] == from && labels["to"] == to {
				return m.GetCounter().GetValue()
			}
		}
	}

	return 0
}
