// Package observability holds the process-wide Prometheus collectors.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "alize"

var (
	registerOnce sync.Once

	soapRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "soap",
			Name:      "requests_total",
			Help:      "Outbound SOAP requests by message type and outcome.",
		},
		[]string{"type", "outcome"},
	)
	soapDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "soap",
			Name:      "request_duration_seconds",
			Help:      "Outbound SOAP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)
	breakerRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "rejections_total",
			Help:      "Calls rejected by an open circuit breaker.",
		},
		[]string{"name"},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Portability state transitions.",
		},
		[]string{"from", "to"},
	)
	timerExpirations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "timer",
			Name:      "expirations_total",
			Help:      "Protocol timer expirations handled by the sweep.",
		},
		[]string{"timer", "outcome"},
	)
	inboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inbound",
			Name:      "messages_total",
			Help:      "Inbound clearinghouse messages by type and outcome.",
		},
		[]string{"type", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(soapRequests, soapDuration, breakerRejections, stateTransitions, timerExpirations, inboundMessages)
	})
}

func RecordSOAPRequest(messageType, outcome string, duration time.Duration) {
	RegisterMetrics()
	soapRequests.WithLabelValues(messageType, outcome).Inc()
	soapDuration.WithLabelValues(messageType).Observe(duration.Seconds())
}

func RecordBreakerRejection(name string) {
	RegisterMetrics()
	breakerRejections.WithLabelValues(name).Inc()
}

func RecordStateTransition(from, to string) {
	RegisterMetrics()
	stateTransitions.WithLabelValues(from, to).Inc()
}

func RecordTimerExpiration(timer, outcome string) {
	RegisterMetrics()
	timerExpirations.WithLabelValues(timer, outcome).Inc()
}

func RecordInboundMessage(messageType, outcome string) {
	RegisterMetrics()
	inboundMessages.WithLabelValues(messageType, outcome).Inc()
}
