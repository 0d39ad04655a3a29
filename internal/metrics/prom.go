package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid"
	OutcomeUnconfigured = "unconfigured"
	OutcomeError        = "error"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_build_info",
			Help: "Build information",
		},
		[]string{"version"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_submissions_total",
			Help: "Submission requests by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)

	sendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_broker_send_duration_seconds",
			Help:    "Time to open a broker connection, send one message and release it",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	received = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receiver_messages_total",
			Help: "Messages consumed by the receiver by topic and route",
		},
		[]string{"topic", "route"},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, submissions, sendDuration, received)
}

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// RecordSubmission increments the submission counter.
func RecordSubmission(topic, outcome string) {
	submissions.WithLabelValues(topic, outcome).Inc()
}

// ObserveSend records the duration of one broker round trip.
func ObserveSend(topic string, d time.Duration) {
	sendDuration.WithLabelValues(topic).Observe(d.Seconds())
}

// RecordReceived increments the receiver counter.
func RecordReceived(topic, route string) {
	received.WithLabelValues(topic, route).Inc()
}
