// Package metrics exposes Prometheus instrumentation for the verification
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the verification pipeline collectors.
type Metrics struct {
	ChallengesIssued    prometheus.Counter
	StampsIssued        *prometheus.CounterVec
	VerificationsFailed *prometheus.CounterVec
	VerifyDuration      prometheus.Histogram
}

// New registers the collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChallengesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "stampd_challenges_issued_total",
			Help: "Challenge credentials issued.",
		}),
		StampsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stampd_stamps_issued_total",
			Help: "Stamp credentials issued, by provider type.",
		}, []string{"provider"}),
		VerificationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stampd_verifications_failed_total",
			Help: "Provider verifications that did not yield a stamp, by provider type.",
		}, []string{"provider"}),
		VerifyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stampd_verify_duration_seconds",
			Help:    "End-to-end duration of verify requests.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
