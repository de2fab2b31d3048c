package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification pipeline.
type Metrics struct {
	// Per-stage latencies
	StageLatency *prometheus.HistogramVec

	// Provider call latency by provider and outcome
	ProviderLatency *prometheus.HistogramVec

	// Completed verifications by class and certification
	Outcomes *prometheus.CounterVec

	// Aborted verifications by class and error code
	Failures *prometheus.CounterVec

	// Fraud indicators by kind and severity
	FraudIndicators *prometheus.CounterVec

	// Verifications routed to a human reviewer by reason
	HumanReviews *prometheus.CounterVec

	VerifyLatency prometheus.Histogram
}

// New registers the pipeline metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docverify_stage_duration_seconds",
			Help:    "Duration of verification pipeline stages",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"stage"}),

		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docverify_provider_duration_seconds",
			Help:    "Duration of extraction provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider", "outcome"}),

		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_verifications_total",
			Help: "Completed verifications by document class and certification level",
		}, []string{"document_class", "certification"}),

		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_verification_failures_total",
			Help: "Aborted verifications by document class and error code",
		}, []string{"document_class", "code"}),

		FraudIndicators: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_fraud_indicators_total",
			Help: "Detected fraud indicators by kind and severity",
		}, []string{"kind", "severity"}),

		HumanReviews: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_human_reviews_total",
			Help: "Verifications routed to human review by reason",
		}, []string{"reason"}),

		VerifyLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "docverify_verify_duration_seconds",
			Help:    "Duration of a full verification",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveProvider(provider, outcome string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(provider, outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementOutcome(class, certification string) {
	if m != nil {
		m.Outcomes.WithLabelValues(class, certification).Inc()
	}
}

func (m *Metrics) IncrementFailure(class, code string) {
	if m != nil {
		m.Failures.WithLabelValues(class, code).Inc()
	}
}

func (m *Metrics) IncrementFraudIndicator(kind, severity string) {
	if m != nil {
		m.FraudIndicators.WithLabelValues(kind, severity).Inc()
	}
}

func (m *Metrics) IncrementHumanReview(reason string) {
	if m != nil {
		m.HumanReviews.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ObserveVerify(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}
