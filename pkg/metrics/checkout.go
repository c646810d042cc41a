package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records outcomes of the purchase pipeline.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	issued   *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_success",
		Help: "Completed checkouts.",
	}, []string{"outcome"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failure",
		Help: "Failed checkouts by stage.",
	}, []string{"stage"})
	issued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "digital_codes_issued",
		Help: "Digital codes issued by type.",
	}, []string{"type"})
	reg.MustRegister(duration, success, failure, issued)
	return &CheckoutMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		issued:   issued,
	}
}

// ObserveDuration records the duration of a checkout run.
func (c *CheckoutMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncSuccess increments the completed checkout counter.
func (c *CheckoutMetrics) IncSuccess(outcome string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncFailure increments the failure counter for the named pipeline stage.
func (c *CheckoutMetrics) IncFailure(stage string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(stage)).Inc()
}

// IncIssued increments the issued code counter for the given code type.
func (c *CheckoutMetrics) IncIssued(codeType string) {
	if c == nil || c.issued == nil {
		return
	}
	c.issued.WithLabelValues(normalizeLabel(codeType)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
