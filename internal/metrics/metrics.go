package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the buy request lifecycle.
type Metrics struct {
	RequestsCreated prometheus.Counter

	// Responses by action: accept, reject
	Responses *prometheus.CounterVec

	// Pending requests rejected because a sibling was accepted
	AutoRejected prometheus.Counter

	// OTP verifications by stage (pickup, delivery) and outcome (ok, invalid)
	OTPVerifications *prometheus.CounterVec
}

// New registers the lifecycle metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RequestsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "savefood_buy_requests_created_total",
			Help: "Total buy requests created",
		}),
		Responses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "savefood_buy_request_responses_total",
			Help: "Total donor responses to buy requests by action",
		}, []string{"action"}),
		AutoRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "savefood_buy_requests_auto_rejected_total",
			Help: "Total pending buy requests rejected when a sibling was accepted",
		}),
		OTPVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "savefood_otp_verifications_total",
			Help: "Total collector OTP verifications by stage and outcome",
		}, []string{"stage", "outcome"}),
	}
}

func (m *Metrics) IncCreated() {
	if m != nil {
		m.RequestsCreated.Inc()
	}
}

func (m *Metrics) IncResponse(action string) {
	if m != nil {
		m.Responses.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) AddAutoRejected(n int64) {
	if m != nil && n > 0 {
		m.AutoRejected.Add(float64(n))
	}
}

// IncOTP records one verification attempt.
func (m *Metrics) IncOTP(stage string, ok bool) {
	if m == nil {
		return
	}
	outcome := "invalid"
	if ok {
		outcome = "ok"
	}
	m.OTPVerifications.WithLabelValues(stage, outcome).Inc()
}
