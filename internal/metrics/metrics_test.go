package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncCreated()
	m.IncResponse("accept")
	m.IncResponse("accept")
	m.AddAutoRejected(3)
	m.AddAutoRejected(0)
	m.IncOTP("pickup", true)
	m.IncOTP("pickup", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Responses.WithLabelValues("accept")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.AutoRejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OTPVerifications.WithLabelValues("pickup", "invalid")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncCreated()
		m.IncResponse("reject")
		m.AddAutoRejected(1)
		m.IncOTP("delivery", true)
	})
}
