package staging

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts mailbox traffic.  A nil *Metrics discards all samples.
type Metrics struct {
	Requests  prometheus.Counter
	Bytes     prometheus.Counter
	Anomalies prometheus.Counter
	Transfers *prometheus.CounterVec
}

// NewMetrics creates the staging metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ucode_staging_requests_total",
			Help: "Number of mailbox requests sent to the staging agent",
		}),
		Bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ucode_staging_request_bytes_total",
			Help: "Payload bytes sent to the staging agent",
		}),
		Anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ucode_staging_response_anomalies_total",
			Help: "Responses with unexpected identifier or header length",
		}),
		Transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ucode_staging_transfers_total",
			Help: "Number of image transfers by result",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Requests, m.Bytes, m.Anomalies, m.Transfers)
	return m
}

func (m *Metrics) request(n int) {
	if m == nil {
		return
	}
	m.Requests.Inc()
	m.Bytes.Add(float64(n))
}

func (m *Metrics) anomaly() {
	if m == nil {
		return
	}
	m.Anomalies.Inc()
}

func (m *Metrics) transfer(s State) {
	if m == nil {
		return
	}
	m.Transfers.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) unavailable() {
	if m == nil {
		return
	}
	m.Transfers.WithLabelValues("unavailable").Inc()
}
