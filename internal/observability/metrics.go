package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	CryptoOperations *prometheus.CounterVec
	DecryptFailures  *prometheus.CounterVec
	Logins           *prometheus.CounterVec
	Registrations    *prometheus.CounterVec
	RelayFrames      *prometheus.CounterVec
	RelayClients     prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics registers all collectors with reg. A nil reg uses a fresh
// private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		CryptoOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cipherchat_crypto_operations_total",
				Help: "Cryptographic operations performed",
			},
			[]string{"operation"},
		),
		DecryptFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cipherchat_decrypt_failures_total",
				Help: "Messages or keys that could not be decrypted",
			},
			[]string{"kind"},
		),
		Logins: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cipherchat_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		Registrations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cipherchat_registrations_total",
				Help: "Registration attempts by result",
			},
			[]string{"result"},
		),
		RelayFrames: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cipherchat_relay_frames_total",
				Help: "Relay frames handled by event",
			},
			[]string{"event"},
		),
		RelayClients: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "cipherchat_relay_clients",
				Help: "Connected relay clients",
			},
		),
		gatherer: reg,
	}
}

// RecordCryptoOperation counts one operation such as "seal" or "unwrap".
func (m *Metrics) RecordCryptoOperation(operation string) {
	if m == nil {
		return
	}
	m.CryptoOperations.WithLabelValues(operation).Inc()
}

// RecordDecryptFailure counts an undecryptable message or key.
func (m *Metrics) RecordDecryptFailure(kind string) {
	if m == nil {
		return
	}
	m.DecryptFailures.WithLabelValues(kind).Inc()
}

// RecordLogin counts a login attempt.
func (m *Metrics) RecordLogin(success bool) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result(success)).Inc()
}

// RecordRegistration counts a registration attempt.
func (m *Metrics) RecordRegistration(success bool) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(result(success)).Inc()
}

// RecordRelayFrame counts one relayed frame.
func (m *Metrics) RecordRelayFrame(event string) {
	if m == nil {
		return
	}
	m.RelayFrames.WithLabelValues(event).Inc()
}

// ClientConnected adjusts the connected client gauge by delta.
func (m *Metrics) ClientConnected(delta int) {
	if m == nil {
		return
	}
	m.RelayClients.Add(float64(delta))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
