// Package metrics defines the Prometheus collectors exported by devmon.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Frame rejection reasons used as label values
const (
	ReasonTooShort       = "too_short"
	ReasonUnexpectedType = "unexpected_type"
)

// Discovery holds the discovery service collectors.
// All methods are safe to call on a nil *Discovery.
type Discovery struct {
	RequestsSent     prometheus.Counter
	SendErrors       prometheus.Counter
	ResponsesDecoded prometheus.Counter
	FramesRejected   *prometheus.CounterVec
	Devices          prometheus.Gauge
}

// NewDiscovery creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewDiscovery(reg prometheus.Registerer) *Discovery {
	m := &Discovery{
		RequestsSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "devmon_requests_sent_total",
				Help: "Total number of discovery requests broadcast",
			},
		),

		SendErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "devmon_send_errors_total",
				Help: "Total number of failed discovery broadcasts",
			},
		),

		ResponsesDecoded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "devmon_responses_decoded_total",
				Help: "Total number of device responses decoded",
			},
		),

		FramesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devmon_frames_rejected_total",
				Help: "Total number of datagrams that were not valid device responses",
			},
			[]string{"reason"},
		),

		Devices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "devmon_devices",
				Help: "Number of devices currently in the registry",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.RequestsSent)
		reg.MustRegister(m.SendErrors)
		reg.MustRegister(m.ResponsesDecoded)
		reg.MustRegister(m.FramesRejected)
		reg.MustRegister(m.Devices)
	}

	return m
}

// RequestSent counts a successful broadcast
func (m *Discovery) RequestSent() {
	if m == nil {
		return
	}
	m.RequestsSent.Inc()
}

// SendFailed counts a failed broadcast
func (m *Discovery) SendFailed() {
	if m == nil {
		return
	}
	m.SendErrors.Inc()
}

// ResponseDecoded counts a decoded device response
func (m *Discovery) ResponseDecoded() {
	if m == nil {
		return
	}
	m.ResponsesDecoded.Inc()
}

// FrameRejected counts a datagram rejected by the codec
func (m *Discovery) FrameRejected(reason string) {
	if m == nil {
		return
	}
	m.FramesRejected.WithLabelValues(reason).Inc()
}

// SetDevices records the registry size
func (m *Discovery) SetDevices(n int) {
	if m == nil {
		return
	}
	m.Devices.Set(float64(n))
}
