// Package metrics records core events as Prometheus collectors.
package metrics

import (
	"bytes"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/libreidp/libreidp/core/http"
)

const namespace = "libreidp"

// Recorder implements core.Observer on top of its own registry, so several
// servers in one process never collide on registration.
type Recorder struct {
	registry *prometheus.Registry

	connectionsActive   prometheus.Gauge
	connectionsAccepted prometheus.Counter
	requestsTotal       *prometheus.CounterVec
	parseFailures       prometheus.Counter
	handlerFailures     prometheus.Counter
}

// NewRecorder creates a recorder with every collector registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections_active",
			Help: "Connections currently open.",
		}),
		connectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "connections_accepted_total",
			Help: "Connections accepted since start.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Requests answered, by method and status code.",
		}, []string{"method", "code"}),
		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_parse_failures_total",
			Help: "Connections dropped because the request was malformed.",
		}),
		handlerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_handler_failures_total",
			Help: "Connections dropped because the handler failed.",
		}),
	}
	r.registry.MustRegister(
		r.connectionsActive,
		r.connectionsAccepted,
		r.requestsTotal,
		r.parseFailures,
		r.handlerFailures,
	)
	return r
}

// Registry exposes the underlying registry for extra collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// GaugeFunc registers a gauge evaluated at every Render. fn runs on the
// goroutine that renders, which for the /metrics route is the event loop.
func (r *Recorder) GaugeFunc(name, help string, fn func() float64) error {
	return r.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Name: name, Help: help,
	}, fn))
}

func (r *Recorder) ConnectionOpened() {
	r.connectionsActive.Inc()
	r.connectionsAccepted.Inc()
}

func (r *Recorder) ConnectionClosed() { r.connectionsActive.Dec() }

func (r *Recorder) RequestServed(method http.Method, status http.StatusCode) {
	r.requestsTotal.WithLabelValues(method.String(), strconv.Itoa(int(status))).Inc()
}

func (r *Recorder) ParseFailed() { r.parseFailures.Inc() }

func (r *Recorder) HandlerFailed() { r.handlerFailures.Inc() }

// ContentType is the media type of Render's output.
const ContentType = string(expfmt.FmtText)

// Render gathers every collector and encodes it in the Prometheus text
// exposition format.
func (r *Recorder) Render() ([]byte, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
