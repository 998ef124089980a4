// Package metrics exposes Prometheus metrics for RPC traffic.
//
// Recorder implements jsonrpc.Recorder, counting processed calls and
// observing their latency. It is also a prometheus.Collector, so it
// plugs into any registry:
//
//	m := metrics.NewRecorder("myapp")
//	prometheus.MustRegister(m)
//	handler := &httprpc.Handler{Server: core, Recorders: []jsonrpc.Recorder{m}}
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mnehpets/onerpc/jsonrpc"
)

const rpcSubsystem = "rpc"

// methodUnknown labels calls whose payload never yielded a method
// name.
const methodUnknown = "unknown"

// Recorder collects per-call metrics.
type Recorder struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder whose metrics live under the given
// namespace.
func NewRecorder(namespace string) *Recorder {
	return &Recorder{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: rpcSubsystem,
				Name:      "calls_total",
				Help:      "Total number of processed RPC calls, partitioned by method and outcome code.",
			},
			[]string{"method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: rpcSubsystem,
				Name:      "call_duration_seconds",
				Help:      "Latency of processed RPC calls, partitioned by method.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

// Record implements jsonrpc.Recorder. Successful calls carry the code
// label "ok"; failures carry their wire error code.
func (m *Recorder) Record(ctx context.Context, res *jsonrpc.Result, d time.Duration) error {
	method := methodUnknown
	if res.Request.OK {
		method = res.Request.Request.Method
	}
	code := "ok"
	if res.Response != nil && res.Response.Error != nil {
		code = strconv.Itoa(res.Response.Error.Code)
	}
	m.calls.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(d.Seconds())
	return nil
}

// Describe implements prometheus.Collector.
func (m *Recorder) Describe(ch chan<- *prometheus.Desc) {
	m.calls.Describe(ch)
	m.duration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Recorder) Collect(ch chan<- prometheus.Metric) {
	m.calls.Collect(ch)
	m.duration.Collect(ch)
}

var (
	_ jsonrpc.Recorder     = (*Recorder)(nil)
	_ prometheus.Collector = (*Recorder)(nil)
)
