package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	calls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "texlink",
			Subsystem: "protocol",
			Name:      "calls_total",
			Help:      "Completed cross-side calls.",
		},
		[]string{"side", "handler", "ok"},
	)
	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "texlink",
			Subsystem: "protocol",
			Name:      "call_duration_seconds",
			Help:      "Cross-side call duration in seconds, including nested calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"side", "handler", "ok"},
	)
	remoteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "texlink",
			Subsystem: "protocol",
			Name:      "remote_failures_total",
			Help:      "Handler failures reported to the peer. Each one ends its session.",
		},
		[]string{"side", "handler"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(calls, callDuration, remoteFailures)
	})
}

// RecordCall observes one completed outbound call. Side is "process" or
// "engine" for the caller's side.
func RecordCall(side, handler string, duration time.Duration, ok bool) {
	RegisterMetrics()
	okLabel := strconv.FormatBool(ok)
	calls.WithLabelValues(side, handler, okLabel).Inc()
	callDuration.WithLabelValues(side, handler, okLabel).Observe(duration.Seconds())
}

// RecordRemoteFailure counts one local handler failure reported across the
// channel.
func RecordRemoteFailure(side, handler string) {
	RegisterMetrics()
	remoteFailures.WithLabelValues(side, handler).Inc()
}
