package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	runTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acqsim",
			Subsystem: "run",
			Name:      "ticks_total",
			Help:      "Number of simulation ticks applied per run.",
		}, []string{"run"},
	)
	runReadCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "acqsim",
			Subsystem: "run",
			Name:      "read_count",
			Help:      "Latest yield read_count per run.",
		}, []string{"run"},
	)
	runCoverage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "acqsim",
			Subsystem: "run",
			Name:      "alignment_coverage",
			Help:      "Latest yield alignment_coverage per run.",
		}, []string{"run"},
	)
	rpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acqsim",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Number of RPC calls handled, by method.",
		}, []string{"method"},
	)
	rpcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "acqsim",
			Subsystem: "rpc",
			Name:      "duration_seconds",
			Help:      "RPC handling latency, by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"},
	)
	streamDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acqsim",
			Subsystem: "stream",
			Name:      "deliveries_total",
			Help:      "Watch stream producer outcomes (delivered or abandoned).",
		}, []string{"outcome"},
	)
	historyErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acqsim",
			Subsystem: "history",
			Name:      "send_errors_total",
			Help:      "Failed history sink writes, by sink.",
		}, []string{"sink"},
	)
)

// Stream outcomes recorded by IncStreamDelivery.
const (
	OutcomeDelivered = "delivered"
	OutcomeAbandoned = "abandoned"
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{runTicks, runReadCount, runCoverage, rpcRequests, rpcDuration, streamDeliveries, historyErrors}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// already registered with this registerer: keep the existing one
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func ObserveTick(run string, readCount int64, coverage float64) {
	if regOK.Load() {
		runTicks.WithLabelValues(run).Inc()
		runReadCount.WithLabelValues(run).Set(float64(readCount))
		runCoverage.WithLabelValues(run).Set(coverage)
	}
}

func IncRequest(method string) {
	if regOK.Load() {
		rpcRequests.WithLabelValues(method).Inc()
	}
}

func ObserveDuration(method string, seconds float64) {
	if regOK.Load() {
		rpcDuration.WithLabelValues(method).Observe(seconds)
	}
}

func IncStreamDelivery(outcome string) {
	if regOK.Load() {
		streamDeliveries.WithLabelValues(outcome).Inc()
	}
}

func IncHistoryError(sink string) {
	if regOK.Load() {
		historyErrors.WithLabelValues(sink).Inc()
	}
}
