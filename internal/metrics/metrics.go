package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EndpointResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpoint_responses_total",
		Help: "The total number of endpoint responses",
	}, []string{"endpoint", "status_code"})

	// Reduction Run Metrics
	ReductionRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reduction_runs_total",
		Help: "Total number of completed reduction runs by kernel variant and backend",
	}, []string{"variant", "backend"})

	ReductionPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reduction_pass_duration_ms",
		Help:    "Device time of a single reduction pass in milliseconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 22), // 1us to ~2s
	})

	ReductionPasses = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reduction_passes_per_run",
		Help:    "Number of device passes a reduction needed",
		Buckets: prometheus.LinearBuckets(0, 1, 11), // 0 to 10 passes
	})

	ReductionInputSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reduction_last_input_size",
		Help: "Element count of the last reduction run",
	})

	ReductionKernelMS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reduction_last_kernel_ms",
		Help: "Total device kernel time of the last reduction in milliseconds",
	})

	ReductionThroughput = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reduction_last_throughput_gelems",
		Help: "Throughput of the last reduction in giga-elements per second",
	})

	VerificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reduction_verification_failures_total",
		Help: "Total number of device results outside the host reference tolerance",
	})
)
