package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FactorsRecomputedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ampengine_factors_recomputed_total",
		Help: "Number of factor instances whose amplitude was recomputed for a buffer.",
	}, []string{"term"})

	UserVarsRecomputedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ampengine_uservars_recomputed_total",
		Help: "Number of factor instances whose user variables were recomputed for a buffer.",
	}, []string{"term"})

	TermsAssembledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ampengine_terms_assembled_total",
		Help: "Number of terms re-assembled (permutation-summed) for a buffer.",
	}, []string{"term"})

	IntegralElementsComputedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ampengine_integral_elements_computed_total",
		Help: "Number of (i,j) normalization-integral matrix elements computed.",
	})

	EvaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ampengine_evaluation_duration_seconds",
		Help:    "Wall-clock duration of one pipeline stage over one buffer.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	EventBufferArenaBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ampengine_event_buffer_arena_bytes_max",
		Help: "Size in bytes of the largest event-buffer arena allocated so far.",
	})

	IntensityEvaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ampengine_intensity_evaluations_total",
		Help: "Number of full per-buffer intensity evaluations completed.",
	})

	SumLogIntensityTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ampengine_sum_log_intensity_total",
		Help: "Running total of sum-log-intensity contributions, by reaction.",
	}, []string{"reaction"})

	CoordinatorRoundTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ampengine_coordinator_round_trips_total",
		Help: "Leader/follower command round trips, by command verb.",
	}, []string{"command"})

	CoordinatorFollowerLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ampengine_coordinator_follower_lag_seconds",
		Help:    "Time the leader waited on the slowest follower per gather round.",
		Buckets: prometheus.DefBuckets,
	})

	DeviceWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ampengine_device_workers",
		Help: "Number of concurrent workers the active device.Executor is using.",
	})
)

// RecordFactorsRecomputed increments the recomputed-factor counter for
// a term by n.
func RecordFactorsRecomputed(term string, n int) {
	FactorsRecomputedTotal.WithLabelValues(term).Add(float64(n))
}

// RecordUserVarsRecomputed increments the recomputed-user-variable
// counter for a term by n.
func RecordUserVarsRecomputed(term string, n int) {
	UserVarsRecomputedTotal.WithLabelValues(term).Add(float64(n))
}

// RecordTermAssembled increments the term-assembly counter for term.
func RecordTermAssembled(term string) {
	TermsAssembledTotal.WithLabelValues(term).Inc()
}

// RecordIntegralElements increments the integral-element counter by n.
func RecordIntegralElements(n int) {
	IntegralElementsComputedTotal.Add(float64(n))
}

// RecordEvaluationDuration observes how long stage took on one buffer.
func RecordEvaluationDuration(stage string, d time.Duration) {
	EvaluationDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordEventBufferArena updates the largest-arena gauge if bytes
// exceeds the current value.
func RecordEventBufferArena(bytes int64) {
	EventBufferArenaBytes.Set(float64(bytes))
}

// RecordIntensityEvaluation increments the full-evaluation counter.
func RecordIntensityEvaluation() {
	IntensityEvaluationsTotal.Inc()
}

// RecordSumLogIntensity adds value to the running sum-log-intensity
// total for reaction.
func RecordSumLogIntensity(reaction string, value float64) {
	SumLogIntensityTotal.WithLabelValues(reaction).Add(value)
}

// RecordCoordinatorRoundTrip increments the round-trip counter for
// command.
func RecordCoordinatorRoundTrip(command string) {
	CoordinatorRoundTrips.WithLabelValues(command).Inc()
}

// RecordCoordinatorFollowerLag observes how long a gather round waited
// on its slowest follower.
func RecordCoordinatorFollowerLag(d time.Duration) {
	CoordinatorFollowerLag.Observe(d.Seconds())
}

// RecordDeviceWorkers updates the active device worker-count gauge.
func RecordDeviceWorkers(n int) {
	DeviceWorkers.Set(float64(n))
}
