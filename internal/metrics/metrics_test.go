package metrics

import (
	"testing"
	"time"
)

func TestMetricsExistence(t *testing.T) {
	// Verify our exported metrics functions exist and don't panic
	RecordFactorsRecomputed("resonance", 4)
	RecordUserVarsRecomputed("resonance", 2)
	RecordTermAssembled("resonance")
}

func TestRecordFactorsRecomputedMultiple(t *testing.T) {
	RecordFactorsRecomputed("resonance", 1)
	RecordFactorsRecomputed("resonance", 2)
	RecordFactorsRecomputed("background", 3)

	// Counter should accumulate per label - just verify no panic
}

func TestRecordIntegralElements(t *testing.T) {
	RecordIntegralElements(6)
	RecordIntegralElements(0)
	// Just verify no panic
}

func TestRecordEvaluationDurationHistogram(t *testing.T) {
	RecordEvaluationDuration("calc_terms", 10*time.Millisecond)
	RecordEvaluationDuration("calc_terms", 20*time.Millisecond)
	RecordEvaluationDuration("calc_intensities", 5*time.Millisecond)

	// Histogram should have observations - just verify no panic
}

func TestRecordEventBufferArena(t *testing.T) {
	RecordEventBufferArena(1024 * 1024)
	RecordEventBufferArena(2048 * 1024) // gauge should update
	// Just verify no panic
}

func TestRecordIntensityEvaluation(t *testing.T) {
	RecordIntensityEvaluation()
	RecordIntensityEvaluation()
}

func TestRecordSumLogIntensity(t *testing.T) {
	RecordSumLogIntensity("gamma-p", -1234.5)
	RecordSumLogIntensity("gamma-p", -987.6)
}

func TestRecordCoordinatorRoundTrip(t *testing.T) {
	RecordCoordinatorRoundTrip("update_parameters")
	RecordCoordinatorRoundTrip("compute_likelihood")
}

func TestRecordCoordinatorFollowerLag(t *testing.T) {
	RecordCoordinatorFollowerLag(15 * time.Millisecond)
}

func TestRecordDeviceWorkers(t *testing.T) {
	RecordDeviceWorkers(8)
	RecordDeviceWorkers(16)
}
