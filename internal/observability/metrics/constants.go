// Package metrics provides Prometheus collectors for the sync pipeline.
package metrics

// Cycle outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Histogram bucket parameters.
const (
	// BucketStart100ms is the starting bucket for cycle durations (100ms to ~7min range).
	BucketStart100ms = 0.1
	BucketFactor2    = 2.0
	BucketCount12    = 12
)
