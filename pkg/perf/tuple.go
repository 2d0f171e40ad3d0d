// Package perf holds the lane performance model: cost tuples, the
// reference-counted attribution graph, and a baseline estimator.
package perf

// Tuple is a per-lane cost estimate. Latency and Overhead are in seconds,
// Bandwidth in bytes/second. Owned by the provider; selection only reads it.
type Tuple struct {
	Latency   float64
	Bandwidth float64
	Overhead  float64
}
