// Package resilience provides the fault-tolerance primitives used by the
// diarization pipeline:
//
//   - Retry: generic retry with exponential backoff and a classifier
//   - CircuitBreaker: remembers a failing backend between jobs
//   - Bulkhead: caps concurrent jobs
package resilience
