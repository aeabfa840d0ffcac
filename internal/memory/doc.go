// Package memory configures the Go soft memory limit for containerized
// deployments and provides a backpressure gate for memory-hungry work such
// as image decoding.
//
// [ConfigureFromEnv] reads GOMEMLIMIT, or derives a limit from MEMORY_LIMIT
// (the container limit in bytes, typically from the Kubernetes Downward API)
// scaled by MEMORY_RATIO (default 0.85). Call it early in main.
//
// A [Monitor] samples heap usage against that limit. Above the critical
// watermark [Monitor.Wait] blocks until usage drops below the high watermark
// or the context ends. Without a limit the monitor never blocks.
package memory
