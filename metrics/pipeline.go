package metrics

import "sync/atomic"

// PipelineMetrics are per-run counters kept by the extractor loop, separate
// from the process-wide prometheus collectors.
type PipelineMetrics struct {
	ProcessedCount atomic.Int32
	SkippedCount   atomic.Int32
	ErroredCount   atomic.Int32
	SentCount      atomic.Int32
}
