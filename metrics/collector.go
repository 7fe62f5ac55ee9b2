package metrics

import "outlook_backend/db"

// Collector receives finished generations and reports aggregates.
// Implementations must be safe for concurrent use.
type Collector interface {
	// Record stores a generation. It never blocks on I/O, so it can sit
	// next to the history recorder in the pipeline.
	Record(rec db.GenerationRecord) bool

	Summary() Summary

	// Recent returns up to limit samples, oldest first.
	Recent(limit int) []Sample
}
