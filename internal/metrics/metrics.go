// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Upstream call outcomes reported by the pizza client.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Login outcomes.
const (
	LoginSuccess     = "success"
	LoginFailed      = "failed"
	LoginRateLimited = "rate_limited"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Pizza service metrics
	ObserveUpstreamRequest(operation, status string, duration time.Duration)

	// View metrics
	IncViewRendered(view, variant string)
	IncMenuCacheHit()
	IncMenuCacheMiss()

	// Management metrics
	IncStoreCreated()
	IncStoreDeleted()
	IncFranchiseCreated()
	IncFranchiseDeleted()

	// Session metrics
	IncLogin(status string)
	IncOrderPlaced()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
