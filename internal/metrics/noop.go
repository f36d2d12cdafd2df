package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveUpstreamRequest is a no-op.
func (n *NoopRecorder) ObserveUpstreamRequest(operation, status string, duration time.Duration) {}

// IncViewRendered is a no-op.
func (n *NoopRecorder) IncViewRendered(view, variant string) {}

// IncMenuCacheHit is a no-op.
func (n *NoopRecorder) IncMenuCacheHit() {}

// IncMenuCacheMiss is a no-op.
func (n *NoopRecorder) IncMenuCacheMiss() {}

// IncStoreCreated is a no-op.
func (n *NoopRecorder) IncStoreCreated() {}

// IncStoreDeleted is a no-op.
func (n *NoopRecorder) IncStoreDeleted() {}

// IncFranchiseCreated is a no-op.
func (n *NoopRecorder) IncFranchiseCreated() {}

// IncFranchiseDeleted is a no-op.
func (n *NoopRecorder) IncFranchiseDeleted() {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(status string) {}

// IncOrderPlaced is a no-op.
func (n *NoopRecorder) IncOrderPlaced() {}
