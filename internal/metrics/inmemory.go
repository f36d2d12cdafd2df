package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UpstreamRequests   map[string]uint64 // keyed by "operation:status"
	UpstreamDurationNs int64
	ViewsRendered      map[string]uint64 // keyed by "view:variant"
	MenuCacheHits      uint64
	MenuCacheMisses    uint64
	StoresCreated      uint64
	StoresDeleted      uint64
	FranchisesCreated  uint64
	FranchisesDeleted  uint64
	Logins             map[string]uint64
	OrdersPlaced       uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu                 sync.Mutex
	upstreamRequests   map[string]uint64
	viewsRendered      map[string]uint64
	logins             map[string]uint64
	upstreamDurationNs int64
	menuCacheHits      uint64
	menuCacheMisses    uint64
	storesCreated      uint64
	storesDeleted      uint64
	franchisesCreated  uint64
	franchisesDeleted  uint64
	ordersPlaced       uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		upstreamRequests: make(map[string]uint64),
		viewsRendered:    make(map[string]uint64),
		logins:           make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		UpstreamRequests:   copyCounts(m.upstreamRequests),
		UpstreamDurationNs: atomic.LoadInt64(&m.upstreamDurationNs),
		ViewsRendered:      copyCounts(m.viewsRendered),
		MenuCacheHits:      atomic.LoadUint64(&m.menuCacheHits),
		MenuCacheMisses:    atomic.LoadUint64(&m.menuCacheMisses),
		StoresCreated:      atomic.LoadUint64(&m.storesCreated),
		StoresDeleted:      atomic.LoadUint64(&m.storesDeleted),
		FranchisesCreated:  atomic.LoadUint64(&m.franchisesCreated),
		FranchisesDeleted:  atomic.LoadUint64(&m.franchisesDeleted),
		Logins:             copyCounts(m.logins),
		OrdersPlaced:       atomic.LoadUint64(&m.ordersPlaced),
	}
}

// ObserveUpstreamRequest records a pizza service call.
func (m *InMemoryRecorder) ObserveUpstreamRequest(operation, status string, duration time.Duration) {
	m.mu.Lock()
	m.upstreamRequests[operation+":"+status]++
	m.mu.Unlock()
	atomic.AddInt64(&m.upstreamDurationNs, duration.Nanoseconds())
}

// IncViewRendered counts a rendered view variant.
func (m *InMemoryRecorder) IncViewRendered(view, variant string) {
	m.mu.Lock()
	m.viewsRendered[view+":"+variant]++
	m.mu.Unlock()
}

// IncMenuCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncMenuCacheHit() {
	atomic.AddUint64(&m.menuCacheHits, 1)
}

// IncMenuCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncMenuCacheMiss() {
	atomic.AddUint64(&m.menuCacheMisses, 1)
}

// IncStoreCreated increments store created counter.
func (m *InMemoryRecorder) IncStoreCreated() {
	atomic.AddUint64(&m.storesCreated, 1)
}

// IncStoreDeleted increments store deleted counter.
func (m *InMemoryRecorder) IncStoreDeleted() {
	atomic.AddUint64(&m.storesDeleted, 1)
}

// IncFranchiseCreated increments franchise created counter.
func (m *InMemoryRecorder) IncFranchiseCreated() {
	atomic.AddUint64(&m.franchisesCreated, 1)
}

// IncFranchiseDeleted increments franchise deleted counter.
func (m *InMemoryRecorder) IncFranchiseDeleted() {
	atomic.AddUint64(&m.franchisesDeleted, 1)
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(status string) {
	m.mu.Lock()
	m.logins[status]++
	m.mu.Unlock()
}

// IncOrderPlaced increments the placed order counter.
func (m *InMemoryRecorder) IncOrderPlaced() {
	atomic.AddUint64(&m.ordersPlaced, 1)
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
