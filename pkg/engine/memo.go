package engine

import (
	"context"
	"math"
	"sync"

	"github.com/matzehuels/treescope/pkg/geom"
	"github.com/matzehuels/treescope/pkg/layout"
	"github.com/matzehuels/treescope/pkg/observability"
	"github.com/matzehuels/treescope/pkg/tree"
)

// DefaultMemoCapacity is the number of layout results retained before the
// least recently used entries are evicted.
const DefaultMemoCapacity = 128

// viewportBucketPx is the viewport quantization step for memo keys. Resize
// gestures move the viewport edge a few pixels per frame; bucketing to
// 16px keeps the cache warm through a drag without visible layout error.
const viewportBucketPx = 16

// MemoKey identifies one memoized layout result. Every field that can
// change the geometry participates; two keys compare equal exactly when
// the cached rectangles are valid for both requests.
type MemoKey struct {
	Node       tree.NodeID
	ViewportW  int // viewport width in 16px buckets
	ViewportH  int // viewport height in 16px buckets
	ZoomBucket int
	Kind       layout.Kind
	DepthLimit int
	Tier       layout.Tier
	Version    string
}

// memoEntry pairs a cached result with its recency generation.
type memoEntry struct {
	rects []layout.PositionedRect
	gen   uint64
}

// Memo is a thread-safe memoization cache for layout results.
//
// A hit returns the identical slice that was stored, without invoking the
// compute function; callers must treat results as immutable. Entries from
// superseded tree versions are dropped lazily when encountered, and the
// least recently used entry is evicted once the capacity is reached.
type Memo struct {
	mu       sync.RWMutex
	entries  map[MemoKey]*memoEntry
	capacity int
	gen      uint64 // monotonic access counter for LRU ordering

	hits   uint64
	misses uint64

	version string // current tree version; older entries are stale
}

// NewMemo creates a memo holding up to capacity entries.
// Non-positive capacities fall back to [DefaultMemoCapacity].
func NewMemo(capacity int) *Memo {
	if capacity <= 0 {
		capacity = DefaultMemoCapacity
	}
	return &Memo{
		entries:  make(map[MemoKey]*memoEntry),
		capacity: capacity,
	}
}

// SetVersion marks version as current. Entries keyed by any other version
// become stale: they are skipped on lookup and removed when seen.
func (m *Memo) SetVersion(version string) {
	m.mu.Lock()
	m.version = version
	m.mu.Unlock()
}

// Get returns the cached rectangles for key, if present and current.
func (m *Memo) Get(ctx context.Context, key MemoKey) ([]layout.PositionedRect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if ok && key.Version != m.version {
		// Stale tree version surfaced by a lookup; drop it now.
		delete(m.entries, key)
		observability.Cache().OnCacheEvict(ctx, "layout", true)
		ok = false
	}
	if !ok {
		m.misses++
		observability.Cache().OnCacheMiss(ctx, "layout")
		return nil, false
	}
	m.gen++
	e.gen = m.gen
	m.hits++
	observability.Cache().OnCacheHit(ctx, "layout")
	return e.rects, true
}

// Put stores rects under key, evicting the least recently used entry when
// the cache is full. Entries for superseded versions are refused.
func (m *Memo) Put(ctx context.Context, key MemoKey, rects []layout.PositionedRect) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.version != "" && key.Version != m.version {
		return
	}
	if e, ok := m.entries[key]; ok {
		m.gen++
		e.rects = rects
		e.gen = m.gen
		return
	}
	if len(m.entries) >= m.capacity {
		m.evictOldestLocked(ctx)
	}
	m.gen++
	m.entries[key] = &memoEntry{rects: rects, gen: m.gen}
}

// evictOldestLocked removes the entry with the smallest generation.
// Callers hold m.mu.
func (m *Memo) evictOldestLocked(ctx context.Context) {
	var (
		victim MemoKey
		oldest uint64 = math.MaxUint64
		found  bool
	)
	for k, e := range m.entries {
		if e.gen < oldest {
			oldest = e.gen
			victim = k
			found = true
		}
	}
	if found {
		delete(m.entries, victim)
		observability.Cache().OnCacheEvict(ctx, "layout", false)
	}
}

// Invalidate drops every cached entry.
func (m *Memo) Invalidate() {
	m.mu.Lock()
	m.entries = make(map[MemoKey]*memoEntry)
	m.mu.Unlock()
}

// Len returns the number of cached entries.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stats returns the cumulative hit and miss counts.
func (m *Memo) Stats() (hits, misses uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hits, m.misses
}

// bucketViewport quantizes a viewport dimension to its memo bucket.
func bucketViewport(v float64) int {
	if v <= 0 {
		return 0
	}
	return int(math.Round(v / viewportBucketPx))
}

// memoKeyFor derives the memo key for one layout request.
func memoKeyFor(root tree.NodeID, bounds geom.Rect, kind layout.Kind, lod layout.LOD, version string) MemoKey {
	return MemoKey{
		Node:       root,
		ViewportW:  bucketViewport(bounds.W),
		ViewportH:  bucketViewport(bounds.H),
		ZoomBucket: lod.ZoomBucket,
		Kind:       kind,
		DepthLimit: lod.DepthLimit,
		Tier:       lod.Tier,
		Version:    version,
	}
}
