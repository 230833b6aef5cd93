// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register
// hooks at startup to receive events about layout computation, geometry
// cache behavior, and directory scanning.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetLayoutHooks(&myLayoutHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Layout().OnLayoutStart(ctx, kind, nodeCount)
//	// ... compute layout ...
//	observability.Layout().OnLayoutComplete(ctx, kind, rectCount, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from layout computation.
type LayoutHooks interface {
	// OnLayoutStart records the beginning of a layout pass.
	OnLayoutStart(ctx context.Context, kind string, nodeCount int)

	// OnLayoutComplete records a finished layout pass.
	OnLayoutComplete(ctx context.Context, kind string, rectCount int, duration time.Duration, err error)

	// OnHitTest records a point query against the spatial index.
	OnHitTest(ctx context.Context, hit bool)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from geometry and byte cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheEvict records an eviction (capacity or stale version).
	OnCacheEvict(ctx context.Context, keyType string, stale bool)
}

// =============================================================================
// Scan Hooks
// =============================================================================

// ScanHooks receives events from directory scanning.
type ScanHooks interface {
	// OnScanStart records the beginning of a filesystem walk.
	OnScanStart(ctx context.Context, root string)

	// OnScanComplete records a finished walk.
	OnScanComplete(ctx context.Context, root string, nodeCount int, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnLayoutStart(context.Context, string, int)                           {}
func (NoopLayoutHooks) OnLayoutComplete(context.Context, string, int, time.Duration, error)  {}
func (NoopLayoutHooks) OnHitTest(context.Context, bool)                                      {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)          {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)         {}
func (NoopCacheHooks) OnCacheEvict(context.Context, string, bool)  {}

// NoopScanHooks is a no-op implementation of ScanHooks.
type NoopScanHooks struct{}

func (NoopScanHooks) OnScanStart(context.Context, string)                              {}
func (NoopScanHooks) OnScanComplete(context.Context, string, int, time.Duration, error) {}

// =============================================================================
// Global Registries
// =============================================================================

var (
	mu          sync.RWMutex
	layoutHooks LayoutHooks = NoopLayoutHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	scanHooks   ScanHooks   = NoopScanHooks{}
)

// SetLayoutHooks registers the layout hooks implementation.
// Setting nil is ignored.
func SetLayoutHooks(h LayoutHooks) {
	if h == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	layoutHooks = h
}

// SetCacheHooks registers the cache hooks implementation.
// Setting nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	cacheHooks = h
}

// SetScanHooks registers the scan hooks implementation.
// Setting nil is ignored.
func SetScanHooks(h ScanHooks) {
	if h == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	scanHooks = h
}

// Reset restores all hook registries to their no-op defaults.
// Primarily useful in tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	layoutHooks = NoopLayoutHooks{}
	cacheHooks = NoopCacheHooks{}
	scanHooks = NoopScanHooks{}
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	mu.RLock()
	defer mu.RUnlock()
	return layoutHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	mu.RLock()
	defer mu.RUnlock()
	return cacheHooks
}

// Scan returns the registered scan hooks.
func Scan() ScanHooks {
	mu.RLock()
	defer mu.RUnlock()
	return scanHooks
}
