// Package engine coordinates the interactive layout loop: it owns the
// current tree, memoizes layout geometry across zoom and pan gestures,
// and maintains a spatial index over the latest scene for hit-testing.
//
// The engine is the single entry point UI frontends and the HTTP server
// use; they never call the layout strategies directly. A typical frame:
//
//	res, err := eng.Compute(ctx, engine.Request{
//	    Bounds: geom.Rect{W: 1280, H: 800},
//	    Zoom:   2.4,
//	})
//	if err != nil {
//	    return err
//	}
//	id, ok := eng.HitTest(cursor)
//
// Repeated frames with the same quantized inputs return the identical
// rectangle slice without recomputation, so a zoom gesture costs one
// layout per quarter-zoom step rather than one per frame.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/treescope/pkg/errors"
	"github.com/matzehuels/treescope/pkg/geom"
	"github.com/matzehuels/treescope/pkg/layout"
	"github.com/matzehuels/treescope/pkg/observability"
	"github.com/matzehuels/treescope/pkg/spatial"
	"github.com/matzehuels/treescope/pkg/tree"
)

// Options configures an Engine. Zero values fall back to the layout
// package defaults.
type Options struct {
	Padding       float64
	MinCell       float64
	MaxDepth      int
	CacheCapacity int
	Force         layout.ForceConfig
	Logger        *log.Logger
}

// Request describes one layout frame.
type Request struct {
	// Root is the focus node; [tree.None] means the tree root.
	Root tree.NodeID
	// Bounds is the viewport in screen coordinates.
	Bounds geom.Rect
	// Zoom is the continuous zoom scalar, clamped to the supported range.
	Zoom float64
	// Kind selects the strategy; [layout.KindAuto] follows the zoom band.
	Kind layout.Kind
}

// Stats summarizes one Compute call.
type Stats struct {
	NodeCount  int
	RectCount  int
	LayoutTime time.Duration
}

// CacheInfo reports whether the frame was served from the memo.
type CacheInfo struct {
	Hit bool
}

// Result is the output of one Compute call. Rects is shared with the
// memo on cache hits and must be treated as read-only.
type Result struct {
	Rects     []layout.PositionedRect
	LOD       layout.LOD
	Stats     Stats
	CacheInfo CacheInfo
}

// Engine owns a tree and serves layout frames over it.
// All methods are safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	tree     *tree.Tree
	index    *spatial.Index
	indexKey MemoKey // key of the scene the index was built from
	indexOK  bool

	memo   *Memo
	opts   Options
	logger *log.Logger
}

// New creates an engine with no tree loaded.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		memo:   NewMemo(opts.CacheCapacity),
		opts:   opts,
		logger: logger,
	}
}

// SetTree replaces the engine's tree. The tree is validated first; on
// success every memoized result from the previous tree becomes stale and
// the hit-test index is discarded.
func (e *Engine) SetTree(t *tree.Tree) error {
	if t == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil tree")
	}
	if err := t.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidTree, err, "rejecting tree")
	}

	e.mu.Lock()
	e.tree = t
	e.index = nil
	e.indexOK = false
	e.mu.Unlock()

	e.memo.SetVersion(t.Version())
	e.logger.Debug("tree replaced", "nodes", t.Len(), "version", t.Version())
	return nil
}

// Tree returns the currently loaded tree, or nil.
func (e *Engine) Tree() *tree.Tree {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tree
}

// Compute lays out one frame, serving it from the memo when the quantized
// request matches a cached scene. The spatial index tracks the scene of
// the most recent Compute call.
func (e *Engine) Compute(ctx context.Context, req Request) (*Result, error) {
	e.mu.RLock()
	t := e.tree
	e.mu.RUnlock()
	if t == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no tree loaded")
	}

	root := req.Root
	if root == tree.None {
		root = t.Root()
	}
	if _, err := t.Node(root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "focus node %d", root)
	}

	bounds := req.Bounds.Normalize()
	zoom := layout.ClampZoom(req.Zoom)
	lod := layout.Resolve(zoom, bounds.Area(), e.opts.MaxDepth)
	kind := req.Kind
	if kind == layout.KindAuto {
		kind = lod.Strategy
	}
	// Report the strategy actually used, not just the zoom band's pick.
	lod.Strategy = kind

	key := memoKeyFor(root, bounds, kind, lod, t.Version())
	observability.Layout().OnLayoutStart(ctx, kind.String(), t.Len())

	start := time.Now()
	rects, hit := e.memo.Get(ctx, key)
	var err error
	if !hit {
		rects, err = layout.Compute(ctx, t, root, bounds, layout.Params{
			Kind:     kind,
			Zoom:     zoom,
			Padding:  e.opts.Padding,
			MinCell:  e.opts.MinCell,
			MaxDepth: e.opts.MaxDepth,
			Force:    e.opts.Force,
		})
		if err != nil {
			observability.Layout().OnLayoutComplete(ctx, kind.String(), 0, time.Since(start), err)
			return nil, err
		}
		e.memo.Put(ctx, key, rects)
	}
	elapsed := time.Since(start)
	observability.Layout().OnLayoutComplete(ctx, kind.String(), len(rects), elapsed, nil)

	e.refreshIndex(key, rects)

	e.logger.Debug("frame computed",
		"kind", kind, "zoom", zoom, "rects", len(rects),
		"hit", hit, "duration", elapsed)

	return &Result{
		Rects:     rects,
		LOD:       lod,
		Stats:     Stats{NodeCount: t.Len(), RectCount: len(rects), LayoutTime: elapsed},
		CacheInfo: CacheInfo{Hit: hit},
	}, nil
}

// refreshIndex points the hit-test index at the given scene, rebuilding
// only when the scene key changed since the last frame.
func (e *Engine) refreshIndex(key MemoKey, rects []layout.PositionedRect) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.indexOK && e.indexKey == key {
		return
	}
	e.index = spatial.Build(rects)
	e.indexKey = key
	e.indexOK = true
}

// HitTest resolves a screen point against the most recently computed
// scene. It returns false when no frame has been computed yet or the
// point misses every rectangle.
func (e *Engine) HitTest(p geom.Point) (tree.NodeID, bool) {
	e.mu.RLock()
	ix := e.index
	e.mu.RUnlock()
	if ix == nil {
		return tree.None, false
	}
	id, ok := ix.HitTest(p)
	observability.Layout().OnHitTest(context.Background(), ok)
	return id, ok
}

// RectsIn returns the nodes whose rectangles intersect region in the most
// recently computed scene, deepest first.
func (e *Engine) RectsIn(region geom.Rect) []tree.NodeID {
	e.mu.RLock()
	ix := e.index
	e.mu.RUnlock()
	if ix == nil {
		return nil
	}
	return ix.RectsIn(region)
}

// Invalidate drops all memoized geometry and the hit-test index while
// keeping the tree. The next Compute call recomputes from scratch.
func (e *Engine) Invalidate() {
	e.memo.Invalidate()
	e.mu.Lock()
	e.index = nil
	e.indexOK = false
	e.mu.Unlock()
}

// CacheStats reports cumulative memo hits and misses.
func (e *Engine) CacheStats() (hits, misses uint64) {
	return e.memo.Stats()
}
