package engine

import (
	"context"
	"testing"

	"github.com/matzehuels/treescope/pkg/errors"
	"github.com/matzehuels/treescope/pkg/geom"
	"github.com/matzehuels/treescope/pkg/layout"
	"github.com/matzehuels/treescope/pkg/tree"
)

// buildRepo assembles a small repository-shaped tree.
func buildRepo(t *testing.T, version string) *tree.Tree {
	t.Helper()
	b := tree.NewBuilder("repo", "repo")
	src := b.Dir(0, "src", "repo/src")
	b.File(src, "main.go", "repo/src/main.go", 4000)
	b.File(src, "util.go", "repo/src/util.go", 2000)
	docs := b.Dir(0, "docs", "repo/docs")
	b.File(docs, "readme.md", "repo/docs/readme.md", 1000)
	b.File(0, "go.mod", "repo/go.mod", 200)
	b.AggregateSizes()
	b.SetVersion(version)
	tr, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return tr
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(Options{})
	if err := e.SetTree(buildRepo(t, "v1")); err != nil {
		t.Fatalf("SetTree() error: %v", err)
	}
	return e
}

func frameRequest() Request {
	return Request{
		Root:   tree.None,
		Bounds: geom.Rect{W: 800, H: 600},
		Zoom:   2.2,
		Kind:   layout.KindTreemap,
	}
}

func TestComputeNoTree(t *testing.T) {
	e := New(Options{})
	_, err := e.Compute(context.Background(), frameRequest())
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("Compute() error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}
}

func TestComputeUnknownFocus(t *testing.T) {
	e := newTestEngine(t)
	req := frameRequest()
	req.Root = 99
	_, err := e.Compute(context.Background(), req)
	if errors.GetCode(err) != errors.ErrCodeNotFound {
		t.Errorf("Compute() error code = %v, want %v", errors.GetCode(err), errors.ErrCodeNotFound)
	}
}

func TestComputeCachesIdenticalFrames(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.Compute(ctx, frameRequest())
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if first.CacheInfo.Hit {
		t.Error("first frame reported a cache hit")
	}
	if len(first.Rects) == 0 {
		t.Fatal("first frame produced no rectangles")
	}

	second, err := e.Compute(ctx, frameRequest())
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if !second.CacheInfo.Hit {
		t.Error("identical frame missed the cache")
	}
	if &second.Rects[0] != &first.Rects[0] {
		t.Error("cache hit returned recomputed geometry, want the stored slice")
	}
}

func TestComputeViewportBucketing(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	req := frameRequest()
	if _, err := e.Compute(ctx, req); err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	// A few pixels of resize stay within the same viewport bucket.
	req.Bounds.W = 806
	res, err := e.Compute(ctx, req)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if !res.CacheInfo.Hit {
		t.Error("sub-bucket resize missed the cache")
	}

	// A full bucket of resize is a new scene.
	req.Bounds.W = 900
	res, err = e.Compute(ctx, req)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if res.CacheInfo.Hit {
		t.Error("cross-bucket resize hit the cache, want recompute")
	}
}

func TestComputeZoomBucketing(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	req := frameRequest()
	req.Zoom = 2.20
	if _, err := e.Compute(ctx, req); err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	req.Zoom = 2.22 // same quarter-zoom bucket
	res, err := e.Compute(ctx, req)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if !res.CacheInfo.Hit {
		t.Error("same zoom bucket missed the cache")
	}

	req.Zoom = 2.6 // different bucket
	res, err = e.Compute(ctx, req)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if res.CacheInfo.Hit {
		t.Error("different zoom bucket hit the cache, want recompute")
	}
}

func TestSetTreeInvalidatesOldGeometry(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.Compute(ctx, frameRequest())
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	// Replace the tree; the old version's geometry must never come back.
	if err := e.SetTree(buildRepo(t, "v2")); err != nil {
		t.Fatalf("SetTree() error: %v", err)
	}
	second, err := e.Compute(ctx, frameRequest())
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if second.CacheInfo.Hit {
		t.Error("frame after tree replacement hit the cache, want recompute")
	}
	if len(first.Rects) > 0 && len(second.Rects) > 0 && &second.Rects[0] == &first.Rects[0] {
		t.Error("frame after tree replacement returned old geometry")
	}
}

func TestSetTreeRejectsInvalid(t *testing.T) {
	e := New(Options{})
	if err := e.SetTree(nil); errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("SetTree(nil) error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}

	nodes := []tree.Node{
		{Name: "root", Kind: tree.KindDir, Parent: tree.None, Children: []tree.NodeID{1}},
		{Name: "a", Kind: tree.KindFile, Size: -5, Parent: 0},
	}
	bad, err := tree.FromArena(nodes, 0, "v1")
	if err == nil {
		// FromArena validates too; if it ever stops, SetTree must still catch it.
		if err := e.SetTree(bad); errors.GetCode(err) != errors.ErrCodeInvalidTree {
			t.Errorf("SetTree(bad) error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidTree)
		}
	}
}

func TestHitTestAfterCompute(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, ok := e.HitTest(geom.Point{X: 400, Y: 300}); ok {
		t.Error("HitTest() before any frame returned a node")
	}

	res, err := e.Compute(ctx, frameRequest())
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	// The center of any emitted rectangle must resolve to a node.
	r := res.Rects[0].Rect
	center := geom.Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
	if _, ok := e.HitTest(center); !ok {
		t.Error("HitTest() at a rect center found nothing")
	}

	// Far outside the viewport nothing is hit.
	if _, ok := e.HitTest(geom.Point{X: -100, Y: -100}); ok {
		t.Error("HitTest() outside the scene returned a node")
	}
}

func TestRectsInAfterCompute(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if got := e.RectsIn(geom.Rect{W: 800, H: 600}); got != nil {
		t.Errorf("RectsIn() before any frame = %v, want nil", got)
	}

	res, err := e.Compute(ctx, frameRequest())
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	got := e.RectsIn(geom.Rect{W: 800, H: 600})
	if len(got) == 0 {
		t.Fatal("RectsIn() over the whole viewport found nothing")
	}
	seen := make(map[tree.NodeID]bool)
	for _, id := range got {
		if seen[id] {
			t.Errorf("RectsIn() returned node %d twice", id)
		}
		seen[id] = true
	}
	if len(got) > res.Stats.RectCount {
		t.Errorf("RectsIn() returned %d nodes for %d rects", len(got), res.Stats.RectCount)
	}
}

func TestInvalidate(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Compute(ctx, frameRequest()); err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	e.Invalidate()

	if _, ok := e.HitTest(geom.Point{X: 10, Y: 10}); ok {
		t.Error("HitTest() after Invalidate returned a node")
	}
	res, err := e.Compute(ctx, frameRequest())
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if res.CacheInfo.Hit {
		t.Error("frame after Invalidate hit the cache, want recompute")
	}
}

func TestCacheStats(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	e.Compute(ctx, frameRequest())
	e.Compute(ctx, frameRequest())

	hits, misses := e.CacheStats()
	if hits != 1 || misses != 1 {
		t.Errorf("CacheStats() = (%d, %d), want (1, 1)", hits, misses)
	}
}

func TestComputeAutoFollowsZoomBand(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	req := frameRequest()
	req.Kind = layout.KindAuto

	tests := []struct {
		zoom float64
		want layout.Kind
	}{
		{1.0, layout.KindGrid},
		{2.5, layout.KindTreemap},
		{3.5, layout.KindDetailed},
	}
	for _, tt := range tests {
		req.Zoom = tt.zoom
		res, err := e.Compute(ctx, req)
		if err != nil {
			t.Fatalf("Compute(zoom=%v) error: %v", tt.zoom, err)
		}
		if res.LOD.Strategy != tt.want {
			t.Errorf("Compute(zoom=%v) strategy = %v, want %v", tt.zoom, res.LOD.Strategy, tt.want)
		}
	}
}

func TestComputeReportsForcedStrategy(t *testing.T) {
	e := newTestEngine(t)

	req := frameRequest()
	req.Zoom = 1.0 // auto would pick grid here
	req.Kind = layout.KindForce

	res, err := e.Compute(context.Background(), req)
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if res.LOD.Strategy != layout.KindForce {
		t.Errorf("strategy = %v, want %v", res.LOD.Strategy, layout.KindForce)
	}
}
