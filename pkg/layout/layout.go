// Package layout turns a filesystem tree into screen-space rectangles.
//
// Four interchangeable strategies are provided - grid, squarified treemap,
// force-directed, and a detailed hybrid - all sharing one contract: given a
// tree slice, a viewport rectangle, and parameters, produce a deterministic
// ordered sequence of positioned rectangles, fully contained within the
// viewport minus padding, with sibling rectangles never overlapping and
// child rectangles nested inside their parent's.
//
// The zoom/LOD mapper ([Resolve]) converts a continuous zoom scalar into a
// detail tier, a traversal depth limit, and - for [KindAuto] - the active
// strategy, mirroring the zoom bands of the interactive view: grid below
// 2.0, treemap below 3.0, detailed at 3.0 and above.
package layout

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/treescope/pkg/errors"
	"github.com/matzehuels/treescope/pkg/geom"
	"github.com/matzehuels/treescope/pkg/tree"
)

// Kind selects a layout strategy.
type Kind int

const (
	// KindAuto picks the strategy from the zoom band (grid, treemap, or
	// detailed), matching the interactive zoom behavior.
	KindAuto Kind = iota
	// KindGrid partitions siblings into a near-square cell grid.
	KindGrid
	// KindTreemap packs siblings with the squarified treemap heuristic.
	KindTreemap
	// KindForce places siblings with a damped force simulation.
	KindForce
	// KindDetailed is treemap packing plus per-file header/body regions
	// at the highest detail tier.
	KindDetailed
)

var kindNames = map[Kind]string{
	KindAuto:     "auto",
	KindGrid:     "grid",
	KindTreemap:  "treemap",
	KindForce:    "force",
	KindDetailed: "detailed",
}

// String returns the kind's lowercase name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind converts a strategy name into a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindAuto, errors.New(errors.ErrCodeInvalidKind,
		"unknown layout kind %q (must be one of: auto, grid, treemap, force, detailed)", s)
}

// Tier is a discrete detail level controlling how much per-node
// information is reserved or rendered at a given zoom. Tiers are ordered:
// higher zoom always maps to an equal or higher tier.
type Tier int

const (
	// TierOverview shows bare rectangles only.
	TierOverview Tier = iota
	// TierLabeled adds node names.
	TierLabeled
	// TierPreview adds sizes and per-directory summaries.
	TierPreview
	// TierFull reserves header and body regions for file content previews.
	TierFull
)

var tierNames = map[Tier]string{
	TierOverview: "overview",
	TierLabeled:  "labeled",
	TierPreview:  "preview",
	TierFull:     "full",
}

// String returns the tier's lowercase name.
func (t Tier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return "unknown"
}

// Region distinguishes the roles of the rectangles emitted for one node.
type Region int

const (
	// RegionNode is the node's own rectangle.
	RegionNode Region = iota
	// RegionHeader is the name/size strip of a file at TierFull.
	RegionHeader
	// RegionBody is the content-preview reserve of a file at TierFull.
	// The layout only reserves the space; content comes from an external
	// accessor.
	RegionBody
)

// PositionedRect is one output unit of a layout pass.
type PositionedRect struct {
	Node      tree.NodeID
	Rect      geom.Rect
	Tier      Tier
	Region    Region
	Z         int  // depth below the layout root; greater wins hit-testing
	Aggregate bool // true when a deeper subtree is collapsed into this rect
}

// Default parameter values.
const (
	DefaultPadding  = 2.0
	DefaultMinCell  = 4.0
	DefaultMaxDepth = 8
)

// Params is the immutable configuration bundle passed into every layout
// call. Together with the tree's version token it forms the cache key.
type Params struct {
	Kind     Kind
	Zoom     float64
	Padding  float64
	MinCell  float64     // minimum rectangle side so zero-size nodes stay clickable
	MaxDepth int         // depth limit at maximum zoom, capped at DepthCap
	Force    ForceConfig // force-directed tuning
}

// SetDefaults fills zero-valued fields with defaults.
func (p *Params) SetDefaults() {
	if p.Zoom == 0 {
		p.Zoom = MinZoom
	}
	if p.Padding == 0 {
		p.Padding = DefaultPadding
	}
	if p.MinCell == 0 {
		p.MinCell = DefaultMinCell
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = DefaultMaxDepth
	}
	if p.MaxDepth > DepthCap {
		p.MaxDepth = DepthCap
	}
	p.Force.setDefaults()
}

// Compute lays out the subtree rooted at root into bounds.
//
// The viewport is normalized defensively (NaN and negative sizes clamp to
// zero) and the zoom is clamped to [MinZoom, MaxZoom] - degenerate view
// states come from transient UI conditions and must not fail the frame.
// A malformed tree, by contrast, fails fast: callers are expected to have
// run [tree.Tree.Validate] after construction.
//
// Root-level sibling subtrees are laid out in parallel; ctx is checked
// between subtrees so a caller can abort a long layout when the tree is
// replaced mid-computation.
func Compute(ctx context.Context, t *tree.Tree, root tree.NodeID, bounds geom.Rect, p Params) ([]PositionedRect, error) {
	p.SetDefaults()
	bounds = bounds.Normalize()
	zoom := ClampZoom(p.Zoom)

	if _, err := t.Node(root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTree, err, "layout root %d", root)
	}

	lod := Resolve(zoom, bounds.Area(), p.MaxDepth)
	kind := p.Kind
	if kind == KindAuto {
		kind = lod.Strategy
	}

	c := &computation{tree: t, params: p, kind: kind, lod: lod}
	return c.layoutChildren(ctx, root, bounds, 1, true)
}

// computation carries the per-pass immutable inputs through the recursion.
type computation struct {
	tree   *tree.Tree
	params Params
	kind   Kind
	lod    LOD
}

// layoutChildren partitions the children of node into bounds and recurses.
// depth is the z-order of the emitted sibling rects (1 for the layout
// root's direct children). Output order is depth-first pre-order over the
// stable child order, which keeps results deterministic and cacheable.
func (c *computation) layoutChildren(ctx context.Context, node tree.NodeID, bounds geom.Rect, depth int, parallel bool) ([]PositionedRect, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAborted, err, "layout aborted")
	}

	children := c.tree.Children(node)
	if len(children) == 0 {
		return nil, nil
	}

	inner := bounds.Inset(c.params.Padding)
	if inner.Empty() {
		// Viewport too small to subdivide further; nothing to emit.
		return nil, nil
	}

	cells := c.partition(children, inner)

	out := make([]PositionedRect, 0, len(children))
	recurse := make([]int, 0, len(children)) // indices into children needing descent

	for i, child := range children {
		cell := cells[i]
		if cell.Empty() {
			continue
		}
		n := c.tree.MustNode(child)
		pr := PositionedRect{
			Node:   child,
			Rect:   cell,
			Tier:   c.lod.Tier,
			Region: RegionNode,
			Z:      depth,
		}
		if n.IsDir() && depth >= c.lod.DepthLimit && len(n.Children) > 0 {
			// Collapsed subtree: one aggregate block sized by cumulative
			// byte size, still individually hit-testable.
			pr.Aggregate = true
		}
		out = append(out, pr)
		if n.IsDir() && depth < c.lod.DepthLimit && len(n.Children) > 0 {
			recurse = append(recurse, i)
		}
		if !n.IsDir() && c.kind == KindDetailed && c.lod.Tier == TierFull {
			out = append(out, fileRegions(child, cell, c.lod.Tier, depth)...)
		}
	}

	if len(recurse) == 0 {
		return out, nil
	}

	subs := make([][]PositionedRect, len(recurse))
	if parallel && len(recurse) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for si, i := range recurse {
			g.Go(func() error {
				sub, err := c.layoutChildren(gctx, children[i], cells[i], depth+1, false)
				if err != nil {
					return err
				}
				subs[si] = sub
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for si, i := range recurse {
			sub, err := c.layoutChildren(ctx, children[i], cells[i], depth+1, false)
			if err != nil {
				return nil, err
			}
			subs[si] = sub
		}
	}

	// Stitch subtree output back in pre-order: each parent rect directly
	// followed by its descendants.
	slot := make(map[tree.NodeID]int, len(recurse))
	for s, i := range recurse {
		slot[children[i]] = s
	}
	stitched := make([]PositionedRect, 0, len(out))
	for _, pr := range out {
		stitched = append(stitched, pr)
		if pr.Region != RegionNode {
			continue
		}
		if s, ok := slot[pr.Node]; ok {
			stitched = append(stitched, subs[s]...)
		}
	}
	return stitched, nil
}

// partition splits inner among the children according to the active
// strategy, returning one cell per child in child order. Cells tile or lie
// within inner and never overlap.
func (c *computation) partition(children []tree.NodeID, inner geom.Rect) []geom.Rect {
	weights := make([]float64, len(children))
	for i, id := range children {
		n := c.tree.MustNode(id)
		if n.Size > 0 {
			weights[i] = float64(n.Size)
		}
	}

	switch c.kind {
	case KindGrid:
		return gridPartition(len(children), inner)
	case KindForce:
		return forcePartition(weights, inner, c.params.Force, c.params.MinCell)
	default: // KindTreemap, KindDetailed
		return squarify(weights, inner, c.params.MinCell)
	}
}

// fileRegions subdivides a file rectangle into a header strip and a body
// reserve at the highest detail tier. Rectangles too small for both parts
// produce no regions.
func fileRegions(id tree.NodeID, cell geom.Rect, tier Tier, depth int) []PositionedRect {
	const (
		minHeaderH = 10.0
		maxHeaderH = 24.0
	)
	headerH := cell.H * 0.22
	if headerH < minHeaderH {
		headerH = minHeaderH
	}
	if headerH > maxHeaderH {
		headerH = maxHeaderH
	}
	if cell.H < 2*headerH || cell.W < minHeaderH {
		return nil
	}
	return []PositionedRect{
		{
			Node:   id,
			Rect:   geom.Rect{X: cell.X, Y: cell.Y, W: cell.W, H: headerH},
			Tier:   tier,
			Region: RegionHeader,
			Z:      depth + 1,
		},
		{
			Node:   id,
			Rect:   geom.Rect{X: cell.X, Y: cell.Y + headerH, W: cell.W, H: cell.H - headerH},
			Tier:   tier,
			Region: RegionBody,
			Z:      depth + 1,
		},
	}
}
