// Package render turns computed layout scenes into SVG, Graphviz DOT,
// and PNG artifacts.
//
// The SVG renderer draws the scene exactly as the layout computed it:
// one rectangle per positioned rect, fills keyed by file extension,
// labels from [layout.TierLabeled] upward, and header strips where the
// detailed strategy reserved them. The DOT exporter flattens the visible
// scene into a parent-edge graph for Graphviz-based tooling;
// [RenderDOTSVG] and [RenderDOTPNG] rasterize it in-process.
package render

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/treescope/pkg/layout"
	"github.com/matzehuels/treescope/pkg/tree"
)

// SVGOption configures SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	labels     bool
	sizes      bool
	background string
}

// WithLabels forces node names on, regardless of tier.
func WithLabels() SVGOption { return func(r *svgRenderer) { r.labels = true } }

// WithSizes adds byte sizes to labels.
func WithSizes() SVGOption { return func(r *svgRenderer) { r.sizes = true } }

// WithBackground sets the canvas fill; default is transparent.
func WithBackground(color string) SVGOption {
	return func(r *svgRenderer) { r.background = color }
}

// SVG renders a computed scene to an SVG document.
//
// Rectangles are emitted in scene order, which is pre-order over the
// tree: parents paint first, children over them, matching the z-order
// the hit-test index uses.
func SVG(t *tree.Tree, rects []layout.PositionedRect, opts ...SVGOption) []byte {
	r := svgRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	w, h := sceneSize(rects)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		w, h, w, h)
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill=%q/>`+"\n", r.background)
	}

	for _, pr := range rects {
		n := t.MustNode(pr.Node)
		switch pr.Region {
		case layout.RegionHeader:
			r.renderHeader(&buf, pr, n)
		case layout.RegionBody:
			r.renderBody(&buf, pr)
		default:
			r.renderNode(&buf, pr, n)
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *svgRenderer) renderNode(buf *bytes.Buffer, pr layout.PositionedRect, n *tree.Node) {
	fill := fillColor(n.IsDir(), n.Ext())
	if pr.Aggregate {
		fill = aggregateColor
	}
	fmt.Fprintf(buf, `  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill=%q stroke=%q stroke-width="1"/>`+"\n",
		pr.Rect.X, pr.Rect.Y, pr.Rect.W, pr.Rect.H, fill, strokeColor)

	if !r.labels && pr.Tier < layout.TierLabeled {
		return
	}
	label := n.Name
	if r.sizes || pr.Tier >= layout.TierPreview {
		label = fmt.Sprintf("%s (%s)", n.Name, formatBytes(n.Size))
	}
	fontSize := labelFontSize(pr.Rect.W, pr.Rect.H)
	if fontSize == 0 {
		return
	}
	fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" font-size="%.0f" font-family="sans-serif" fill=%q>%s</text>`+"\n",
		pr.Rect.X+3, pr.Rect.Y+fontSize+2, fontSize, textColor(n.IsDir()), escape(label))
}

func (r *svgRenderer) renderHeader(buf *bytes.Buffer, pr layout.PositionedRect, n *tree.Node) {
	fmt.Fprintf(buf, `  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill=%q stroke=%q stroke-width="0.5"/>`+"\n",
		pr.Rect.X, pr.Rect.Y, pr.Rect.W, pr.Rect.H, headerColor, strokeColor)
	fontSize := labelFontSize(pr.Rect.W, pr.Rect.H)
	if fontSize == 0 {
		return
	}
	fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" font-size="%.0f" font-family="monospace" fill="#141414">%s</text>`+"\n",
		pr.Rect.X+3, pr.Rect.Y+fontSize+1, fontSize, escape(n.Name))
}

func (r *svgRenderer) renderBody(buf *bytes.Buffer, pr layout.PositionedRect) {
	// Reserved space only; content comes from an external accessor.
	fmt.Fprintf(buf, `  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="#ffffff" fill-opacity="0.6"/>`+"\n",
		pr.Rect.X, pr.Rect.Y, pr.Rect.W, pr.Rect.H)
}

// labelFontSize picks a font size that fits the rectangle, or 0 when the
// rectangle is too small for any text.
func labelFontSize(w, h float64) float64 {
	size := h * 0.3
	if size > 13 {
		size = 13
	}
	if size < 7 || w < 24 {
		return 0
	}
	return size
}

func textColor(isDir bool) string {
	if isDir {
		return "#ffffff"
	}
	return "#141414"
}

// sceneSize returns the canvas dimensions covering every rectangle.
func sceneSize(rects []layout.PositionedRect) (w, h float64) {
	for _, pr := range rects {
		if right := pr.Rect.X + pr.Rect.W; right > w {
			w = right
		}
		if bottom := pr.Rect.Y + pr.Rect.H; bottom > h {
			h = bottom
		}
	}
	return w, h
}

// formatBytes renders a byte count in human units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// escape replaces XML-significant characters in labels.
func escape(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
