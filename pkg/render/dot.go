package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/treescope/pkg/errors"
	"github.com/matzehuels/treescope/pkg/layout"
	"github.com/matzehuels/treescope/pkg/tree"
)

// ToDOT flattens the visible scene into a Graphviz DOT graph: one box
// per node rectangle, one edge per visible parent-child pair. Header and
// body regions are skipped; they duplicate their owner node.
//
// The resulting DOT string can be rendered with [RenderDOTSVG] or
// [RenderDOTPNG].
func ToDOT(t *tree.Tree, rects []layout.PositionedRect) string {
	var buf bytes.Buffer
	buf.WriteString("digraph tree {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=12, margin=\"0.15,0.08\"];\n")
	buf.WriteString("\n")

	visible := make(map[tree.NodeID]bool, len(rects))
	for _, pr := range rects {
		if pr.Region != layout.RegionNode || visible[pr.Node] {
			continue
		}
		visible[pr.Node] = true
		n := t.MustNode(pr.Node)
		label := n.Name
		if pr.Aggregate {
			label = fmt.Sprintf("%s\n(%s, collapsed)", n.Name, formatBytes(n.Size))
		}
		fmt.Fprintf(&buf, "  n%d [label=%q, fillcolor=%q];\n",
			pr.Node, label, fillColor(n.IsDir(), n.Ext()))
	}

	buf.WriteString("\n")
	for _, pr := range rects {
		if pr.Region != layout.RegionNode {
			continue
		}
		if p := t.Parent(pr.Node); p != tree.None && visible[p] {
			fmt.Fprintf(&buf, "  n%d -> n%d;\n", p, pr.Node)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderDOTSVG rasterizes a DOT graph to SVG via Graphviz.
func RenderDOTSVG(ctx context.Context, dot string) ([]byte, error) {
	return renderDOT(ctx, dot, graphviz.SVG)
}

// RenderDOTPNG rasterizes a DOT graph to PNG via Graphviz.
func RenderDOTPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderDOT(ctx, dot, graphviz.PNG)
}

func renderDOT(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "render %s", format)
	}
	return buf.Bytes(), nil
}
