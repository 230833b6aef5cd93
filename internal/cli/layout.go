package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/treescope/pkg/cache"
	"github.com/matzehuels/treescope/pkg/config"
	"github.com/matzehuels/treescope/pkg/engine"
	"github.com/matzehuels/treescope/pkg/errors"
	"github.com/matzehuels/treescope/pkg/geom"
	"github.com/matzehuels/treescope/pkg/layout"
	"github.com/matzehuels/treescope/pkg/render"
	"github.com/matzehuels/treescope/pkg/snapshot"
	"github.com/matzehuels/treescope/pkg/tree"
)

// Output formats supported by the layout command.
const (
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatPNG  = "png"
)

const (
	defaultWidth  = 1280 // default viewport width
	defaultHeight = 800  // default viewport height
)

// layoutOpts holds the command-line flags for the layout command.
type layoutOpts struct {
	output  string  // output file path (default: <input>.<format>)
	format  string  // output format: json, svg, dot, png
	kind    string  // strategy: auto, grid, treemap, force, detailed
	zoom    float64 // zoom scalar
	width   float64 // viewport width in pixels
	height  float64 // viewport height in pixels
	root    string  // tree-relative path of the focus node
	hit     string  // "x,y" point to hit-test instead of exporting
	labels  bool    // force labels in SVG output regardless of tier
	noCache bool    // disable artifact caching
}

// layoutCommand creates the layout command for computing scene exports.
func (c *CLI) layoutCommand() *cobra.Command {
	opts := layoutOpts{
		format: FormatJSON,
		kind:   layout.KindAuto.String(),
		zoom:   layout.MinZoom,
		width:  defaultWidth,
		height: defaultHeight,
	}

	cmd := &cobra.Command{
		Use:   "layout [tree.json]",
		Short: "Compute a layout frame from a tree snapshot",
		Long: `Compute a layout frame from a tree snapshot.

The layout command takes a snapshot file (produced by 'scan') and computes
the screen rectangles for one frame at the given zoom and viewport. The
scene can be exported as JSON, SVG, DOT, or PNG.

Rendered SVG and PNG artifacts are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>.<format>)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: json (default), svg, dot, png")
	cmd.Flags().StringVarP(&opts.kind, "kind", "k", opts.kind, "strategy: auto (default), grid, treemap, force, detailed")
	cmd.Flags().Float64Var(&opts.zoom, "zoom", opts.zoom, "zoom level")
	cmd.Flags().Float64Var(&opts.width, "width", opts.width, "viewport width")
	cmd.Flags().Float64Var(&opts.height, "height", opts.height, "viewport height")
	cmd.Flags().StringVar(&opts.root, "root", "", "focus node path relative to the scanned root")
	cmd.Flags().StringVar(&opts.hit, "hit", "", "hit-test a point ('x,y') instead of exporting")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "always draw labels in SVG output")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

// runLayout loads the snapshot, computes the frame, and writes the output.
func (c *CLI) runLayout(ctx context.Context, input string, opts layoutOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	kind, err := layout.ParseKind(opts.kind)
	if err != nil {
		return err
	}

	t, err := snapshot.ImportFile(input)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", input, err)
	}

	eng, err := c.newEngine(cfg, t)
	if err != nil {
		return err
	}

	focus := tree.None
	if opts.root != "" {
		focus = t.Find(opts.root)
		if focus == tree.None {
			return errors.New(errors.ErrCodeNotFound, "no node at path %q", opts.root)
		}
	}

	req := engine.Request{
		Root:   focus,
		Bounds: geom.Rect{W: opts.width, H: opts.height},
		Zoom:   opts.zoom,
		Kind:   kind,
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Computing %s layout...", kind))
	spinner.Start()

	res, err := eng.Compute(ctx, req)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if opts.hit != "" {
		return c.printHit(t, eng, opts.hit)
	}

	data, err := c.exportScene(ctx, cfg, t, res, req, opts)
	if err != nil {
		return err
	}

	outputPath := opts.output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + "." + opts.format
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	stats := t.Stats()
	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(stats.Files, stats.Dirs, res.Stats.RectCount, res.CacheInfo.Hit)
	printDetail("tier %s, depth limit %d", res.LOD.Tier, res.LOD.DepthLimit)
	printNewline()
	printNextStep("Browse", "treescope tui "+input)

	return nil
}

// exportScene serializes the computed frame in the requested format,
// consulting the artifact cache for rendered outputs.
func (c *CLI) exportScene(ctx context.Context, cfg config.Config, t *tree.Tree, res *engine.Result, req engine.Request, opts layoutOpts) ([]byte, error) {
	switch opts.format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := snapshot.WriteScene(&buf, t.Version(), req.Zoom, res.LOD.Strategy, res.Rects); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatDOT:
		return []byte(render.ToDOT(t, res.Rects)), nil
	case FormatSVG, FormatPNG:
		// fall through to the cached render below
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want json, svg, dot, or png)", opts.format)
	}

	store, err := newCache(ctx, cfg.Cache, opts.noCache)
	if err != nil {
		c.Logger.Warnf("Artifact cache unavailable: %v", err)
		store = cache.NewNullCache()
	}
	defer store.Close()

	keyer := cache.NewDefaultKeyer()
	sceneKey := keyer.SceneKey(t.Version(), cache.SceneKeyOpts{
		Root:       int32(req.Root),
		Kind:       res.LOD.Strategy.String(),
		ZoomBucket: res.LOD.ZoomBucket,
		ViewportW:  int(req.Bounds.W),
		ViewportH:  int(req.Bounds.H),
		DepthLimit: res.LOD.DepthLimit,
	})
	key := keyer.ArtifactKey(cache.Hash([]byte(sceneKey)), cache.ArtifactKeyOpts{
		Format: opts.format,
		Width:  req.Bounds.W,
		Height: req.Bounds.H,
	})
	// Label forcing changes the artifact but not the scene.
	if opts.labels {
		key += ":labeled"
	}

	if data, ok, err := store.Get(ctx, key); err == nil && ok {
		c.Logger.Debugf("artifact cache hit for %s", opts.format)
		return data, nil
	}

	data, err := c.renderScene(ctx, t, res, opts)
	if err != nil {
		return nil, err
	}
	if err := store.Set(ctx, key, data, cache.TTLArtifact); err != nil {
		c.Logger.Warnf("Artifact cache write failed: %v", err)
	}
	return data, nil
}

// renderScene produces the SVG or PNG bytes for a computed frame.
func (c *CLI) renderScene(ctx context.Context, t *tree.Tree, res *engine.Result, opts layoutOpts) ([]byte, error) {
	if opts.format == FormatSVG {
		var svgOpts []render.SVGOption
		if opts.labels {
			svgOpts = append(svgOpts, render.WithLabels())
		}
		return render.SVG(t, res.Rects, svgOpts...), nil
	}
	return render.RenderDOTPNG(ctx, render.ToDOT(t, res.Rects))
}

// printHit runs a hit test against the computed frame and prints the
// node under the point.
func (c *CLI) printHit(t *tree.Tree, eng *engine.Engine, spec string) error {
	x, y, err := parsePoint(spec)
	if err != nil {
		return err
	}

	id, ok := eng.HitTest(geom.Point{X: x, Y: y})
	if !ok {
		printInfo("Nothing at (%.0f, %.0f)", x, y)
		return nil
	}

	n := t.MustNode(id)
	printSuccess("Hit %s", n.Name)
	printKeyValue("path", n.Path)
	printKeyValue("kind", n.Kind.String())
	if !n.IsDir() {
		printKeyValue("size", formatBytes(n.Size))
	} else {
		printKeyValue("size", formatBytes(t.SubtreeSize(id)))
		printKeyValue("files", strconv.Itoa(t.SubtreeFiles(id)))
	}
	return nil
}

// parsePoint parses an "x,y" flag value.
func parsePoint(spec string) (x, y float64, err error) {
	parts := strings.SplitN(spec, ",", 2)
	if len(parts) != 2 {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "point must be 'x,y', got %q", spec)
	}
	x, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "point must be 'x,y', got %q", spec)
	}
	y, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "point must be 'x,y', got %q", spec)
	}
	return x, y, nil
}
