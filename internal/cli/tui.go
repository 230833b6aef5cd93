package cli

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/treescope/pkg/engine"
	"github.com/matzehuels/treescope/pkg/geom"
	"github.com/matzehuels/treescope/pkg/layout"
	"github.com/matzehuels/treescope/pkg/render"
	"github.com/matzehuels/treescope/pkg/snapshot"
	"github.com/matzehuels/treescope/pkg/tree"
)

// tuiCommand creates the tui command for browsing a snapshot interactively.
func (c *CLI) tuiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui [tree.json]",
		Short: "Browse a tree snapshot as an interactive treemap",
		Long: `Browse a tree snapshot as an interactive treemap.

Controls:
  ←↓↑→ / hjkl   move selection
  enter         descend into the selected directory
  backspace     climb back to the parent
  + / -         zoom in / out
  g t f d a     switch strategy (grid, treemap, force, detailed, auto)
  q             quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd.Context(), args[0])
		},
	}
}

// runTUI loads the snapshot and runs the bubbletea program.
func (c *CLI) runTUI(ctx context.Context, input string) error {
	cfg, err := c.loadConfig()
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

	model := newMapModel(t, eng)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	return err
}

// =============================================================================
// MapModel - Interactive treemap browsing
// =============================================================================

// Status bar styles.
var (
	mapStatusStyle = lipgloss.NewStyle().Foreground(colorWhite)
	mapHelpStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// zoomStep is the zoom change per keypress, matching the quarter-zoom
// cache buckets so repeated presses stay cache-friendly.
const zoomStep = 0.25

// MapModel is the bubbletea model for the treemap browser.
type MapModel struct {
	tree *tree.Tree
	eng  *engine.Engine

	focus    tree.NodeID // layout root
	selected tree.NodeID // highlighted rect
	zoom     float64
	kind     layout.Kind

	width  int
	height int
	frame  *engine.Result
	err    error
}

// newMapModel creates a browser rooted at the tree root.
func newMapModel(t *tree.Tree, eng *engine.Engine) MapModel {
	return MapModel{
		tree:     t,
		eng:      eng,
		focus:    t.Root(),
		selected: t.Root(),
		zoom:     layout.MinZoom,
		kind:     layout.KindAuto,
	}
}

func (m MapModel) Init() tea.Cmd {
	return nil
}

func (m MapModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recompute()
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "+", "=":
			m.zoom = layout.ClampZoom(m.zoom + zoomStep)
			m.recompute()
		case "-", "_":
			m.zoom = layout.ClampZoom(m.zoom - zoomStep)
			m.recompute()
		case "g":
			m.setKind(layout.KindGrid)
		case "t":
			m.setKind(layout.KindTreemap)
		case "f":
			m.setKind(layout.KindForce)
		case "d":
			m.setKind(layout.KindDetailed)
		case "a":
			m.setKind(layout.KindAuto)
		case "up", "k":
			m.moveSelection(0, -1)
		case "down", "j":
			m.moveSelection(0, 1)
		case "left", "h":
			m.moveSelection(-1, 0)
		case "right", "l":
			m.moveSelection(1, 0)
		case "enter":
			m.descend()
		case "backspace", "esc":
			m.climb()
		}
	}
	return m, nil
}

// setKind switches the layout strategy and recomputes the frame.
func (m *MapModel) setKind(k layout.Kind) {
	m.kind = k
	m.recompute()
}

// descend focuses the selected directory.
func (m *MapModel) descend() {
	if m.selected == tree.None {
		return
	}
	n, err := m.tree.Node(m.selected)
	if err != nil || !n.IsDir() || m.selected == m.focus {
		return
	}
	m.focus = m.selected
	m.recompute()
}

// climb focuses the parent of the current focus.
func (m *MapModel) climb() {
	parent := m.tree.Parent(m.focus)
	if parent == tree.None {
		return
	}
	m.selected = m.focus
	m.focus = parent
	m.recompute()
}

// recompute asks the engine for a fresh frame at the current viewport.
// The engine memoizes per (focus, viewport, zoom, kind), so zoom
// gestures and back-and-forth navigation are cheap.
func (m *MapModel) recompute() {
	w, h := m.canvasSize()
	if w <= 0 || h <= 0 {
		return
	}
	frame, err := m.eng.Compute(context.Background(), engine.Request{
		Root:   m.focus,
		Bounds: geom.Rect{W: float64(w), H: float64(h)},
		Zoom:   m.zoom,
		Kind:   m.kind,
	})
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.frame = frame
	if !m.selectionVisible() {
		m.selected = m.focus
	}
}

// canvasSize is the map area, reserving two rows for status and help.
func (m *MapModel) canvasSize() (w, h int) {
	return m.width, m.height - 2
}

// selectionVisible reports whether the selected node has a rect in the
// current frame.
func (m *MapModel) selectionVisible() bool {
	if m.frame == nil {
		return false
	}
	for _, pr := range m.frame.Rects {
		if pr.Region == layout.RegionNode && pr.Node == m.selected {
			return true
		}
	}
	return false
}

// moveSelection walks the selection to the nearest rect in the given
// direction, measured center to center.
func (m *MapModel) moveSelection(dx, dy int) {
	if m.frame == nil {
		return
	}
	cur, ok := m.rectFor(m.selected)
	if !ok {
		m.selected = m.focus
		return
	}
	cx := cur.Rect.X + cur.Rect.W/2
	cy := cur.Rect.Y + cur.Rect.H/2

	best := tree.None
	bestDist := math.Inf(1)
	for _, pr := range m.frame.Rects {
		if pr.Region != layout.RegionNode || pr.Node == m.selected {
			continue
		}
		px := pr.Rect.X + pr.Rect.W/2
		py := pr.Rect.Y + pr.Rect.H/2
		if dx > 0 && px <= cx || dx < 0 && px >= cx {
			continue
		}
		if dy > 0 && py <= cy || dy < 0 && py >= cy {
			continue
		}
		// Weight the off-axis distance so motion feels directional.
		ax, ay := math.Abs(px-cx), math.Abs(py-cy)
		var dist float64
		if dx != 0 {
			dist = ax + 2*ay
		} else {
			dist = ay + 2*ax
		}
		if dist < bestDist {
			bestDist = dist
			best = pr.Node
		}
	}
	if best != tree.None {
		m.selected = best
	}
}

// rectFor finds the node rect for id in the current frame.
func (m *MapModel) rectFor(id tree.NodeID) (layout.PositionedRect, bool) {
	for _, pr := range m.frame.Rects {
		if pr.Region == layout.RegionNode && pr.Node == id {
			return pr, true
		}
	}
	return layout.PositionedRect{}, false
}

func (m MapModel) View() string {
	if m.width == 0 {
		return "loading..."
	}
	if m.err != nil {
		return StyleWarning.Render("layout error: "+m.err.Error()) + "\n" + m.helpLine()
	}
	if m.frame == nil {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderMap())
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

// renderMap paints the frame's rectangles into a character grid and
// styles each run of cells with its node's fill color.
func (m MapModel) renderMap() string {
	w, h := m.canvasSize()
	if w <= 0 || h <= 0 {
		return ""
	}
	grid := make([][]paintedCell, h)
	for y := range grid {
		grid[y] = make([]paintedCell, w)
		for x := range grid[y] {
			grid[y][x] = paintedCell{ch: ' ', node: tree.None}
		}
	}

	// Rects arrive parents before children, so painting in order lets
	// children overwrite their parent's interior.
	for _, pr := range m.frame.Rects {
		if pr.Region != layout.RegionNode {
			continue
		}
		m.paintRect(grid, pr)
	}

	var b strings.Builder
	for y := 0; y < h; y++ {
		x := 0
		for x < w {
			run := 1
			for x+run < w && grid[y][x+run].sameStyle(grid[y][x]) {
				run++
			}
			var chars strings.Builder
			for i := 0; i < run; i++ {
				chars.WriteRune(grid[y][x+i].ch)
			}
			b.WriteString(m.styleFor(grid[y][x]).Render(chars.String()))
			x += run
		}
		b.WriteString("\n")
	}
	return b.String()
}

// paintedCell is one terminal cell of the map canvas.
type paintedCell struct {
	ch        rune
	node      tree.NodeID
	fill      string
	selected  bool
	aggregate bool
}

// sameStyle reports whether two cells can share one styled run.
func (c paintedCell) sameStyle(o paintedCell) bool {
	return c.fill == o.fill && c.selected == o.selected
}

// paintRect fills the rect's cells and writes its label when it fits.
func (m MapModel) paintRect(grid [][]paintedCell, pr layout.PositionedRect) {
	h := len(grid)
	if h == 0 {
		return
	}
	w := len(grid[0])

	x0 := clampInt(int(pr.Rect.X), 0, w)
	y0 := clampInt(int(pr.Rect.Y), 0, h)
	x1 := clampInt(int(pr.Rect.X+pr.Rect.W), 0, w)
	y1 := clampInt(int(pr.Rect.Y+pr.Rect.H), 0, h)
	if x1 <= x0 || y1 <= y0 {
		return
	}

	n := m.tree.MustNode(pr.Node)
	fill := render.Color(n.IsDir(), n.Ext())
	if pr.Aggregate {
		fill = render.AggregateColor()
	}
	cell := paintedCell{
		ch:        ' ',
		node:      pr.Node,
		fill:      fill,
		selected:  pr.Node == m.selected,
		aggregate: pr.Aggregate,
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			grid[y][x] = cell
		}
	}

	label := []rune(n.Name)
	if pr.Aggregate {
		label = append(label, ' ', '…')
	}
	if pr.Tier >= layout.TierLabeled && x1-x0 >= len(label)+2 {
		for i, r := range label {
			c := cell
			c.ch = r
			grid[y0][x0+1+i] = c
		}
	}
}

// styleFor maps a painted cell onto a lipgloss style.
func (m MapModel) styleFor(c paintedCell) lipgloss.Style {
	if c.node == tree.None {
		return lipgloss.NewStyle()
	}
	style := lipgloss.NewStyle().Background(lipgloss.Color(c.fill)).Foreground(lipgloss.Color("232"))
	if c.selected {
		style = style.Reverse(true).Bold(true)
	}
	return style
}

// statusLine summarizes the selection, zoom, and strategy.
func (m MapModel) statusLine() string {
	n := m.tree.MustNode(m.selected)
	size := n.Size
	detail := ""
	if n.IsDir() {
		size = m.tree.SubtreeSize(m.selected)
		detail = fmt.Sprintf(", %d files", m.tree.SubtreeFiles(m.selected))
	}

	left := mapStatusStyle.Render(fmt.Sprintf(" %s (%s%s)", n.Path, formatBytes(size), detail))
	right := StyleDim.Render(fmt.Sprintf("zoom %.2f · %s · %s ", m.zoom, m.frame.LOD.Strategy, m.frame.LOD.Tier))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// helpLine lists the key bindings.
func (m MapModel) helpLine() string {
	return mapHelpStyle.Render(" ←↓↑→ move · ⏎ open · ⌫ up · +/- zoom · g/t/f/d/a strategy · q quit")
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
