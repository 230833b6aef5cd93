package render

// Fill colors by file extension. Unknown extensions fall back to a
// neutral grey; directories get a steel blue.
var extColors = map[string]string{
	"rs":   "#fa6464",
	"go":   "#64b4fa",
	"js":   "#f0dc64",
	"py":   "#64c896",
	"md":   "#9696fa",
	"txt":  "#c8c8c8",
	"json": "#fa9664",
}

const (
	dirColor         = "#4682b4" // steel blue
	defaultFileColor = "#b4b4b4"
	strokeColor      = "#323232"
	headerColor      = "#f0f0f0"
	aggregateColor   = "#5a7a9a"
)

// Color returns the hex fill color for a node, keyed by kind and
// extension. The terminal browser shares this palette with the SVG
// renderer so both views agree on what each hue means.
func Color(isDir bool, ext string) string {
	return fillColor(isDir, ext)
}

// AggregateColor is the fill for collapsed subtrees.
func AggregateColor() string { return aggregateColor }

// fillColor returns the fill for a node given its extension.
func fillColor(isDir bool, ext string) string {
	if isDir {
		return dirColor
	}
	if c, ok := extColors[ext]; ok {
		return c
	}
	return defaultFileColor
}
