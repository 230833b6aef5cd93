package snapshot

import (
	"bytes"
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/treescope/pkg/errors"
	"github.com/matzehuels/treescope/pkg/geom"
	"github.com/matzehuels/treescope/pkg/layout"
	"github.com/matzehuels/treescope/pkg/tree"
)

func buildSample(t *testing.T) *tree.Tree {
	t.Helper()
	b := tree.NewBuilder("repo", "repo")
	b.SetVersion("snap-v1")
	src := b.Dir(0, "src", "repo/src")
	m := b.File(src, "main.go", "repo/src/main.go", 2048)
	b.SetTokens(m, 512)
	b.File(0, "go.mod", "repo/go.mod", 100)
	b.AggregateSizes()
	tr, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return tr
}

func TestTreeRoundTrip(t *testing.T) {
	orig := buildSample(t)

	var buf bytes.Buffer
	if err := WriteTree(orig, &buf); err != nil {
		t.Fatalf("WriteTree() error: %v", err)
	}
	got, err := ReadTree(&buf)
	if err != nil {
		t.Fatalf("ReadTree() error: %v", err)
	}

	if got.Version() != orig.Version() {
		t.Errorf("Version = %q, want %q", got.Version(), orig.Version())
	}
	if got.Len() != orig.Len() {
		t.Fatalf("Len = %d, want %d", got.Len(), orig.Len())
	}
	for i := 0; i < orig.Len(); i++ {
		id := tree.NodeID(i)
		a, b := orig.MustNode(id), got.MustNode(id)
		if a.Name != b.Name || a.Path != b.Path || a.Kind != b.Kind ||
			a.Size != b.Size || a.Tokens != b.Tokens || a.Depth != b.Depth ||
			a.Parent != b.Parent || !reflect.DeepEqual(a.Children, b.Children) {
			t.Errorf("node %d differs after round trip:\n got %+v\nwant %+v", i, *b, *a)
		}
	}
}

func TestTreeWireFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTree(buildSample(t), &buf); err != nil {
		t.Fatalf("WriteTree() error: %v", err)
	}
	s := buf.String()

	for _, want := range []string{
		`"version": "snap-v1"`,
		`"kind": "dir"`,
		`"kind": "file"`,
		`"name": "main.go"`,
		`"tokens": 512`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("wire output missing %s", want)
		}
	}
	// The root has no parent field at all.
	if strings.Contains(strings.SplitN(s, "}", 2)[0], `"parent"`) {
		t.Error("root node carries a parent field")
	}
}

func TestReadTreeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"garbage", "not json"},
		{"unknown kind", `{"version":"v","root":0,"nodes":[{"name":"r","kind":"link"}]}`},
		{"bad child ref", `{"version":"v","root":0,"nodes":[{"name":"r","kind":"dir","children":[5]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTree(strings.NewReader(tt.in))
			if errors.GetCode(err) != errors.ErrCodeInvalidInput {
				t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
			}
		})
	}
}

func TestExportImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	orig := buildSample(t)

	if err := ExportFile(orig, path); err != nil {
		t.Fatalf("ExportFile() error: %v", err)
	}
	got, err := ImportFile(path)
	if err != nil {
		t.Fatalf("ImportFile() error: %v", err)
	}
	if got.Len() != orig.Len() || got.Version() != orig.Version() {
		t.Errorf("imported tree = (%d nodes, %q), want (%d, %q)",
			got.Len(), got.Version(), orig.Len(), orig.Version())
	}

	if _, err := ImportFile(filepath.Join(t.TempDir(), "missing.json")); errors.GetCode(err) != errors.ErrCodeStoreFailed {
		t.Errorf("ImportFile(missing) code = %v, want %v", errors.GetCode(err), errors.ErrCodeStoreFailed)
	}
}

func TestWriteScene(t *testing.T) {
	tr := buildSample(t)
	rects, err := layout.Compute(context.Background(), tr, tr.Root(),
		geom.Rect{W: 400, H: 300}, layout.Params{Kind: layout.KindTreemap, Zoom: 2.2})
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteScene(&buf, tr.Version(), 2.2, layout.KindTreemap, rects); err != nil {
		t.Fatalf("WriteScene() error: %v", err)
	}
	s := buf.String()
	for _, want := range []string{
		`"version": "snap-v1"`,
		`"kind": "treemap"`,
		`"tier": "labeled"`,
		`"rects"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("scene output missing %s", want)
		}
	}
}
