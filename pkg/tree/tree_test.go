package tree

import (
	"errors"
	"testing"
)

// buildSample constructs a small repository-shaped tree:
//
//	repo/
//	├── src/
//	│   ├── main.go (100)
//	│   └── util.go (50)
//	├── docs/
//	│   └── readme.md (30)
//	└── go.mod (20)
func buildSample(t *testing.T) *Tree {
	t.Helper()
	b := NewBuilder("repo", "repo")
	src := b.Dir(b.Root(), "src", "repo/src")
	b.File(src, "main.go", "repo/src/main.go", 100)
	b.File(src, "util.go", "repo/src/util.go", 50)
	docs := b.Dir(b.Root(), "docs", "repo/docs")
	b.File(docs, "readme.md", "repo/docs/readme.md", 30)
	b.File(b.Root(), "go.mod", "repo/go.mod", 20)
	b.AggregateSizes()

	tr, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return tr
}

func TestBuilderChildOrder(t *testing.T) {
	tr := buildSample(t)

	children := tr.Children(tr.Root())
	if len(children) != 3 {
		t.Fatalf("root children = %d, want 3", len(children))
	}

	wantNames := []string{"src", "docs", "go.mod"}
	for i, id := range children {
		if got := tr.MustNode(id).Name; got != wantNames[i] {
			t.Errorf("child[%d] = %q, want %q", i, got, wantNames[i])
		}
	}
}

func TestAggregateSizes(t *testing.T) {
	tr := buildSample(t)

	tests := []struct {
		path string
		want int64
	}{
		{"repo", 200},
		{"repo/src", 150},
		{"repo/docs", 30},
		{"repo/go.mod", 20},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id := tr.Find(tt.path)
			if id == None {
				t.Fatalf("Find(%q) = None", tt.path)
			}
			if got := tr.MustNode(id).Size; got != tt.want {
				t.Errorf("Size = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSubtreeMetrics(t *testing.T) {
	tr := buildSample(t)
	src := tr.Find("repo/src")

	if got := tr.SubtreeSize(src); got != 150 {
		t.Errorf("SubtreeSize(src) = %d, want 150", got)
	}
	if got := tr.SubtreeFiles(src); got != 2 {
		t.Errorf("SubtreeFiles(src) = %d, want 2", got)
	}
	if got := tr.SubtreeFiles(tr.Root()); got != 4 {
		t.Errorf("SubtreeFiles(root) = %d, want 4", got)
	}
}

func TestWalkPreOrder(t *testing.T) {
	tr := buildSample(t)

	var paths []string
	tr.Walk(tr.Root(), func(_ NodeID, n *Node) bool {
		paths = append(paths, n.Path)
		return true
	})

	want := []string{
		"repo",
		"repo/src",
		"repo/src/main.go",
		"repo/src/util.go",
		"repo/docs",
		"repo/docs/readme.md",
		"repo/go.mod",
	}
	if len(paths) != len(want) {
		t.Fatalf("Walk visited %d nodes, want %d", len(paths), len(want))
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("visit[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestWalkEarlyStop(t *testing.T) {
	tr := buildSample(t)

	var count int
	tr.Walk(tr.Root(), func(_ NodeID, _ *Node) bool {
		count++
		return count < 3
	})

	if count != 3 {
		t.Errorf("Walk visited %d nodes after stop, want 3", count)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		tree    Tree
		wantErr error
	}{
		{
			name:    "empty tree",
			tree:    Tree{},
			wantErr: ErrEmptyTree,
		},
		{
			name: "negative size",
			tree: Tree{
				nodes: []Node{{Name: "f", Kind: KindFile, Size: -1, Parent: None}},
			},
			wantErr: ErrNegativeSize,
		},
		{
			name: "child index out of range",
			tree: Tree{
				nodes: []Node{{Name: "d", Kind: KindDir, Parent: None, Children: []NodeID{7}}},
			},
			wantErr: ErrNodeOutOfRange,
		},
		{
			name: "file with children",
			tree: Tree{
				nodes: []Node{
					{Name: "f", Kind: KindFile, Parent: None, Children: []NodeID{1}},
					{Name: "g", Kind: KindFile},
				},
			},
			wantErr: ErrFileWithChildren,
		},
		{
			name: "node with two parents",
			tree: Tree{
				nodes: []Node{
					{Name: "root", Kind: KindDir, Parent: None, Children: []NodeID{1, 2}},
					{Name: "a", Kind: KindDir, Children: []NodeID{2}},
					{Name: "shared", Kind: KindFile},
				},
			},
			wantErr: ErrMultipleParents,
		},
		{
			name: "cycle",
			tree: Tree{
				nodes: []Node{
					{Name: "root", Kind: KindDir, Parent: None, Children: []NodeID{1}},
					{Name: "a", Kind: KindDir, Children: []NodeID{2}},
					{Name: "b", Kind: KindDir, Children: []NodeID{0}},
				},
			},
			wantErr: ErrCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.tree.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateOK(t *testing.T) {
	tr := buildSample(t)
	if err := tr.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestVersionUniquePerBuild(t *testing.T) {
	a := buildSample(t)
	b := buildSample(t)

	if a.Version() == "" {
		t.Fatal("Version() is empty")
	}
	if a.Version() == b.Version() {
		t.Error("two builds share a version token")
	}
}

func TestFromArenaValidates(t *testing.T) {
	nodes := []Node{
		{Name: "root", Kind: KindDir, Parent: None, Children: []NodeID{1}},
		{Name: "f", Kind: KindFile, Size: 1},
	}
	tr, err := FromArena(nodes, 0, "v1")
	if err != nil {
		t.Fatalf("FromArena() error = %v", err)
	}
	if tr.Version() != "v1" {
		t.Errorf("Version() = %q, want %q", tr.Version(), "v1")
	}

	bad := []Node{{Name: "f", Kind: KindFile, Size: -5, Parent: None}}
	if _, err := FromArena(bad, 0, ""); !errors.Is(err, ErrNegativeSize) {
		t.Errorf("FromArena() = %v, want %v", err, ErrNegativeSize)
	}
}

func TestNodeExt(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"go file", Node{Name: "main.go", Kind: KindFile}, "go"},
		{"uppercase normalized", Node{Name: "README.MD", Kind: KindFile}, "md"},
		{"no extension", Node{Name: "Makefile", Kind: KindFile}, ""},
		{"directory", Node{Name: "src.d", Kind: KindDir}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.Ext(); got != tt.want {
				t.Errorf("Ext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStats(t *testing.T) {
	tr := buildSample(t)
	s := tr.Stats()

	if s.Files != 4 {
		t.Errorf("Files = %d, want 4", s.Files)
	}
	if s.Dirs != 3 {
		t.Errorf("Dirs = %d, want 3", s.Dirs)
	}
	if s.TotalBytes != 200 {
		t.Errorf("TotalBytes = %d, want 200", s.TotalBytes)
	}
	if s.MaxDepth != 2 {
		t.Errorf("MaxDepth = %d, want 2", s.MaxDepth)
	}
	if s.ByExt["go"] != 2 {
		t.Errorf(`ByExt["go"] = %d, want 2`, s.ByExt["go"])
	}
	if s.ByExt["md"] != 1 {
		t.Errorf(`ByExt["md"] = %d, want 1`, s.ByExt["md"])
	}
}
