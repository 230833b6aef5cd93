// Package tree provides the filesystem tree model consumed by the layout
// engine.
//
// The tree is stored as an index-based arena: nodes live in a flat slice and
// reference each other by integer NodeID, with children held as ordered ID
// lists and parents as plain back-reference indices. This avoids pointer
// cycles entirely and keeps the whole structure trivially serializable.
//
// Trees are built once through a [Builder] and are immutable afterwards.
// When the underlying filesystem is re-scanned or the filter set changes,
// callers construct a new Tree (with a new Version token) and replace the
// old one wholesale; consumers detect the swap via [Tree.Version].
package tree

import (
	"errors"
	"path"
	"strings"
)

var (
	// ErrEmptyTree is returned by [Tree.Validate] when the tree has no nodes.
	ErrEmptyTree = errors.New("tree has no nodes")

	// ErrNodeOutOfRange is returned when a NodeID does not index a node in
	// the arena. This indicates arena corruption or a stale ID.
	ErrNodeOutOfRange = errors.New("node ID out of range")

	// ErrNegativeSize is returned by [Tree.Validate] when a node carries a
	// negative byte size. Sizes must be non-negative.
	ErrNegativeSize = errors.New("node has negative size")

	// ErrMultipleParents is returned by [Tree.Validate] when a node is
	// listed as a child of more than one parent. Every node except the
	// root must have exactly one parent.
	ErrMultipleParents = errors.New("node has multiple parents")

	// ErrCycle is returned by [Tree.Validate] when the child lists form a
	// cycle. Cycles are detected using depth-first search with
	// white/gray/black coloring.
	ErrCycle = errors.New("tree contains a cycle")

	// ErrFileWithChildren is returned by [Tree.Validate] when a file node
	// has a non-empty child list.
	ErrFileWithChildren = errors.New("file node has children")
)

// NodeID identifies a node by its index in the tree's arena.
type NodeID int32

// None is the sentinel NodeID for "no node" (e.g. the root's parent).
const None NodeID = -1

// Kind distinguishes directories from files.
type Kind int

const (
	// KindDir is a directory entry; its Children list may be non-empty.
	KindDir Kind = iota
	// KindFile is a file entry; its Children list is always empty.
	KindFile
)

// String returns "dir" or "file".
func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// Node is one filesystem entry in the arena.
//
// Path is the node's stable identity: it survives re-scans as long as the
// entry itself does, so collaborators can correlate nodes across tree
// versions. Size is the entry's byte size; for directories it holds the
// aggregated subtree size after [Tree.AggregateSizes]. Tokens is an
// optional metric supplied by an external counter (zero when absent).
type Node struct {
	Name     string
	Path     string
	Kind     Kind
	Size     int64
	Tokens   int64
	Depth    int
	Parent   NodeID
	Children []NodeID
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n.Kind == KindDir }

// Ext returns the node's lowercased file extension without the dot,
// or "" for directories and extensionless files.
func (n *Node) Ext() string {
	if n.Kind == KindDir {
		return ""
	}
	ext := path.Ext(n.Name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Tree is an immutable arena of nodes rooted at a single node.
//
// The zero value is not usable - use a [Builder] to construct a valid tree.
// Tree is safe for concurrent reads; it is never mutated after Build.
type Tree struct {
	nodes   []Node
	root    NodeID
	version string
}

// Version returns the tree's opaque version token. The token is unique per
// constructed tree, so cached results keyed on it never leak across
// re-scans.
func (t *Tree) Version() string { return t.version }

// Root returns the root node's ID.
func (t *Tree) Root() NodeID { return t.root }

// Len returns the total number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node with the given ID. The returned pointer references
// the arena directly and must be treated as read-only.
func (t *Tree) Node(id NodeID) (*Node, error) {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil, ErrNodeOutOfRange
	}
	return &t.nodes[id], nil
}

// MustNode returns the node with the given ID and panics if the ID is out
// of range. Use only with IDs obtained from this tree.
func (t *Tree) MustNode(id NodeID) *Node {
	n, err := t.Node(id)
	if err != nil {
		panic(err)
	}
	return n
}

// Children returns the ordered child IDs of the given node.
// The returned slice must be treated as read-only.
func (t *Tree) Children(id NodeID) []NodeID {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id].Children
}

// Parent returns the parent ID of the given node, or [None] for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	if id < 0 || int(id) >= len(t.nodes) {
		return None
	}
	return t.nodes[id].Parent
}

// Find returns the ID of the node with the given path, or [None] if no
// such node exists. Lookup is O(n); callers doing repeated lookups should
// build their own index.
func (t *Tree) Find(p string) NodeID {
	for i := range t.nodes {
		if t.nodes[i].Path == p {
			return NodeID(i)
		}
	}
	return None
}

// Walk visits the subtree rooted at id in depth-first pre-order, calling
// fn for each node. If fn returns false the walk stops early.
func (t *Tree) Walk(id NodeID, fn func(NodeID, *Node) bool) {
	if id < 0 || int(id) >= len(t.nodes) {
		return
	}
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[cur]
		if !fn(cur, n) {
			return
		}
		// Push children in reverse so they pop in child order.
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// SubtreeSize returns the aggregated byte size of the subtree rooted at id.
// If [Tree.AggregateSizes] has run, this is a direct field read for
// directories; otherwise the subtree is summed on the fly.
func (t *Tree) SubtreeSize(id NodeID) int64 {
	n, err := t.Node(id)
	if err != nil {
		return 0
	}
	if n.Kind == KindFile || n.Size > 0 {
		return n.Size
	}
	var total int64
	t.Walk(id, func(_ NodeID, m *Node) bool {
		if m.Kind == KindFile {
			total += m.Size
		}
		return true
	})
	return total
}

// SubtreeFiles returns the number of file nodes in the subtree rooted at id.
func (t *Tree) SubtreeFiles(id NodeID) int {
	var count int
	t.Walk(id, func(_ NodeID, n *Node) bool {
		if n.Kind == KindFile {
			count++
		}
		return true
	})
	return count
}

// Validate checks structural integrity and returns nil if the tree is valid.
// It verifies:
//
//  1. The tree is non-empty and the root ID is in range
//  2. Every child ID indexes an existing node
//  3. No node is listed as a child of two parents
//  4. File nodes have no children
//  5. No node carries a negative size
//  6. The child lists are acyclic
//
// Use this before layout: silently continuing on a malformed tree risks
// infinite recursion.
func (t *Tree) Validate() error {
	if len(t.nodes) == 0 {
		return ErrEmptyTree
	}
	if t.root < 0 || int(t.root) >= len(t.nodes) {
		return ErrNodeOutOfRange
	}

	seen := make([]bool, len(t.nodes))
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.Size < 0 {
			return ErrNegativeSize
		}
		if n.Kind == KindFile && len(n.Children) > 0 {
			return ErrFileWithChildren
		}
		for _, c := range n.Children {
			if c < 0 || int(c) >= len(t.nodes) {
				return ErrNodeOutOfRange
			}
			if seen[c] {
				return ErrMultipleParents
			}
			seen[c] = true
		}
	}

	return t.detectCycles()
}

func (t *Tree) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(t.nodes))
	var hasCycle bool

	var dfs func(id NodeID)
	dfs = func(id NodeID) {
		color[id] = gray
		for _, child := range t.nodes[id].Children {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				hasCycle = true
				return
			}
			if hasCycle {
				return
			}
		}
		color[id] = black
	}

	for i := range t.nodes {
		if color[i] == white {
			dfs(NodeID(i))
			if hasCycle {
				return ErrCycle
			}
		}
	}
	return nil
}
