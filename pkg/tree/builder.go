package tree

import "github.com/google/uuid"

// Builder constructs a [Tree] incrementally. Nodes are appended to the
// arena in insertion order; child order under a parent is the order of
// Dir/File calls, which layout strategies rely on as the stable child
// order.
//
// A Builder is single-use: after Build the builder must not be reused.
type Builder struct {
	nodes   []Node
	version string
}

// NewBuilder creates a builder whose root is a directory with the given
// name and path. The tree's version token defaults to a fresh UUID; use
// [Builder.SetVersion] to supply an explicit token (e.g. in tests).
func NewBuilder(name, path string) *Builder {
	b := &Builder{version: uuid.NewString()}
	b.nodes = append(b.nodes, Node{
		Name:   name,
		Path:   path,
		Kind:   KindDir,
		Parent: None,
	})
	return b
}

// SetVersion overrides the tree's version token.
func (b *Builder) SetVersion(v string) { b.version = v }

// Root returns the root node's ID (always 0).
func (b *Builder) Root() NodeID { return 0 }

// Dir appends a directory node under parent and returns its ID.
func (b *Builder) Dir(parent NodeID, name, path string) NodeID {
	return b.add(parent, Node{Name: name, Path: path, Kind: KindDir})
}

// File appends a file node with the given byte size under parent and
// returns its ID.
func (b *Builder) File(parent NodeID, name, path string, size int64) NodeID {
	return b.add(parent, Node{Name: name, Path: path, Kind: KindFile, Size: size})
}

func (b *Builder) add(parent NodeID, n Node) NodeID {
	id := NodeID(len(b.nodes))
	n.Parent = parent
	if int(parent) < len(b.nodes) && parent >= 0 {
		n.Depth = b.nodes[parent].Depth + 1
		b.nodes[parent].Children = append(b.nodes[parent].Children, id)
	}
	b.nodes = append(b.nodes, n)
	return id
}

// SetTokens attaches an externally computed token count to a node.
// Unknown IDs are ignored.
func (b *Builder) SetTokens(id NodeID, tokens int64) {
	if id >= 0 && int(id) < len(b.nodes) {
		b.nodes[id].Tokens = tokens
	}
}

// AggregateSizes sets every directory's Size to the sum of its descendant
// file sizes. Nodes were appended parents-first, so a single reverse pass
// over the arena propagates sizes bottom-up.
func (b *Builder) AggregateSizes() {
	for i := len(b.nodes) - 1; i >= 0; i-- {
		n := &b.nodes[i]
		if n.Kind != KindDir {
			continue
		}
		var total int64
		for _, c := range n.Children {
			total += b.nodes[c].Size
		}
		n.Size = total
	}
}

// Build validates the assembled arena and returns the immutable Tree.
// The builder must not be used after Build.
func (b *Builder) Build() (*Tree, error) {
	t := &Tree{nodes: b.nodes, root: 0, version: b.version}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	b.nodes = nil
	return t, nil
}

// FromArena assembles a Tree from a pre-built arena, e.g. when importing a
// serialized snapshot. The arena is validated before use; ownership of the
// slice transfers to the returned Tree.
func FromArena(nodes []Node, root NodeID, version string) (*Tree, error) {
	if version == "" {
		version = uuid.NewString()
	}
	t := &Tree{nodes: nodes, root: root, version: version}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
