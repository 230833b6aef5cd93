package tree

// Stats summarizes a tree for display and for sizing heuristics.
type Stats struct {
	Files      int            // number of file nodes
	Dirs       int            // number of directory nodes (including the root)
	TotalBytes int64          // sum of all file sizes
	MaxDepth   int            // deepest node's depth (root = 0)
	ByExt      map[string]int // file count per lowercased extension
}

// Stats walks the whole tree and returns aggregate statistics.
func (t *Tree) Stats() Stats {
	s := Stats{ByExt: make(map[string]int)}
	t.Walk(t.root, func(_ NodeID, n *Node) bool {
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}
		if n.Kind == KindDir {
			s.Dirs++
			return true
		}
		s.Files++
		s.TotalBytes += n.Size
		if ext := n.Ext(); ext != "" {
			s.ByExt[ext]++
		}
		return true
	})
	return s
}
