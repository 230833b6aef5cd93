// Package snapshot provides the JSON wire form of trees and layout
// scenes.
//
// # Overview
//
// A tree snapshot is a flat node array plus the root index and version
// token, mirroring the in-memory arena. The format is designed for:
//
//   - Persisting scans so layouts can be recomputed without rescanning
//   - Shipping trees between the CLI, the HTTP server, and external tools
//   - Round-trip preservation: export then import yields an equal tree
//
// The wire structs carry both json and bson tags: the HTTP server's Mongo
// store persists the same document shape the JSON export writes.
//
// # Tree Format
//
//	{
//	  "version": "0b54…",
//	  "root": 0,
//	  "nodes": [
//	    {"name": "repo", "path": "/work/repo", "kind": "dir", "children": [1]},
//	    {"name": "main.go", "path": "/work/repo/main.go", "kind": "file",
//	     "size": 2048, "depth": 1, "parent": 0}
//	  ]
//	}
//
// # Scene Format
//
// [WriteScene] exports computed geometry for external renderers: the tree
// version plus one record per rectangle with position, tier, region, and
// z-order.
package snapshot

import (
	"encoding/json"
	"io"
	"os"

	"github.com/matzehuels/treescope/pkg/errors"
	"github.com/matzehuels/treescope/pkg/layout"
	"github.com/matzehuels/treescope/pkg/tree"
)

// TreeDoc is the wire form of a whole tree.
type TreeDoc struct {
	Version string    `json:"version" bson:"version"`
	Root    int32     `json:"root" bson:"root"`
	Nodes   []NodeDoc `json:"nodes" bson:"nodes"`
}

// NodeDoc is the wire form of one node. Parent is omitted for the root.
type NodeDoc struct {
	Name     string  `json:"name" bson:"name"`
	Path     string  `json:"path" bson:"path"`
	Kind     string  `json:"kind" bson:"kind"`
	Size     int64   `json:"size,omitempty" bson:"size,omitempty"`
	Tokens   int64   `json:"tokens,omitempty" bson:"tokens,omitempty"`
	Depth    int     `json:"depth,omitempty" bson:"depth,omitempty"`
	Parent   *int32  `json:"parent,omitempty" bson:"parent,omitempty"`
	Children []int32 `json:"children,omitempty" bson:"children,omitempty"`
}

// SceneDoc is the wire form of a computed layout scene.
type SceneDoc struct {
	Version string    `json:"version" bson:"version"`
	Zoom    float64   `json:"zoom" bson:"zoom"`
	Kind    string    `json:"kind" bson:"kind"`
	Rects   []RectDoc `json:"rects" bson:"rects"`
}

// RectDoc is the wire form of one positioned rectangle.
type RectDoc struct {
	Node      int32   `json:"node" bson:"node"`
	X         float64 `json:"x" bson:"x"`
	Y         float64 `json:"y" bson:"y"`
	W         float64 `json:"w" bson:"w"`
	H         float64 `json:"h" bson:"h"`
	Tier      string  `json:"tier" bson:"tier"`
	Region    string  `json:"region,omitempty" bson:"region,omitempty"`
	Z         int     `json:"z" bson:"z"`
	Aggregate bool    `json:"aggregate,omitempty" bson:"aggregate,omitempty"`
}

var kindToString = map[tree.Kind]string{
	tree.KindDir:  "dir",
	tree.KindFile: "file",
}

var kindFromString = map[string]tree.Kind{
	"dir":  tree.KindDir,
	"file": tree.KindFile,
}

var regionToString = map[layout.Region]string{
	layout.RegionNode:   "",
	layout.RegionHeader: "header",
	layout.RegionBody:   "body",
}

// ToDoc converts a tree into its wire form.
func ToDoc(t *tree.Tree) TreeDoc {
	doc := TreeDoc{
		Version: t.Version(),
		Root:    int32(t.Root()),
		Nodes:   make([]NodeDoc, t.Len()),
	}
	for i := 0; i < t.Len(); i++ {
		n := t.MustNode(tree.NodeID(i))
		nd := NodeDoc{
			Name:   n.Name,
			Path:   n.Path,
			Kind:   kindToString[n.Kind],
			Size:   n.Size,
			Tokens: n.Tokens,
			Depth:  n.Depth,
		}
		if n.Parent != tree.None {
			p := int32(n.Parent)
			nd.Parent = &p
		}
		if len(n.Children) > 0 {
			nd.Children = make([]int32, len(n.Children))
			for j, c := range n.Children {
				nd.Children[j] = int32(c)
			}
		}
		doc.Nodes[i] = nd
	}
	return doc
}

// FromDoc converts a wire document back into a validated tree.
func FromDoc(doc TreeDoc) (*tree.Tree, error) {
	nodes := make([]tree.Node, len(doc.Nodes))
	for i, nd := range doc.Nodes {
		kind, ok := kindFromString[nd.Kind]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "node %d: unknown kind %q", i, nd.Kind)
		}
		n := tree.Node{
			Name:   nd.Name,
			Path:   nd.Path,
			Kind:   kind,
			Size:   nd.Size,
			Tokens: nd.Tokens,
			Depth:  nd.Depth,
			Parent: tree.None,
		}
		if nd.Parent != nil {
			n.Parent = tree.NodeID(*nd.Parent)
		}
		if len(nd.Children) > 0 {
			n.Children = make([]tree.NodeID, len(nd.Children))
			for j, c := range nd.Children {
				n.Children[j] = tree.NodeID(c)
			}
		}
		nodes[i] = n
	}
	t, err := tree.FromArena(nodes, tree.NodeID(doc.Root), doc.Version)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "snapshot tree")
	}
	return t, nil
}

// WriteTree encodes t as indented JSON and writes it to w.
func WriteTree(t *tree.Tree, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToDoc(t)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode tree")
	}
	return nil
}

// ReadTree decodes a JSON tree snapshot from r.
//
// The snapshot is validated before use: duplicate parents, cycles, and
// out-of-range child references are rejected. The returned tree is
// independent of r; ReadTree does not close r.
func ReadTree(r io.Reader) (*tree.Tree, error) {
	var doc TreeDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode tree")
	}
	return FromDoc(doc)
}

// ExportFile writes a tree snapshot to the file at path.
func ExportFile(t *tree.Tree, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, err, "create %s", path)
	}
	defer f.Close()
	return WriteTree(t, f)
}

// ImportFile reads a tree snapshot from the file at path.
func ImportFile(path string) (*tree.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, err, "open %s", path)
	}
	defer f.Close()
	return ReadTree(f)
}

// SceneToDoc converts computed geometry into its wire form.
func SceneToDoc(version string, zoom float64, kind layout.Kind, rects []layout.PositionedRect) SceneDoc {
	doc := SceneDoc{
		Version: version,
		Zoom:    zoom,
		Kind:    kind.String(),
		Rects:   make([]RectDoc, len(rects)),
	}
	for i, pr := range rects {
		doc.Rects[i] = RectDoc{
			Node:      int32(pr.Node),
			X:         pr.Rect.X,
			Y:         pr.Rect.Y,
			W:         pr.Rect.W,
			H:         pr.Rect.H,
			Tier:      pr.Tier.String(),
			Region:    regionToString[pr.Region],
			Z:         pr.Z,
			Aggregate: pr.Aggregate,
		}
	}
	return doc
}

// WriteScene encodes a computed scene as indented JSON for external
// renderers.
func WriteScene(w io.Writer, version string, zoom float64, kind layout.Kind, rects []layout.PositionedRect) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(SceneToDoc(version, zoom, kind, rects)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode scene")
	}
	return nil
}
