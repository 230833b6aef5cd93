// Package scan walks a directory into a [tree.Tree].
//
// The walker applies ignore patterns before descending, so dependency
// and VCS directories (node_modules, .git, build output) never inflate
// the tree. Sizes come straight from the directory entries; directory
// sizes are aggregated bottom-up after the walk. Every scan produces a
// fresh version token, which downstream caches use to invalidate stale
// geometry.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/treescope/pkg/errors"
	"github.com/matzehuels/treescope/pkg/observability"
	"github.com/matzehuels/treescope/pkg/tree"
)

// defaultIgnores are directory names that are skipped without descending.
// They are dependency, VCS, and editor directories whose contents say
// nothing about the project's own shape.
var defaultIgnores = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"target":       true,
	".idea":        true,
	".vscode":      true,
	"__pycache__":  true,
	".venv":        true,
}

// Options configures a scan.
type Options struct {
	// IgnorePatterns are additional glob patterns (matched against the
	// base name) to skip. The built-in ignore set always applies.
	IgnorePatterns []string

	// IncludeHidden includes dot-files and dot-directories. The built-in
	// ignore set still applies.
	IncludeHidden bool

	// MaxDepth bounds the walk; 0 means unlimited. Directories at the
	// limit are kept as leaves with aggregated sizes unavailable.
	MaxDepth int
}

// Result is the output of one scan.
type Result struct {
	Tree     *tree.Tree
	Stats    tree.Stats
	Duration time.Duration
	Skipped  int // directories skipped by ignore rules
}

// Scan walks root and returns the resulting tree.
//
// Unreadable subdirectories are skipped rather than failing the whole
// scan; an unreadable root is an error. The context is checked once per
// directory so a scan of a huge tree can be cancelled.
func Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	start := time.Now()
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeScanFailed, err, "stat %s", abs)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "%s is not a directory", abs)
	}

	observability.Scan().OnScanStart(ctx, abs)

	b := tree.NewBuilder(filepath.Base(abs), abs)
	b.SetVersion(uuid.NewString())
	s := &scanner{opts: opts, builder: b}
	if err := s.walk(ctx, b.Root(), abs, 1); err != nil {
		observability.Scan().OnScanComplete(ctx, abs, 0, time.Since(start), err)
		return nil, err
	}
	b.AggregateSizes()

	t, err := b.Build()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeScanFailed, err, "assemble tree for %s", abs)
	}

	res := &Result{
		Tree:     t,
		Stats:    t.Stats(),
		Duration: time.Since(start),
		Skipped:  s.skipped,
	}
	observability.Scan().OnScanComplete(ctx, abs, t.Len(), res.Duration, nil)
	return res, nil
}

type scanner struct {
	opts    Options
	builder *tree.Builder
	skipped int
}

// walk reads one directory and recurses into its subdirectories.
// depth is the node depth of dir's entries.
func (s *scanner) walk(ctx context.Context, parent tree.NodeID, dir string, depth int) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeAborted, err, "scan aborted at %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if depth == 1 {
			return errors.Wrap(errors.ErrCodeScanFailed, err, "read %s", dir)
		}
		// Unreadable subdirectory: keep the node, skip the contents.
		s.skipped++
		return nil
	}

	for _, e := range entries {
		name := e.Name()
		if s.skip(name, e.IsDir()) {
			if e.IsDir() {
				s.skipped++
			}
			continue
		}
		path := filepath.Join(dir, name)
		if e.IsDir() {
			id := s.builder.Dir(parent, name, path)
			if s.opts.MaxDepth > 0 && depth >= s.opts.MaxDepth {
				s.skipped++
				continue
			}
			if err := s.walk(ctx, id, path, depth+1); err != nil {
				return err
			}
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		size := entrySize(e)
		id := s.builder.File(parent, name, path, size)
		if tokens := estimateTokens(name, size); tokens > 0 {
			s.builder.SetTokens(id, tokens)
		}
	}
	return nil
}

// skip reports whether an entry is excluded by the ignore rules.
func (s *scanner) skip(name string, isDir bool) bool {
	if isDir && defaultIgnores[name] {
		return true
	}
	if !s.opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	for _, pat := range s.opts.IgnorePatterns {
		if ok, err := filepath.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}

// entrySize returns the entry's size, or 0 when the info is unavailable
// (e.g. the file vanished mid-walk).
func entrySize(e fs.DirEntry) int64 {
	info, err := e.Info()
	if err != nil {
		return 0
	}
	return info.Size()
}

// textExts are extensions whose contents are prose or code; only these
// get a token estimate.
var textExts = map[string]bool{
	"go": true, "rs": true, "py": true, "js": true, "ts": true,
	"tsx": true, "jsx": true, "java": true, "c": true, "h": true,
	"cpp": true, "hpp": true, "rb": true, "sh": true, "md": true,
	"txt": true, "json": true, "yaml": true, "yml": true, "toml": true,
	"html": true, "css": true, "sql": true, "xml": true,
}

// estimateTokens approximates the token count of a text file from its
// byte size. Four bytes per token is the usual rule of thumb for code.
func estimateTokens(name string, size int64) int64 {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if !textExts[ext] {
		return 0
	}
	return size / 4
}
