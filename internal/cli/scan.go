package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/treescope/pkg/scan"
	"github.com/matzehuels/treescope/pkg/snapshot"
)

// scanOpts holds the command-line flags for the scan command.
type scanOpts struct {
	output        string   // output file path (default: <dir>.tree.json)
	ignore        []string // extra glob patterns to skip
	includeHidden bool     // include dot-files and dot-directories
	maxDepth      int      // walk depth limit, 0 means unlimited
}

// scanCommand creates the scan command for ingesting a directory tree.
func (c *CLI) scanCommand() *cobra.Command {
	var opts scanOpts

	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Walk a directory and write a tree snapshot",
		Long: `Walk a directory and write a tree snapshot.

The scan command walks the given directory (current directory if omitted),
skipping VCS metadata and dependency directories, and writes the resulting
tree as a snapshot JSON file. The snapshot is the input for the layout,
tui, and serve commands.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return c.runScan(cmd.Context(), dir, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <dir>.tree.json)")
	cmd.Flags().StringSliceVar(&opts.ignore, "ignore", nil, "extra glob patterns to skip (matched against base names)")
	cmd.Flags().BoolVar(&opts.includeHidden, "hidden", false, "include hidden files and directories")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "maximum walk depth (0 = unlimited)")

	return cmd
}

// runScan walks the directory and writes the snapshot.
func (c *CLI) runScan(ctx context.Context, dir string, opts scanOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	scanOptions := scan.Options{
		IgnorePatterns: append(cfg.Scan.IgnorePatterns, opts.ignore...),
		IncludeHidden:  opts.includeHidden || cfg.Scan.IncludeHidden,
		MaxDepth:       opts.maxDepth,
	}
	if scanOptions.MaxDepth == 0 {
		scanOptions.MaxDepth = cfg.Scan.MaxDepth
	}

	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Scanning %s...", dir))
	spinner.Start()

	result, err := scan.Scan(ctx, dir, scanOptions)
	if err != nil {
		spinner.StopWithError("Scan failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	prog.done(fmt.Sprintf("Scanned %d files", result.Stats.Files))

	outputPath := opts.output
	if outputPath == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			abs = dir
		}
		outputPath = filepath.Base(abs) + ".tree.json"
	}

	if err := snapshot.ExportFile(result.Tree, outputPath); err != nil {
		return err
	}

	logger.Debugf("scan of %s took %s, %d dirs skipped", dir, result.Duration, result.Skipped)

	printSuccess("Scan complete")
	printFile(outputPath)
	printStats(result.Stats.Files, result.Stats.Dirs, 0, false)
	printDetail("%s total, deepest level %d", formatBytes(result.Stats.TotalBytes), result.Stats.MaxDepth)
	printNewline()
	printNextStep("Layout", "treescope layout "+outputPath)
	printNextStep("Browse", "treescope tui "+outputPath)

	return nil
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
