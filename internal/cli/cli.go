// Package cli implements the treescope command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/treescope/pkg/buildinfo"
	"github.com/matzehuels/treescope/pkg/cache"
	"github.com/matzehuels/treescope/pkg/config"
	"github.com/matzehuels/treescope/pkg/engine"
	"github.com/matzehuels/treescope/pkg/layout"
	"github.com/matzehuels/treescope/pkg/tree"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "treescope"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "treescope",
		Short:        "Treescope visualizes directory trees as spatial maps",
		Long:         `Treescope is a CLI tool for turning directory trees into zoomable spatial maps, making it easier to see where the bytes and files in a codebase live.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./treescope.toml, then ~/.config/treescope/)")

	// Register all subcommands
	root.AddCommand(c.scanCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.tuiCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig loads the configuration honoring the --config flag.
func (c *CLI) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// =============================================================================
// Engine Factory
// =============================================================================

// newEngine creates a layout engine configured from cfg and loads t into it.
func (c *CLI) newEngine(cfg config.Config, t *tree.Tree) (*engine.Engine, error) {
	eng := engine.New(engine.Options{
		Padding:       cfg.Engine.Padding,
		MinCell:       cfg.Engine.MinCell,
		MaxDepth:      cfg.Engine.MaxDepth,
		CacheCapacity: cfg.Engine.CacheCapacity,
		Force:         forceConfig(cfg.Force),
		Logger:        c.Logger,
	})
	if err := eng.SetTree(t); err != nil {
		return nil, err
	}
	return eng, nil
}

// forceConfig maps the force section of the config onto layout tuning.
func forceConfig(f config.Force) layout.ForceConfig {
	return layout.ForceConfig{
		Steps:     f.Steps,
		DT:        f.DT,
		Damping:   f.Damping,
		Repulsion: f.Repulsion,
		Spring:    f.Spring,
	}
}

// =============================================================================
// Cache Factory
// =============================================================================

// newCache creates the artifact cache selected by the config. A failure
// to reach the configured backend degrades to the null cache rather than
// failing the command.
func newCache(ctx context.Context, cfg config.CacheC, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Backend == "none" {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case "memory":
		return cache.NewMemoryCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	dir := cfg.Dir
	if dir == "" {
		var err error
		dir, err = cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/treescope/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
