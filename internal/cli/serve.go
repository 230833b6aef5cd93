package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/treescope/internal/server"
	"github.com/matzehuels/treescope/pkg/config"
)

// shutdownTimeout bounds graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command hosting the HTTP layout API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the HTTP layout API",
		Long: `Host the HTTP layout API.

The server accepts scan requests, stores the resulting snapshots, and
serves layout frames, hit tests, and SVG scenes over them. Snapshots are
kept in memory unless a MongoDB URI is configured, in which case they
survive restarts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, then :8080)")

	return cmd
}

// runServe builds the store and server and blocks until the context is
// cancelled or the listener fails.
func (c *CLI) runServe(ctx context.Context, addr string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	store, err := c.newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			c.Logger.Warnf("Store close failed: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(store, cfg, c.Logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Infof("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	c.Logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newStore selects the scan store backend from the config.
func (c *CLI) newStore(ctx context.Context, cfg config.Config) (server.ScanStore, error) {
	if cfg.Server.MongoURI == "" {
		return server.NewMemoryStore(), nil
	}
	c.Logger.Debugf("connecting to MongoDB at %s", cfg.Server.MongoURI)
	return server.NewMongoStore(ctx, cfg.Server.MongoURI, cfg.Server.MongoDB)
}
