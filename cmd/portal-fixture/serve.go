package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/kgportal-e2e/internal/config"
	"github.com/kuitang/kgportal-e2e/internal/kg"
	"github.com/kuitang/kgportal-e2e/internal/obs"
	"github.com/kuitang/kgportal-e2e/internal/portal"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the fixture portal",
		Long: `Serve loads nodes into an SQLite store and serves the portal pages.

Nodes come from --nodes (a CSKG nodes TSV) or are generated when no file is given.
Flags override the matching PORTAL_* environment variables.

Examples:
  # 1000 generated nodes on :9000
  portal-fixture serve

  # Serve a CSKG export and redirect searches to the normalized URL
  portal-fixture serve --nodes cskg_nodes.tsv --normalize-search-redirect`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", config.DefaultListenAddr, "Listen address")
	cmd.Flags().String("nodes", "", "CSKG nodes TSV to load")
	cmd.Flags().IntP("count", "n", config.DefaultNodeCount, "Generated node count when --nodes is empty")
	cmd.Flags().Int64("seed", 1, "Seed for generated nodes")
	cmd.Flags().Bool("normalize-search-redirect", false, "Redirect searches to the URL with normalized=true appended")
	cmd.Flags().String("db", ":memory:", "SQLite database for the node store")

	return cmd
}

// serveConfig loads configuration and applies the flags the user set.
func serveConfig(cmd *cobra.Command) (*config.Config, string, error) {
	var envFile string
	if f := cmd.Flag("env-file"); f != nil {
		envFile = f.Value.String()
	}
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return nil, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.ListenAddr, _ = flags.GetString("addr")
	}
	if flags.Changed("nodes") {
		cfg.NodesFile, _ = flags.GetString("nodes")
	}
	if flags.Changed("count") {
		cfg.FixtureNodeCount, _ = flags.GetInt("count")
	}
	if flags.Changed("seed") {
		cfg.FixtureSeed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("normalize-search-redirect") {
		cfg.NormalizeSearchRedirect, _ = flags.GetBool("normalize-search-redirect")
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	dsn, err := flags.GetString("db")
	if err != nil {
		return nil, "", err
	}
	return cfg, dsn, nil
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	obs.Init()

	cfg, dsn, err := serveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := kg.Open(dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := portal.LoadNodes(ctx, store, cfg); err != nil {
		return err
	}
	srv, err := portal.NewServer(store, portal.Options{NormalizeSearchRedirect: cfg.NormalizeSearchRedirect})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}
	cfg.PrintStartupSummary(cmd.ErrOrStderr())

	return serve(ctx, ln, srv.Handler())
}

// serve runs handler on ln until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	httpSrv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()
	obs.Pkg("portal").Info("portal_listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	obs.Pkg("portal").Info("portal_stopped")
	return nil
}
