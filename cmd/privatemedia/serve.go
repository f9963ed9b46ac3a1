package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/sagarc03/privatemedia"
	"github.com/sagarc03/privatemedia/auth"
	"github.com/sagarc03/privatemedia/config"
	"github.com/sagarc03/privatemedia/filesystem"
	mediahttp "github.com/sagarc03/privatemedia/http"
	"github.com/sagarc03/privatemedia/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the privatemedia HTTP server.

Files below the media root are served under server.url_prefix after the
configured permission policy allows the request. SIGINT or SIGTERM
shut the server down gracefully.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port")
	serveCmd.Flags().Bool("debug", false, "answer denied requests with 403 instead of 404")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverCfg, err := cfg.ServerConfig()
	if err != nil {
		return fmt.Errorf("invalid media config: %w", err)
	}

	permissions, closePermissions, err := newPermissionChecker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePermissions()

	root, err := os.OpenRoot(serverCfg.RootDirectory)
	if err != nil {
		return fmt.Errorf("open media root: %w", err)
	}
	defer func() { _ = root.Close() }()

	var (
		m           *metrics.Metrics
		backendOpts []privatemedia.BackendOption
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		backendOpts = append(backendOpts, privatemedia.WithSizeObserver(m.ServedFileBytes))
	}

	backend, err := privatemedia.NewBackend(serverCfg, filesystem.NewFileStorage(root), backendOpts...)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	dispatcher, err := privatemedia.NewDispatcher(serverCfg, permissions, backend, privatemedia.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	resolver, err := newIdentityResolver(cfg)
	if err != nil {
		return err
	}

	handlerConfig := mediahttp.HandlerConfig{
		URLPrefix:   cfg.Server.URLPrefix,
		Identity:    resolver,
		CORS:        cfg.CORS,
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
		Logger:      slog.Default(),
	}
	if cfg.RateLimit.Enabled {
		handlerConfig.RateLimit = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}

	handler := mediahttp.NewHandler(&handlerConfig, dispatcher)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"prefix", cfg.Server.URLPrefix,
			"root", serverCfg.RootDirectory,
			"backend", serverCfg.Backend,
			"policy", cfg.Permissions.Policy,
			"auth", cfg.Auth.Mode,
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
	}

	return nil
}

// newPermissionChecker builds the configured policy. The returned func
// releases the grants database, if one was opened.
func newPermissionChecker(ctx context.Context, cfg *config.Config) (privatemedia.PermissionChecker, func(), error) {
	switch cfg.Permissions.Policy {
	case "public":
		return privatemedia.AllowAll(), func() {}, nil
	case "authenticated":
		if cfg.Auth.Mode == "none" {
			slog.Warn("permissions.policy is authenticated but auth.mode is none; every request will be denied")
		}
		return privatemedia.Authenticated(), func() {}, nil
	case "grants":
		db, err := openGrantsDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return privatemedia.NewGrantPermissions(db.GetRepo()), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown permission policy: %s", cfg.Permissions.Policy)
	}
}

// newIdentityResolver builds the configured authentication mode.
func newIdentityResolver(cfg *config.Config) (mediahttp.IdentityResolver, error) {
	switch cfg.Auth.Mode {
	case "none":
		return mediahttp.AnonymousResolver{}, nil
	case "header":
		return mediahttp.HeaderResolver{Header: cfg.Auth.Header}, nil
	case "signature":
		store, err := auth.NewSecretStore(cfg.Auth.Keys)
		if err != nil {
			return nil, fmt.Errorf("load access keys: %w", err)
		}
		if store.Len() == 0 {
			slog.Warn("auth.mode is signature but no access keys are configured")
		}
		verifier := auth.NewSignatureVerifier(cfg.Auth.AWS.Region, cfg.Auth.AWS.Service, store)
		return mediahttp.SignatureResolver{Verifier: verifier}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode: %s", cfg.Auth.Mode)
	}
}
