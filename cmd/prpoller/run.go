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
	"time"

	githubadapter "github.com/ericfisherdev/prpoller/internal/adapter/driven/github"
	httphandler "github.com/ericfisherdev/prpoller/internal/adapter/driving/http"
	"github.com/ericfisherdev/prpoller/internal/application"
	"github.com/ericfisherdev/prpoller/internal/config"
	"github.com/ericfisherdev/prpoller/internal/domain/model"
	"github.com/ericfisherdev/prpoller/internal/domain/port/driven"
	"github.com/ericfisherdev/prpoller/internal/logging"
)

// newGitHubClient is the ClientFactory used outside tests. Each call is
// bounded by the poll interval.
func newGitHubClient(cfg model.PollerConfig) (driven.GitHubClient, error) {
	return githubadapter.NewClient(cfg.BaseURL, cfg.Token, cfg.PollInterval)
}

// setup loads configuration, installs the logger and opens the stores.
func setup(ctx context.Context, envFile string) (*config.Config, *stores, func(), error) {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, nil, err
	}

	// 2. Install the process-wide logger.
	_, closeLog, err := logging.Init(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, err
	}
	slog.Info("config loaded",
		"repo", cfg.Poller.FullName(),
		"branches", cfg.Poller.WatchedBranches(),
		"poll_interval", cfg.Poller.PollInterval,
		"listen_addr", cfg.ListenAddr,
	)

	// 3. Open the state store and change journal.
	st, err := openStores(ctx, cfg)
	if err != nil {
		_ = closeLog()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := st.close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
		_ = closeLog()
	}

	return cfg, st, cleanup, nil
}

// runOnce performs a single poll cycle against the configured store.
func runOnce(ctx context.Context, envFile string) error {
	cfg, st, cleanup, err := setup(ctx, envFile)
	if err != nil {
		return err
	}
	defer cleanup()

	pollSvc, err := application.NewPollService(cfg.Poller, newGitHubClient, st.state, st.changes, slog.Default())
	if err != nil {
		return err
	}

	if err := pollSvc.Poll(ctx); err != nil {
		return fmt.Errorf("poll %s: %w", cfg.Poller.FullName(), err)
	}
	return nil
}

// runServer runs the poll loop and the status API until SIGINT or SIGTERM.
// SIGHUP reloads the configuration and reconfigures the poller in place.
func runServer(parent context.Context, envFile string) error {
	// 1. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Config, logger, stores.
	cfg, st, cleanup, err := setup(ctx, envFile)
	if err != nil {
		return err
	}
	defer cleanup()

	// 3. Create and start the poll service.
	pollSvc, err := application.NewPollService(cfg.Poller, newGitHubClient, st.state, st.changes, slog.Default())
	if err != nil {
		return err
	}
	slog.Info(pollSvc.Describe())

	pollDone := make(chan struct{})
	go func() {
		pollSvc.Start(ctx)
		close(pollDone)
	}()

	// 4. Reload configuration on SIGHUP.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go watchReload(ctx, hup, envFile, pollSvc)

	// 5. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(pollSvc, st.changes, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewRouter(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// A manual poll holds the request for up to the handler's poll timeout.
		WriteTimeout: httphandler.DefaultPollTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 6. Wait for shutdown signal or a server failure.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		stop()
		<-pollDone
		return fmt.Errorf("http server: %w", err)
	}

	// 7. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	<-pollDone

	slog.Info("shutdown complete")
	return nil
}

// watchReload re-reads the environment on every SIGHUP and hands the new
// poller configuration to the poll service. Process-level settings such as
// the listen address and database need a restart.
func watchReload(ctx context.Context, hup <-chan os.Signal, envFile string, pollSvc *application.PollService) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Reload(envFile)
			if err != nil {
				slog.Error("config reload failed", "error", err)
				continue
			}
			if err := pollSvc.Reconfigure(cfg.Poller); err != nil {
				slog.Error("reconfigure failed", "error", err)
			}
		}
	}
}
