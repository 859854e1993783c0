package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/devlopersumit/issuehub/internal/api"
	"github.com/devlopersumit/issuehub/internal/app"
	"github.com/devlopersumit/issuehub/internal/kvstore"
	"github.com/devlopersumit/issuehub/internal/observability"
)

const healthCheckInterval = 30 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with background bounty refresh and enrichment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLoggerTo(os.Stdout, cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	logger.Info("starting issuehub",
		"config_path", cfg.ConfigPath,
		"log_level", cfg.Observability.LogLevel)

	_ = observability.GetMetrics()
	logger.Debug("metrics initialized",
		"metrics_port", cfg.Observability.MetricsPort)

	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	logger.Info("components initialized",
		"auth", a.TokenSource,
		"store", cfg.StateStore.Type,
		"enrichment", a.Enricher != nil)

	obsServer := observability.NewServer(
		cfg.Observability.MetricsPort,
		cfg.Observability.HealthCheckPort,
		logger,
		a.Health,
	)

	go func() {
		if err := obsServer.Start(ctx); err != nil {
			logger.Error("observability server error",
				"error", err.Error())
		}
	}()

	go a.Health.Run(ctx, healthCheckInterval)

	logger.Debug("observability server started",
		"metrics_port", cfg.Observability.MetricsPort,
		"health_port", cfg.Observability.HealthCheckPort)

	var apiServer *api.APIServer
	if cfg.API.Enabled {
		logger.Debug("initializing API server",
			"port", cfg.API.Port)
		apiServer = api.NewAPIServer(&cfg.API, a.APIDependencies(), logger)
	}

	var wg sync.WaitGroup
	errChan := make(chan error, 4)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Debug("starting bounty refresher")
		if err := a.Refresher.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("bounty refresher error",
				"error", err.Error())
			errChan <- fmt.Errorf("bounty refresher error: %w", err)
		}
		logger.Debug("bounty refresher stopped")
	}()

	if a.Enricher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Debug("starting enrichment worker")
			if err := a.Enricher.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("enrichment worker error",
					"error", err.Error())
				errChan <- fmt.Errorf("enrichment worker error: %w", err)
			}
			logger.Debug("enrichment worker stopped")
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := kvstore.RunJanitor(ctx, a.Store, cfg.StateStore.PurgeInterval, logger); err != nil && err != context.Canceled {
			errChan <- fmt.Errorf("store janitor error: %w", err)
		}
	}()

	if apiServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("API server listening",
				"port", cfg.API.Port)
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("API server error",
					"error", err.Error())
				errChan <- fmt.Errorf("API server error: %w", err)
			}
			logger.Debug("API server stopped")
		}()
	}

	logger.Info("all components started successfully")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case runErr = <-errChan:
		logger.Error("component error, initiating shutdown",
			"error", runErr.Error())
		cancel()
	}

	logger.Info("shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if apiServer != nil {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down API server",
				"error", err.Error())
		}
	}

	logger.Debug("waiting for components to stop")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, forcing exit")
	}

	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down observability server",
			"error", err.Error())
	}

	if err := a.Close(); err != nil {
		logger.Error("error closing state store",
			"error", err.Error())
	}

	logger.Info("shutdown complete")
	return runErr
}
