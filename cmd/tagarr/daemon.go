package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tagarr/internal/config"
	"tagarr/internal/handlers"
)

func runDaemon(parent context.Context, opts *rootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	a, err := buildApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := a.logger
	logger.Info("Starting tagarr v" + version)
	logger.Info("Tagging", a.cfg.Arr.Kind, "at", a.cfg.Arr.URL, "with score threshold", a.cfg.Tagging.ScoreThreshold)
	checkConnection(ctx, a.client, a.cfg, logger)

	if _, err := os.Stat(opts.configPath); err == nil {
		if err := config.Watch(ctx, opts.configPath, logger, func(cfg *config.Config) {
			if opts.testMode {
				cfg.Schedule.TestMode = true
			}
			if opts.format != "" {
				cfg.Results.Format = a.cfg.Results.Format
			}
			a.manager.ApplyConfig(cfg)
			a.manager.SetNotifiers(newNotifier(cfg, logger))
		}); err != nil {
			logger.Warn("Config hot reload disabled:", err)
		}
	}

	var server *handlers.Server
	if a.cfg.Server.Enabled {
		server = handlers.NewServer(a.cfg.Server.Port, a.manager, a.runs, logger)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("Status server failed:", err)
			}
		}()
	}

	err = a.manager.Run(ctx)

	logger.Info("Shutting down...")
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Stop(shutdownCtx)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
