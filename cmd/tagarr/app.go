package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tagarr/internal/clients/arr"
	"tagarr/internal/clients/notifications"
	"tagarr/internal/config"
	"tagarr/internal/core"
	"tagarr/internal/database"
	"tagarr/internal/database/models"
	"tagarr/internal/results"
	"tagarr/internal/utils"
)

// app holds everything built from one configuration for the lifetime of
// the process.
type app struct {
	cfg     *config.Config
	logger  *utils.Logger
	client  *arr.Client
	manager *core.Manager
	db      *sql.DB
	runs    *models.RunRepository
	closers []io.Closer
}

// loadConfig reads the file, applies command line overrides and validates.
func loadConfig(opts *rootOptions) (*config.Config, bool, error) {
	cfg, formatReplaced, err := readConfig(opts)
	if err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, formatReplaced, nil
}

// readConfig reads the file and applies command line overrides without
// requiring a usable server connection.
func readConfig(opts *rootOptions) (*config.Config, bool, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.format != "" {
		f := strings.ToLower(opts.format)
		if f != config.FormatJSON && f != config.FormatCSV {
			return nil, false, fmt.Errorf("invalid --format %q: must be json or csv", opts.format)
		}
		cfg.Results.Format = f
	}
	if opts.logLevel != "" {
		if _, err := utils.ParseLevel(opts.logLevel); err != nil {
			return nil, false, fmt.Errorf("invalid --log-level: %w", err)
		}
		cfg.App.LogLevel = opts.logLevel
	}
	if opts.testMode {
		cfg.Schedule.TestMode = true
	}

	return cfg, cfg.Normalize(), nil
}

// newLogger writes to stdout and, when configured, appends to a log file.
func newLogger(cfg *config.Config) (*utils.Logger, io.Closer, error) {
	level, err := utils.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if cfg.App.LogFile == "" {
		return utils.NewLogger(level, os.Stdout), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.App.LogFile), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(cfg.App.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return utils.NewLogger(level, io.MultiWriter(os.Stdout, logFile)), logFile, nil
}

func buildApp(opts *rootOptions) (*app, error) {
	cfg, formatReplaced, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	if logCloser != nil {
		a.closers = append(a.closers, logCloser)
	}
	if formatReplaced {
		logger.Warn("Invalid output_format, defaulting to 'json'")
	}

	if err := os.MkdirAll(cfg.Results.Directory, 0755); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	kind, err := arr.KindFor(cfg.Arr.Kind)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = arr.NewClient(cfg.Arr.URL, cfg.Arr.APIKey, kind, cfg.ArrTimeout())

	if cfg.Database.Enabled {
		if err := a.openDatabase(); err != nil {
			a.Close()
			return nil, err
		}
	}

	recorder := results.NewRecorder(cfg.Results.Format, cfg.Results.Directory, cfg.Results.Keep, cfg.Results.MinFreeMB, logger)
	a.manager = core.NewManager(cfg, a.client, kind.Name(), recorder, a.runs, logger)
	a.manager.AddNotifier(newNotifier(cfg, logger))
	return a, nil
}

// openHistory opens only the run database, for commands that read stored runs.
func openHistory(opts *rootOptions) (*app, error) {
	cfg, _, err := readConfig(opts)
	if err != nil {
		return nil, err
	}
	if !cfg.Database.Enabled {
		return nil, errors.New("run history is disabled (database.enabled is false)")
	}

	logger, logCloser, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	if logCloser != nil {
		a.closers = append(a.closers, logCloser)
	}
	if err := a.openDatabase(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// checkConnection logs a warning when the server cannot be reached. The poll
// loop keeps retrying either way.
func checkConnection(ctx context.Context, client *arr.Client, cfg *config.Config, logger *utils.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, cfg.ArrTimeout())
	defer cancel()
	if ok, err := client.HealthCheck(ctx); !ok {
		logger.Warn("Cannot reach", cfg.Arr.Kind, "at", cfg.Arr.URL+":", err)
		return false
	}
	logger.Info("Connected to", cfg.Arr.Kind, "at", cfg.Arr.URL)
	return true
}

func (a *app) openDatabase() error {
	db, err := database.NewSQLite(a.cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.RunMigrations(db, a.logger); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	a.db = db
	a.runs = models.NewRunRepository(db)
	a.closers = append(a.closers, db)
	return nil
}

func newNotifier(cfg *config.Config, logger *utils.Logger) notifications.Notifier {
	if cfg.Notifications.PushbulletAPIKey != "" {
		return notifications.NewPushbulletClient(cfg.Notifications.PushbulletAPIKey, logger)
	}
	return notifications.NewLogNotifier(logger)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.closers = nil
}
