package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nerrad567/autofill-core/internal/action"
	"github.com/nerrad567/autofill-core/internal/infrastructure/browser"
	"github.com/nerrad567/autofill-core/internal/infrastructure/config"
	"github.com/nerrad567/autofill-core/internal/infrastructure/database"
	"github.com/nerrad567/autofill-core/internal/infrastructure/logging"
	"github.com/nerrad567/autofill-core/migrations"
)

// configPath returns --config, then $AUTOFILL_CONFIG. Empty means defaults.
func (o *options) resolveConfigPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	return os.Getenv(configEnv)
}

// load reads the configuration and builds the logger from it.
func (o *options) load() (*config.Config, *logging.Logger, error) {
	path := o.resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version)
	if path != "" {
		log.Debug("configuration loaded", "path", path)
	}
	return cfg, log, nil
}

// openDatabase opens the database and applies pending migrations.
// The caller closes the returned DB.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	applied, err := db.NewMigrator(migrations.FS, ".").Up(ctx)
	if err != nil {
		db.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Path, "migrations_applied", applied)
	return db, nil
}

// launchBrowser starts Chrome, or attaches to browser.remote_url.
func launchBrowser(ctx context.Context, cfg *config.Config, log *logging.Logger) (*browser.Browser, error) {
	b, err := browser.Launch(ctx, cfg.Browser, action.Options{ScreenshotDir: cfg.Replay.ArtifactDir})
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	b.SetLogger(log.Component("browser"))
	log.Info("browser ready",
		"headless", cfg.Browser.Headless,
		"remote", cfg.Browser.RemoteURL != "",
	)
	return b, nil
}

func closeWithLog(log *logging.Logger, what string, closeFn func() error) {
	log.Info("closing " + what)
	if err := closeFn(); err != nil {
		log.Error("error closing "+what, "error", err)
	}
}
