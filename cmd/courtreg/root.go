package main

import (
	"fmt"

	"github.com/JustJay7/court-registry/internal/config"
	"github.com/JustJay7/court-registry/internal/database"
	"github.com/JustJay7/court-registry/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// version is set at build time via -ldflags.
var version = "dev"

type globalFlags struct {
	dbPath   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	var gf globalFlags

	root := &cobra.Command{
		Use:   "courtreg",
		Short: "Court registry loader and reporter",
		Long: "courtreg imports the court registry's open-data CSV exports into SQLite\n" +
			"and builds per-case reports with judges and the latest procedural event.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&gf.dbPath, "db", "", "SQLite database path (overrides DATABASE_PATH)")
	pf.StringVar(&gf.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(&gf),
		newMigrateCmd(&gf),
		newImportCmd(&gf),
		newFetchCmd(&gf),
		newReportCmd(&gf),
	)
	return root
}

// app is what every subcommand needs: configuration, a logger and an
// open, migrated database.
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *gorm.DB
}

func openApp(gf *globalFlags) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if gf.dbPath != "" {
		cfg.DatabasePath = gf.dbPath
	}
	if gf.logLevel != "" {
		cfg.LogLevel = gf.logLevel
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) Close() {
	if err := database.Close(a.db); err != nil {
		a.log.Warn("Failed to close database", "error", err)
	}
	a.log.Sync()
}
