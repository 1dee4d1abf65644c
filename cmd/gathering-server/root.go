package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/highlandgames/gathering/internal/auth"
	"github.com/highlandgames/gathering/internal/config"
	"github.com/highlandgames/gathering/internal/database"
)

var (
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "gathering-server",
		Short: "Highland games registration and results backend",
		Long: `gathering-server serves the public event catalog, competitor registrations
and the results leaderboard, plus the admin endpoints used to moderate them.

Configuration is read from the environment (and a .env file if present).`,
		SilenceUsage: true,
		// serve is the default when no subcommand is given
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: $LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console) (default: $LOG_FORMAT or json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(bootstrapCmd)
}

// runtimeDeps is what both serve and bootstrap need before doing their own work.
type runtimeDeps struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *database.Service
}

// prepare loads configuration, opens the store, bootstraps the schema and
// reconciles the admin account. Any failure here is fatal for the process.
func prepare(ctx context.Context) (*runtimeDeps, error) {
	envErr := godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	logger := config.NewLogger(cfg.Logging)
	if envErr != nil {
		logger.Debug().Msg("no .env file found, using process environment")
	}
	if cfg.JwtSecret == "" {
		logger.Warn().Msg("JWT_SECRET is not set; login and admin routes will fail until it is configured")
	}

	for _, dir := range []string{cfg.DataPath, filepath.Dir(cfg.DatabasePath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}

	store, err := database.NewService(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := store.Bootstrap(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	admin, err := auth.ReconcileAdmin(ctx, store, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("reconcile admin: %w", err)
	}
	logger.Info().Str("email", admin.Email).Int64("user_id", admin.ID).Msg("admin account reconciled")

	return &runtimeDeps{cfg: cfg, logger: logger, store: store}, nil
}
