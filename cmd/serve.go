// Package cmd implements the console's run modes.
package cmd

import (
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/mistops/guestgate/internal/api"
	"github.com/mistops/guestgate/internal/config"
	"github.com/mistops/guestgate/internal/guest"
	"github.com/mistops/guestgate/internal/logging"
	"github.com/mistops/guestgate/internal/mist"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// RunServe loads configuration, wires the Mist client and guest
// service, and serves the console until the listener fails.
func RunServe(configFile, listenOverride string, uiAssets fs.FS) error {
	// A .env file next to the binary is honored for local development.
	_ = godotenv.Load()

	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if listenOverride != "" {
		cfg.API.Listen = listenOverride
	}

	logger := logging.New(logging.Config{
		Level: parseLevel(cfg.Log.Level),
		JSON:  cfg.Log.JSON,
	})
	logging.SetDefault(logger)

	client := mist.NewClient(cfg.Mist.Host, cfg.Mist.APIToken, logger)
	svc := guest.NewService(client, cfg.Mist.OrgID, logger, nil)

	assets, err := fs.Sub(uiAssets, "ui/dist")
	if err != nil {
		return fmt.Errorf("ui assets unavailable: %w", err)
	}

	server, err := api.NewServer(api.ServerOptions{
		Config:  cfg,
		Assets:  assets,
		Service: svc,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	logger.Info("starting console", "version", Version, "listen", cfg.API.Listen, "mist_host", cfg.Mist.Host)
	return server.Start(cfg.API.Listen)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
