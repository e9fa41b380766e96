package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/FlashpointBV/prerender/internal/config"
	"github.com/FlashpointBV/prerender/internal/logging"
	"github.com/FlashpointBV/prerender/internal/server"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/prerender.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	watch := flag.Bool("watch", false, "Reload prerender settings on config file changes")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Prerender %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *validateOnly {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	var logger *zap.Logger
	if cfg.Logging.File != "" {
		logger, err = logging.NewWithFile(cfg.Logging.Level, logging.FileRotation{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		})
	} else {
		logger, err = logging.New(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	logging.Info("Starting prerender service",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.String("backend", cfg.Backend.URL),
		zap.Bool("prerender_enabled", cfg.Prerender.Enabled),
		zap.Bool("debug", cfg.Debug),
	)

	srv, err := server.New(cfg)
	if err != nil {
		logging.Error("Failed to create server", zap.Error(err))
		os.Exit(1)
	}

	if *watch {
		if err := srv.WatchConfig(*configPath); err != nil {
			logging.Error("Failed to watch configuration", zap.Error(err))
			os.Exit(1)
		}
	}

	if err := srv.Run(); err != nil {
		logging.Error("Server error", zap.Error(err))
		os.Exit(1)
	}
}
