package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"tunedeck/internal/config"
	"tunedeck/internal/logging"
	"tunedeck/internal/server"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	fs, flags := config.NewFlagSet(os.Args[0])
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.WithError(err).Fatal("Invalid command line")
	}

	// Load configuration
	cfg, err := config.LoadConfig(flags.ConfigPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}
	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		logrus.WithError(err).Fatal("Error configuring logging")
	}
	defer closer.Close()

	if _, err := os.Stat(cfg.Music.Dir); os.IsNotExist(err) {
		logger.WithField("music_dir", cfg.Music.Dir).Warn("Music directory does not exist; the song list will be empty until it is created")
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.NewMusicServer(cfg, logger).Run(ctx); err != nil {
		logger.WithError(err).Error("Music server stopped")
		closer.Close()
		os.Exit(1)
	}
}
