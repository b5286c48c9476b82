package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/flor3z/lol-live-tracker/internal/bot"
	"github.com/flor3z/lol-live-tracker/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Bot exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	setupLogging(cfg.LogLevel)

	slog.Info("Starting LoL live game tracker",
		"platform", cfg.RiotPlatform,
		"region", cfg.RiotRegion,
		"database", cfg.DatabasePath,
		"pollInterval", cfg.PollingInterval,
		"pendingInterval", cfg.PendingInterval,
		"statusAddr", cfg.StatusAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := bot.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	if err := b.Start(ctx); err != nil {
		// release the database and any half-open connection
		if stopErr := b.Stop(); stopErr != nil {
			slog.Warn("Error while cleaning up", "error", stopErr)
		}
		return fmt.Errorf("failed to start bot: %w", err)
	}

	slog.Info("Bot is running. Press Ctrl+C to stop.")
	<-ctx.Done()

	slog.Info("Shutting down...")
	if err := b.Stop(); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}

	slog.Info("Bot stopped")
	return nil
}

func setupLogging(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
