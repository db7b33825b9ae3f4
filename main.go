package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jrh3k5/forest-and-wolves/config"
	"github.com/jrh3k5/forest-and-wolves/game"
	"github.com/jrh3k5/forest-and-wolves/notify"
	"github.com/jrh3k5/forest-and-wolves/scheduler"
	"github.com/jrh3k5/forest-and-wolves/server"
	"github.com/jrh3k5/forest-and-wolves/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML settings file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	if cfg.SlogLevel() != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	gameStore, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer gameStore.Close()

	hub := notify.NewHub()
	notifiers := notify.MultiNotifier{notify.LogNotifier{}, hub}
	if cfg.Telegram.Token != "" {
		telegramNotifier, err := notify.NewTelegramNotifier(cfg.Telegram.Token)
		if err != nil {
			slog.Error("failed to start telegram notifier", "error", err)
			os.Exit(1)
		}
		notifiers = append(notifiers, telegramNotifier)
	}

	var gameEngine game.Engine = game.NewInMemoryGameEngine(
		game.WithPersistence(gameStore),
		game.WithNotifier(notifiers),
		game.WithSettings(cfg.Settings()),
	)

	sched := scheduler.New(gameEngine, cfg.Scheduler.Tick, cfg.Scheduler.Cleanup, cfg.Scheduler.LobbyTTL)
	if err := sched.Start(); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.NewServer(gameEngine, gameStore, hub),
	}

	serverErrs := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr, "storage", cfg.Storage.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down")
	case err := <-serverErrs:
		slog.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}
