package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/mkadlec/voicebox/internal/config"
	"github.com/mkadlec/voicebox/internal/gateway"
	"github.com/mkadlec/voicebox/internal/observability"
)

func main() {
	// Local development keeps settings in .env; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config error", "err", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "voicebox",
	})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warn("invalid LOG_LEVEL, using info", "value", cfg.LogLevel)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	srv, err := gateway.New(cfg, metrics, logger)
	if err != nil {
		logger.Fatal("gateway init failed", "err", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddr(), "backend", cfg.BackendOrigin, "static", cfg.StaticDir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen error", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
}
