package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httpadapter "github.com/randomtoy/raffle-go/internal/adapters/http"
	"github.com/randomtoy/raffle-go/internal/adapters/notify"
	"github.com/randomtoy/raffle-go/internal/adapters/storage/bolt"
	"github.com/randomtoy/raffle-go/internal/adapters/storage/memory"
	"github.com/randomtoy/raffle-go/internal/adapters/storage/sqlite"
	"github.com/randomtoy/raffle-go/internal/app"
	"github.com/randomtoy/raffle-go/internal/config"
	"github.com/randomtoy/raffle-go/internal/platform/otel"
	"github.com/randomtoy/raffle-go/internal/ports"
)

// stdRNG delegates to math/rand/v2 (auto-seeded, safe for concurrent use).
type stdRNG struct{}

func (stdRNG) Intn(n int) int { return rand.IntN(n) }

func openStore(cfg config.Config) (ports.StateStore, error) {
	switch cfg.StoreDriver {
	case config.StoreBolt:
		return bolt.Open(cfg.StorePath)
	case config.StoreSQLite:
		return sqlite.Open(cfg.StorePath)
	case config.StoreMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, "raffled", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	kv, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "path", cfg.StorePath, "error", err)
		os.Exit(1)
	}

	hub := notify.NewHub(logger)
	store := app.NewStateStore(kv, logger)
	svc := app.NewDrawService(store, hub, stdRNG{}, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(httpadapter.RequestIDMiddleware())
	e.Use(httpadapter.LoggingMiddleware(logger))

	handler := httpadapter.NewHandler(svc, hub, cfg.RevealTick, stdRNG{})
	handler.Register(e)

	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := kv.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", "error", err)
	}
}
