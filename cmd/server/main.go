// Command server runs the Agora HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agora/internal/bootstrap"
	"agora/internal/config"
	"agora/internal/observability"
	"agora/internal/server"
)

// @title Agora API
// @version 1.0
// @description Social backend with identities split across a main store and an auth store.

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		observability.Logger.Error("Server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.Logger = observability.NewLogger(os.Stdout, cfg.Env, os.Getenv("LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true, Tracing: true})
	if err != nil {
		return fmt.Errorf("init runtime: %w", err)
	}

	srv := server.NewServer(cfg, rt.Stores, rt.Redis, rt.Sink)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		observability.Logger.Info("Shutdown signal received")
	}

	// The server drains before the stores and exporters behind it close.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		observability.Logger.Error("Server shutdown error", slog.String("error", serr.Error()))
	}
	if cerr := rt.Close(shutdownCtx); cerr != nil {
		observability.Logger.Error("Runtime shutdown error", slog.String("error", cerr.Error()))
	}
	return err
}
