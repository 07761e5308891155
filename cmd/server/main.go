// Command server runs the project board HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"projectboard/internal/config"
	"projectboard/internal/middleware"
	"projectboard/internal/observability"
	"projectboard/internal/server"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// @title Project Board API
// @version 1.0
// @description Kanban boards with columns, cards, mirrors, comments, checklists and a token-authenticated external API.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a session JWT or an API token.

func main() {
	if err := run(); err != nil {
		middleware.Logger.Error("board server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TraceSettings{
		Enabled:     cfg.TracingEnabled,
		Exporter:    cfg.TracingExporter,
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Env,
		Version:     version,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return err
	}

	listenErr := make(chan error, 1)
	go func() { listenErr <- srv.Start() }()

	select {
	case err = <-listenErr:
	case <-ctx.Done():
		middleware.Logger.Info("Shutting down board server", slog.String("version", version))
	}

	drain, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return errors.Join(err, srv.Shutdown(drain), shutdownTracing(drain))
}
