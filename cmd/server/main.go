// Command server runs the software catalog API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog/internal/bootstrap"
	"catalog/internal/config"
	"catalog/internal/middleware"
	"catalog/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		middleware.Logger.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments inject the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		middleware.Logger.Warn("failed to read .env", slog.String("error", err.Error()))
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := bootstrap.InitTracing(ctx, cfg, version)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		return errors.Join(err, shutdownTracing(context.Background()))
	}
	return serve(ctx, srv.NewApp(), ":"+cfg.Port, srv, shutdownTracing)
}

// serve runs app until ctx is done or the listener fails, then releases
// the server's dependencies and flushes traces on either path.
func serve(ctx context.Context, app *fiber.App, addr string, srv *server.Server, shutdownTracing func(context.Context) error) error {
	errCh := make(chan error, 1)
	go func() {
		middleware.Logger.Info("Server starting", slog.String("addr", addr), slog.String("version", version))
		errCh <- app.Listen(addr)
	}()

	var (
		errs      []error
		listening = true
	)
	select {
	case err := <-errCh:
		listening = false
		if err != nil {
			errs = append(errs, fmt.Errorf("listen: %w", err))
		}
	case <-ctx.Done():
		middleware.Logger.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if listening {
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
