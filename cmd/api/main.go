package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evotree-backend/infrastructure/config"
	"evotree-backend/infrastructure/di"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
	log.Println("Server stopped")
}

// run serves HTTP until ctx is cancelled, then drains in-flight requests
// and stops the outbox relay before releasing the container.
func run(ctx context.Context, cfg *config.Config) error {
	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	defer func() { _ = container.Logger.Sync() }()

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           di.NewHTTPHandler(container),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("storage", cfg.StorageBackend),
			zap.String("cache", cfg.CacheBackend),
			zap.String("events", cfg.EventsBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if container.Outbox != nil {
		container.Outbox.Start(gctx)
	}

	g.Go(func() error {
		<-gctx.Done()
		container.Logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		if container.Outbox != nil {
			container.Outbox.Stop()
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
