package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bipv-docs/internal/config"
	"bipv-docs/internal/database"
	"bipv-docs/internal/engine"
	"bipv-docs/internal/handlers"
	"bipv-docs/internal/logging"
	"bipv-docs/internal/middleware"
	"bipv-docs/internal/utils"
	"bipv-docs/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("Server stopped")
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	metrics := utils.NewMetricsCollector()
	if err := logging.Setup(cfg.Log.Level, cfg.Log.JSON); err != nil {
		return err
	}
	if cfg.Server.MetricsEnabled {
		logrus.AddHook(logging.NewMetricsHook(metrics))
	}

	store, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Database.Type, err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			logrus.WithError(err).Error("Failed to close store")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	system := actor.NewActorSystem()
	defer system.Shutdown()

	server := buildServer(cfg, store, metrics, hub, system)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":  serverAddr,
			"store": cfg.Database.Type,
		}).Info("Starting server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildServer wires the engine and the HTTP layer from the configuration.
func buildServer(cfg *config.Config, store database.Store, metrics *utils.MetricsCollector, hub *websocket.Hub, system *actor.ActorSystem) *handlers.Server {
	docsEngine := engine.NewEngine(system, store, metrics, cfg.Organizations, engine.Options{
		BcryptCost:     cfg.Auth.BcryptCost,
		RequestTimeout: cfg.Server.RequestTimeout,
		Notifier:       hub,
	})

	return handlers.NewServer(
		docsEngine,
		metrics,
		middleware.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration),
		hub,
		cfg.Organizations,
		cfg.AllowedOrigins,
	)
}
