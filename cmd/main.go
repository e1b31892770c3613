/*
Package main is the entry point for the PulseChat server.

It is responsible for loading configuration, initializing the global logging
system, selecting the entity store, bootstrapping the default room, setting up
the HTTP server, and gracefully handling operating system interrupt signals
(SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulsechat/internal/app/chat"
	"pulsechat/internal/app/storage"
	"pulsechat/internal/app/store"
	"pulsechat/internal/configs"
	"pulsechat/internal/handler"
	"pulsechat/internal/pkg/auth"
	"pulsechat/internal/pkg/errs"
	"pulsechat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("postgres", cfg.DatabaseDSN != "").
		Bool("avatar_storage", cfg.AvatarStorageEnabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Select the entity store: in-memory by default, Postgres when a DSN is set.
	var entityStore store.Store
	if cfg.DatabaseDSN != "" {
		pool, err := store.NewPool(cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to initialize database")
		}
		defer pool.Close()

		entityStore = store.NewPostgresStore(pool)
	} else {
		entityStore = store.NewMemoryStore()
	}

	defaultRoomID, err := ensureDefaultRoom(ctx, entityStore, cfg.DefaultRoomName)
	if err != nil {
		logx.Fatal(err, "Failed to bootstrap default room")
	}

	// Avatar storage is optional; the presign endpoint answers 501 without it.
	var avatars storage.StorageService
	if cfg.AvatarStorageEnabled() {
		avatars, err = storage.NewStorageService(storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize avatar storage")
		}
	}

	typing := store.NewTypingTracker(0, 0)
	registry := chat.NewRegistry()
	service := chat.NewService(entityStore, typing, registry, 0)
	sessions := auth.NewSessions(cfg.SessionSecret)

	deps := &handler.AppDeps{
		Store:         entityStore,
		Service:       service,
		Sessions:      sessions,
		Config:        cfg,
		Avatars:       avatars,
		DefaultRoomID: defaultRoomID,
	}

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler.Router(deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("PulseChat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	registry.Shutdown()
	typing.Stop()

	logx.Info("Server gracefully stopped.")
}

// ensureDefaultRoom resolves the room every new account joins, creating it on
// first start.
func ensureDefaultRoom(ctx context.Context, entityStore store.Store, name string) (string, error) {
	room, fetchErr := entityStore.GetRoomByName(ctx, name)
	if fetchErr == nil {
		return room.ID, nil
	}
	if fetchErr.Code != errs.ErrRoomNotFound {
		return "", fetchErr
	}

	room, createErr := entityStore.CreateRoom(ctx, store.CreateRoomParams{
		Name:        name,
		Description: "The room everyone starts in.",
		Type:        store.RoomTypeGroup,
	})
	if createErr != nil {
		return "", createErr
	}

	return room.ID, nil
}
