package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teamboard/infrastructure/ws"
	"teamboard/internal"
	"teamboard/repositories"
	"teamboard/runtime"
	"teamboard/runtime/workers"
	"teamboard/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

// Exit codes to provide meaningful status to the operating system or
// service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// main is a thin wrapper: call run() and map its outcome to an OS exit
	// code, so every defer (database close included) executes on the way out.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := internal.GetLoggerFromString(config.LogLevel)

	ctx := context.Background()

	// 2. Database (BadgerDB), the durable message store behind the relay
	options := buildBadgerOpts(config, logger, ctx)
	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Realtime core wiring: one registry instance owned here and passed
	// by reference, never a process-wide singleton.
	registry := runtime.NewRegistry()
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	relay := runtime.NewRelay(logger, registry, messageRepository)
	chatService := services.NewChatService(registry, relay, messageRepository)

	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(runtime.NewPresenceBroadcaster(logger, registry))
	supervisor.Add(workers.NewHeartbeatWorker(logger, config.HeartbeatInterval))

	// 4. Context & signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)

	// 5. Supervised background workers (presence broadcast, heartbeat)
	go func() {
		logger.Info("Starting supervised workers...")
		supervisor.Run(ctx)
	}()

	// 6. HTTP server: websocket upgrade endpoint + history pulls
	wsServer := ws.NewServer(logger, chatService, []byte(config.AuthSecret), config.ConnectionBufferSize, config.AllowedOrigin)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: wsServer.Router()}

	go func() {
		logger.Info("Starting realtime server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Graceful shutdown: let live connections finish their frames, then
	// stop the workers.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	supervisor.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}
	return options
}
