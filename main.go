package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/shelf-api/internal/api"
	"github.com/isdelr/shelf-api/internal/auth"
	"github.com/isdelr/shelf-api/internal/config"
	"github.com/isdelr/shelf-api/internal/database"
	"github.com/isdelr/shelf-api/internal/logger"
	"github.com/isdelr/shelf-api/internal/monitoring"
	"github.com/isdelr/shelf-api/internal/services"
	"github.com/isdelr/shelf-api/internal/websocket"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exiting")
}

// run serves until ctx is cancelled or the listener fails. Every resource it
// opens is released before it returns.
func run(ctx context.Context, cfg *config.Config) error {
	// Set up database
	openCtx, cancelOpen := context.WithTimeout(ctx, 10*time.Second)
	store, err := database.Open(openCtx, cfg.DatabaseURL)
	cancelOpen()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Set up services
	userService := services.NewUserService(store, tokens)
	eventService := services.NewEventService(services.DefaultEventCapacity)
	bookService := services.NewBookService(store, hub, eventService)

	// Set up and run the background maintenance scheduler
	if maintainer, ok := store.(database.Maintainer); ok && cfg.MaintenanceSchedule != "" {
		scheduler, err := monitoring.NewScheduler(maintainer, cfg.MaintenanceSchedule)
		if err != nil {
			return fmt.Errorf("failed to initialize scheduler: %w", err)
		}
		scheduler.Run()
		defer scheduler.Stop()
	}

	// Set up router
	router := api.NewRouter(api.Deps{
		Store:          store,
		Hub:            hub,
		Tokens:         tokens,
		UserService:    userService,
		BookService:    bookService,
		EventService:   eventService,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Environment).Msg("Server starting")
		serveErr <- srv.Serve(ln)
	}()

	// Graceful shutdown
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
