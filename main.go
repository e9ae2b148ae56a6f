package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/messagely-be/internal/api"
	"github.com/isdelr/messagely-be/internal/api/handlers"
	"github.com/isdelr/messagely-be/internal/auth"
	"github.com/isdelr/messagely-be/internal/config"
	"github.com/isdelr/messagely-be/internal/database"
	"github.com/isdelr/messagely-be/internal/logger"
	"github.com/isdelr/messagely-be/internal/monitoring"
	"github.com/isdelr/messagely-be/internal/scheduler"
	"github.com/isdelr/messagely-be/internal/services"
	"github.com/isdelr/messagely-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL)
	eventService := services.NewEventService(db)
	userService, err := services.NewUserService(db, cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize user service")
	}
	messageService := services.NewMessageService(db, eventService, hub)
	authService := services.NewAuthService(userService, tokens, eventService)

	// Set up the background scheduler
	sched, err := scheduler.New(eventService, cfg.AuditPruneSchedule, cfg.AuditRetention)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	sched.Start()

	// Resource sampling for the health endpoint is optional
	var stats handlers.StatsSampler
	if sampler, err := monitoring.NewSampler(); err != nil {
		log.Warn().Err(err).Msg("System stats unavailable")
	} else {
		stats = sampler
	}

	// Set up router
	router := api.NewRouter(api.Deps{
		Hub:            hub,
		Tokens:         tokens,
		Auth:           authService,
		Users:          userService,
		Messages:       messageService,
		Events:         eventService,
		Stats:          stats,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}
