// Package main is the entry point for trainwatch, a daemon that ingests
// Trafikverket train position and announcement push streams into SQLite,
// enforces a bounded retention window, and serves a JSON read API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rhersen/trainwatch/internal/config"
	"github.com/rhersen/trainwatch/internal/database"
	"github.com/rhersen/trainwatch/internal/ingest"
	"github.com/rhersen/trainwatch/internal/retention"
	"github.com/rhersen/trainwatch/internal/server"
	"github.com/rhersen/trainwatch/internal/store"
	"github.com/rhersen/trainwatch/internal/stream"
	"github.com/rhersen/trainwatch/internal/trafikverket"
	"github.com/rhersen/trainwatch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting trainwatch")

	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	st := store.New(db.Conn(), log)
	if err := st.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}

	// Provider protocol pieces shared by both feeds
	queries := trafikverket.NewQueryBuilder(cfg.APIKey, cfg.LookbackWindow)
	client := trafikverket.NewClient(cfg.APIURL, log)
	transport := stream.NewSSETransport()

	positions := stream.NewManager(stream.Config{
		Name: "position",
		Handshake: func(ctx context.Context) (string, error) {
			return client.NegotiateStream(ctx, queries.PositionQuery(time.Now()))
		},
		Transport: transport,
		OnMessage: ingest.Positions(st, log),
		Log:       log,
	})

	announcements := stream.NewManager(stream.Config{
		Name: "announcement",
		Handshake: func(ctx context.Context) (string, error) {
			return client.NegotiateStream(ctx, queries.AnnouncementQuery(time.Now()))
		},
		Transport: transport,
		OnMessage: ingest.Announcements(st, log),
		Log:       log,
	})

	cleanup := retention.New(st, cfg.CleanupInterval, cfg.RetentionHours, log)
	cleanup.Start()

	positions.Connect()
	announcements.Connect()

	srv := server.New(server.Config{
		Log:           log,
		Store:         st,
		DB:            db,
		DataDir:       cfg.DataDir,
		Port:          cfg.Port,
		Positions:     positions,
		Announcements: announcements,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	cleanup.Stop()
	positions.Disconnect()
	announcements.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
