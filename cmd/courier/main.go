package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/courier/internal/api/ws"
	"github.com/gosuda/courier/internal/bus"
	"github.com/gosuda/courier/internal/config"
	"github.com/gosuda/courier/internal/hub"
	"github.com/gosuda/courier/internal/secrets"
	"github.com/gosuda/courier/internal/server"
	"github.com/gosuda/courier/internal/store/postgres"
	redisstore "github.com/gosuda/courier/internal/store/redis"
	"github.com/gosuda/courier/internal/tokens"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	genVerifyToken := flag.Bool("generate-verify-token", false,
		"print a random webhook verify token and exit")
	flag.Parse()

	if *genVerifyToken {
		token, err := secrets.GenerateVerifyToken(24)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	// Initialize structured logging from environment.
	logLevel := os.Getenv("COURIER_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("COURIER_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Build the token cipher before touching the database; a bad secret
	// should fail fast.
	vault, err := secrets.NewVault(cfg.Crypto.EncryptionSecret)
	if err != nil {
		return err
	}

	// Connect to PostgreSQL and apply the schema.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	// Message feed, optionally mirrored to Redis pub/sub. With the mirror
	// in place the WebSocket feed is served from the mirror channel, so
	// clients see messages published by every hub instance.
	var feedOpts []bus.Option
	var feedSource ws.Source
	if cfg.Redis.Addr != "" {
		pubsub, redisErr := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if redisErr != nil {
			return redisErr
		}
		defer pubsub.Close()

		feedOpts = append(feedOpts, bus.WithMirror(pubsub))
		feedSource = pubsub
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis feed mirror enabled")
	}

	feed := bus.New(cfg.Feed.Capacity, feedOpts...)

	// Platform adapters.
	manager := hub.New(cfg, feed)

	// Credential store and refresher.
	credStore := tokens.NewStore(store.Credentials(), vault)
	refresher := tokens.NewRefresher(credStore, tokens.RefresherConfig{
		GoogleClientID:     cfg.OAuth.GoogleClientID,
		GoogleClientSecret: cfg.OAuth.GoogleClientSecret,
		MetaAppID:          cfg.OAuth.MetaAppID,
		MetaAppSecret:      cfg.OAuth.MetaAppSecret,
		Window:             cfg.Refresh.Window,
	})

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Periodic refresh sweep.
	scheduler := cron.New()
	_, err = scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.Refresh.Interval), func() {
		refresher.RefreshExpiring(ctx)
	})
	if err != nil {
		return fmt.Errorf("refresh schedule: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Info().Dur("interval", cfg.Refresh.Interval).Dur("window", cfg.Refresh.Window).Msg("refresh sweep scheduled")

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, manager, feed, server.APIDeps{
		Credentials: credStore,
		Refresher:   refresher,
		FeedSource:  feedSource,
	})

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
