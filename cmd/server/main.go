// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"courtbook/internal/booking"
	"courtbook/internal/config"
	"courtbook/internal/events"
	"courtbook/internal/members"
	"courtbook/internal/metrics"
	"courtbook/internal/scheduler"
	"courtbook/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func configPath() string {
	path := flag.String("config", "", "path to config file")
	flag.Parse()
	if *path != "" {
		return *path
	}
	if env := os.Getenv("COURTBOOK_CONFIG"); env != "" {
		return env
	}
	return "config/config.yaml"
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)
	metrics.Register()

	store, err := storage.Open(cfg.Database.Filename)
	if err != nil {
		log.Fatal().Err(err).Str("filename", cfg.Database.Filename).Msg("Failed to open database")
	}
	defer store.Close()

	sinks := events.Multi{events.LogSink{}}
	var redisSink *events.RedisSink
	if cfg.Notifications.RedisAddr != "" {
		redisSink = events.NewRedisSink(cfg.Notifications.RedisAddr, cfg.Notifications.Channel)
		sinks = append(sinks, redisSink)
		log.Info().Str("addr", cfg.Notifications.RedisAddr).Str("channel", cfg.Notifications.Channel).Msg("Redis event publishing enabled")
	}
	dispatcher := events.NewDispatcher(sinks, 128)

	deps := booking.Deps{
		Store: store,
		Sink:  dispatcher,
	}
	if cfg.Members.BaseURL != "" {
		client := members.NewClient(cfg.Members.BaseURL, cfg.MembersTimeout())
		deps.Members = client
		deps.Users = client
	}

	bookings, err := booking.New(context.Background(), booking.Config{
		GateWait:      cfg.GateWait(),
		CancelNotice:  cfg.CancelNotice(),
		SlotDuration:  cfg.SlotDuration(),
		FillWindow:    cfg.FillWindow(),
		HorizonMonths: cfg.Booking.HorizonMonths,
	}, deps)
	if err != nil {
		// Load failures are tolerated so a corrupt database does not keep
		// the service down; the scheduler starts empty.
		log.Warn().Err(err).Msg("Starting with empty state")
	}

	var cron *scheduler.Service
	if cfg.Sweep.Enabled {
		cron, err = scheduler.New()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create cron scheduler")
		}
		if err := cron.RegisterSweep(bookings, cfg.Sweep.Cron); err != nil {
			log.Fatal().Err(err).Msg("Failed to register waitlist sweep")
		}
		cron.Start()
	}

	server := newServer(cfg, bookings)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("environment", cfg.App.Environment).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	err = g.Wait()

	if cron != nil {
		if stopErr := cron.Stop(); stopErr != nil {
			log.Error().Err(stopErr).Msg("Failed to stop cron scheduler")
		}
	}
	if closeErr := bookings.Close(context.Background()); closeErr != nil {
		log.Error().Err(closeErr).Msg("Failed to close booking scheduler")
	}
	dispatcher.Close()
	if redisSink != nil {
		if closeErr := redisSink.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close redis client")
		}
	}

	if err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
