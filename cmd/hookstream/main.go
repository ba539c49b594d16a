package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/hookstream/internal/broadcast"
	"github.com/gosuda/hookstream/internal/buffer"
	"github.com/gosuda/hookstream/internal/config"
	"github.com/gosuda/hookstream/internal/ingest"
	"github.com/gosuda/hookstream/internal/server"
	redisstore "github.com/gosuda/hookstream/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("HOOKSTREAM_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("HOOKSTREAM_LOG_FORMAT") == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	events := buffer.NewRing(cfg.Ingest.BufferCapacity)
	stream := broadcast.New(cfg.Stream.SubscriberQueue)
	defer stream.Close()

	// Optional Redis mirror of every produced batch.
	if cfg.Redis.Enabled() {
		pubsub, redisErr := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if redisErr != nil {
			return redisErr
		}
		defer pubsub.Close()

		mirror := redisstore.NewMirror(pubsub, redisstore.Channel(cfg.Redis.Channel))
		// The mirror outlives the signal so batches queued at shutdown still go out.
		stopMirror, subErr := stream.SubscribeFunc(mirror.Handler(context.WithoutCancel(ctx)))
		if subErr != nil {
			return subErr
		}
		defer stopMirror()
		log.Info().Str("addr", cfg.Redis.Addr).Str("channel", cfg.Redis.Channel).Msg("redis mirror enabled")
	}

	pipeline := ingest.NewPipeline(ingest.PipelineConfig{
		Sessions:         ingest.NewSessionDirectory(cfg.Ingest.SessionsFile),
		DefaultAgentName: cfg.Ingest.DefaultAgent,
		Sink:             events,
		Publisher:        stream,
	})

	notifier, err := ingest.NewFSNotifier()
	if err != nil {
		return err
	}
	defer notifier.Close()

	resolver := ingest.NewPathResolver(cfg.Ingest.HistoryDir, cfg.Ingest.Location)
	scheduler := ingest.NewScheduler(pipeline, resolver, notifier, cfg.Ingest.RolloverInterval)

	schedulerDone := make(chan error, 1)
	go func() {
		log.Info().Str("dir", cfg.Ingest.HistoryDir).Str("timezone", cfg.Ingest.Timezone).Msg("starting ingestion")
		schedulerDone <- scheduler.Run(ctx)
	}()

	srv := server.New(ctx, cfg, events, stream)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		serverErr <- srv.Start(ctx)
	}()

	// Block until shutdown signal or a component stops on its own.
	var runErr error
	schedulerStopped := false
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
	case runErr = <-schedulerDone:
		schedulerStopped = true
		if runErr == nil {
			runErr = errors.New("ingestion stopped unexpectedly")
		}
	}
	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Let an in-flight ingest finish before the broadcaster and notifier close.
	if !schedulerStopped {
		if waitErr := awaitStop(shutdownCtx, schedulerDone); waitErr != nil {
			log.Warn().Err(waitErr).Msg("ingestion did not stop cleanly")
		}
	}

	// Closing the broadcaster ends open streams so Shutdown does not wait on them.
	stream.Close()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return runErr
}

// awaitStop waits for a component's exit result, giving up when ctx is done.
func awaitStop(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("main.awaitStop: %w", ctx.Err())
	}
}
