package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/reminderd/config"
	"github.com/jwalitptl/reminderd/internal/worker"
	"github.com/jwalitptl/reminderd/pkg/logger"
	messagingredis "github.com/jwalitptl/reminderd/pkg/messaging/redis"
	"github.com/jwalitptl/reminderd/pkg/metrics"
)

func setupHealthCheck(appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			appLogger.Fatal(err, "health check server failed")
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	appLogger := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})

	// The dispatcher exists to deliver notifications the API deferred into
	// redis; without redis there is no work to do.
	broker, err := messagingredis.NewRedisBroker(messagingredis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.ZL())
	if err != nil {
		appLogger.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	dispatcher := worker.NewDispatcher(
		broker.Client(),
		broker,
		worker.DispatcherConfig{
			BatchSize:     cfg.Dispatcher.BatchSize,
			PollInterval:  cfg.Dispatcher.PollInterval,
			RetryAttempts: cfg.Dispatcher.RetryAttempts,
			RetryDelay:    cfg.Dispatcher.RetryDelay,
		},
		appLogger,
		metrics.NewMetrics("reminderd", "dispatcher"),
	)

	setupHealthCheck(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.Info("shutting down")
		cancel()
	}()

	dispatcher.Start(ctx)
}
