package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/reminderd/config"
	"github.com/jwalitptl/reminderd/internal/email"
	adherenceHandler "github.com/jwalitptl/reminderd/internal/handler/adherence"
	healthHandler "github.com/jwalitptl/reminderd/internal/handler/health"
	medicineHandler "github.com/jwalitptl/reminderd/internal/handler/medicine"
	promHandler "github.com/jwalitptl/reminderd/internal/handler/prometheus"
	reminderHandler "github.com/jwalitptl/reminderd/internal/handler/reminder"
	"github.com/jwalitptl/reminderd/internal/repository"
	"github.com/jwalitptl/reminderd/internal/repository/memory"
	"github.com/jwalitptl/reminderd/internal/repository/postgres"
	"github.com/jwalitptl/reminderd/internal/router"
	adherenceService "github.com/jwalitptl/reminderd/internal/service/adherence"
	"github.com/jwalitptl/reminderd/internal/service/detector"
	"github.com/jwalitptl/reminderd/internal/service/escalation"
	medicineService "github.com/jwalitptl/reminderd/internal/service/medicine"
	reminderService "github.com/jwalitptl/reminderd/internal/service/reminder"
	"github.com/jwalitptl/reminderd/internal/worker"
	"github.com/jwalitptl/reminderd/pkg/delivery"
	"github.com/jwalitptl/reminderd/pkg/logger"
	messagingredis "github.com/jwalitptl/reminderd/pkg/messaging/redis"
	"github.com/jwalitptl/reminderd/pkg/metrics"
	"github.com/jwalitptl/reminderd/pkg/validator"
)

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

	m := metrics.NewMetrics("reminderd", "core")
	clock := clockwork.NewRealClock()

	// Storage: postgres when reachable, in-memory otherwise. A dead database
	// must not stop reminders from sounding.
	var (
		db          *sqlx.DB
		medicines   repository.MedicineRepository
		doseRecords repository.DoseRecordRepository
	)
	db, err = postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Warn("database unreachable, falling back to in-memory store", "error", err.Error())
		db = nil
		medicines = memory.NewMedicineRepository()
		doseRecords = memory.NewDoseRecordRepository()
	} else {
		defer db.Close()
		medicines = postgres.NewMedicineRepository(db)
		doseRecords = postgres.NewDoseRecordRepository(db)
	}

	// Delivery: redis pub/sub plus the deferred queue when the broker is up,
	// log-only emission otherwise.
	var (
		dlv         delivery.Service
		redisClient *goredis.Client
	)
	broker, err := messagingredis.NewRedisBroker(messagingredis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.ZL())
	if err != nil {
		appLogger.Warn("redis unreachable, notifications will only be logged", "error", err.Error())
		dlv = delivery.NewLogDelivery(appLogger)
	} else {
		defer broker.Close()
		redisClient = broker.Client()
		dlv = delivery.NewRedisDelivery(broker, redisClient, appLogger, m)
	}

	alerts := email.NewService(cfg.Email, appLogger)
	engine := escalation.NewEngine(cfg.Escalation, clock, dlv, alerts, appLogger, m)

	v := validator.New()
	medicineSvc := medicineService.NewService(medicines, v, engine, appLogger)
	adherenceSvc := adherenceService.NewService(medicines, doseRecords, appLogger)
	reminderSvc := reminderService.NewService(medicines, doseRecords, engine, clock, adherenceSvc, appLogger)

	det := detector.New(cfg.Detector, appLogger, m)
	poller := worker.NewPoller(det, engine, medicines, doseRecords, clock, cfg.Detector.PollInterval, appLogger)

	prom := promHandler.New()
	r := router.NewRouter(cfg, appLogger.ZL(), prom,
		medicineHandler.NewHandler(medicineSvc),
		reminderHandler.NewHandler(reminderSvc, engine),
		adherenceHandler.NewHandler(adherenceSvc),
		healthHandler.NewHandler(db, redisClient),
	)
	r.Setup()

	pollCtx, stopPoller := context.WithCancel(context.Background())
	go poller.Start(pollCtx)

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down")

	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "server shutdown failed")
	}

	// With a broker up, open sessions hand their remaining emissions to the
	// deferred queue so the dispatcher keeps nagging across the restart.
	// Without one there is nothing to hand off to; cancel cleanly.
	if redisClient != nil {
		engine.EnterBackground(shutdownCtx)
	} else {
		engine.Shutdown()
	}
	appLogger.Info("shutdown complete")
}
