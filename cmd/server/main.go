package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"infinite-experiment/clubhouse/internal/api"
	"infinite-experiment/clubhouse/internal/common"
	"infinite-experiment/clubhouse/internal/config"
	"infinite-experiment/clubhouse/internal/db"
	"infinite-experiment/clubhouse/internal/jobs"
	"infinite-experiment/clubhouse/internal/logging"
	"infinite-experiment/clubhouse/internal/metrics"
	"infinite-experiment/clubhouse/internal/routes"
	"infinite-experiment/clubhouse/internal/workers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	if err := logging.Init(cfg.AppEnv); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("Clubhouse starting up",
		"environment", cfg.AppEnv,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	dsn := cfg.PostgresDSN()

	// Connect to DB with GORM
	gdb, err := db.InitPostgresORM(dsn)
	if err != nil {
		logging.Fatal("Failed to connect to Postgres (GORM)", "error", err.Error())
	}
	if err := db.Migrate(gdb); err != nil {
		logging.Fatal("Failed to migrate schema", "error", err.Error())
	}
	logging.Info("Connected to Postgres (GORM)")

	// Connect to DB with sqlx
	if err := db.InitPostgres(dsn); err != nil {
		logging.Fatal("Failed to connect to Postgres (sqlx)", "error", err.Error())
	}
	logging.Info("Connected to Postgres (sqlx)")

	var (
		redisClient *redis.Client
		redisQueue  *common.RedisQueueService
	)
	if cfg.RedisHost != "" {
		redisClient = common.NewRedisClient(cfg.RedisAddr(), cfg.RedisPassword)
		redisQueue = common.NewRedisQueueService(redisClient)
	} else {
		logging.Warn("REDIS_HOST not set, mail is delivered without the outbox")
	}

	metricsReg := metrics.NewMetricsRegistry(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender, err := api.NewMailSender(cfg)
	if err != nil {
		logging.Fatal("Failed to configure mail delivery", "error", err.Error())
	}
	wc := workers.InitWorkers(ctx, cfg.TaskWorkers, cfg.TaskQueueSize, redisQueue, sender, metricsReg)

	deps, err := api.InitDependencies(ctx, cfg, gdb, redisClient, sender, wc.Tasks, metricsReg)
	if err != nil {
		logging.Fatal("Failed to initialize dependencies", "error", err.Error())
	}

	jobs.InitializeJobs(ctx, db.DB, metricsReg)

	router := routes.RegisterRoutes(routes.RouterDeps{
		Deps:       deps,
		SQL:        db.DB,
		Redis:      redisClient,
		MetricsReg: metricsReg,
		UpSince:    time.Now(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Server starting", "port", cfg.AppPort, "environment", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("HTTP server failed", "error", err.Error())
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP shutdown failed", "error", err.Error())
	}
	if err := wc.Tasks.Shutdown(shutdownCtx); err != nil {
		logging.Error("Task pool shutdown failed", "error", err.Error())
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
