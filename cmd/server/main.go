package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autograder/internal/auth"
	"autograder/internal/config"
	"autograder/internal/events"
	"autograder/internal/httpapi"
	"autograder/internal/metrics"
	"autograder/internal/sandbox"
	"autograder/internal/scheduler"
	"autograder/internal/store"
	"autograder/migrations"
	"autograder/pkg/database"
	"autograder/pkg/kafka"
	"autograder/pkg/logger"
	"autograder/pkg/ratelimit"
	"autograder/pkg/tracing"
	"autograder/pkg/validation"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger("info").Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Observability.LogLevel)
	log.Info().Str("log_level", cfg.Observability.LogLevel).Msg("starting autograder server")

	tp, err := tracing.InitTracer(tracing.Config{
		ServiceName:    "autograder",
		ServiceVersion: "1.0.0",
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		OTLPInsecure:   cfg.Observability.OTLPInsecure,
		SamplingRate:   1.0,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize tracing, continuing without it")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
				log.Error().Err(err).Msg("failed to shut down tracer provider")
			}
		}()
	}

	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()
	database.Init(db)
	log.Info().Msg("connected to postgres")

	migrationsPath := "migrations"
	if _, statErr := os.Stat(migrationsPath); os.IsNotExist(statErr) {
		migrationsPath = "/app/migrations"
	}
	if err := migrations.RunMigrations(db.Raw(), migrationsPath, log); err != nil {
		log.Error().Err(err).Msg("failed to run migrations")
		os.Exit(1)
	}

	authStore := auth.NewStore(db)
	st := store.New(db)
	validator := validation.NewValidator()

	limiter, err := newRateLimiter(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize rate limiter")
		os.Exit(1)
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Enabled)
	if cfg.Kafka.Enabled {
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka producer initialized")
		defer producer.Close()
	} else {
		log.Info().Msg("kafka is disabled")
	}
	pub := events.New(producer, log)

	executor := newExecutor(cfg, st, log)
	dispatcher := scheduler.New(256, cfg.Scheduler.NThreads, executor, st, pub, log)

	ctx, cancel := context.WithCancel(context.Background())
	go dispatcher.Run(ctx)
	log.Info().Int("permits", cfg.Scheduler.NThreads).Msg("grading dispatcher running")

	collector := metrics.NewCollector()
	go reportSchedulerGauges(ctx, dispatcher, collector)

	metricsAddr := fmt.Sprintf(":%d", cfg.Observability.MetricsPort)
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("address", metricsAddr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	api := httpapi.New(authStore, st, dispatcher, pub, limiter, validator, log, cfg)

	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address()).Msg("http server listening")

		var serveErr error
		if _, certErr := os.Stat(cfg.Server.TLSCert); certErr == nil {
			serveErr = server.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			serveErr = server.ListenAndServe()
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			log.Error().Err(serveErr).Msg("http server failed")
			os.Exit(1)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down http server gracefully")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down metrics server gracefully")
	}

	log.Info().Msg("server stopped")
}

// reportSchedulerGauges samples the dispatcher's queue depth and permit
// usage on a fixed interval until ctx is cancelled.
func reportSchedulerGauges(ctx context.Context, d *scheduler.Dispatcher, c *metrics.Collector) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.SetQueueDepth(d.QueueDepth())
			c.SetPermitsAvailable(d.PermitsAvailable())
		case <-ctx.Done():
			return
		}
	}
}

// newRateLimiter picks the Redis-backed limiter when REDIS_ADDR is set,
// falling back to the in-memory limiter for single-instance deployments.
func newRateLimiter(cfg *config.Config) (httpapi.RateLimiter, error) {
	loginLimit := ratelimit.RateLimit{MaxAttempts: cfg.RateLimit.LoginMax, Window: cfg.RateLimit.LoginWindow}
	registerLimit := ratelimit.RateLimit{MaxAttempts: cfg.RateLimit.RegisterMax, Window: cfg.RateLimit.RegisterWindow}

	if cfg.RateLimit.RedisAddr == "" {
		return ratelimit.NewMemoryRateLimiter(loginLimit, registerLimit), nil
	}
	return ratelimit.NewRedisRateLimiter(cfg.RateLimit.RedisAddr, loginLimit, registerLimit)
}

func newExecutor(cfg *config.Config, st *store.Store, log *logger.Logger) *sandbox.Executor {
	return sandbox.NewExecutor(cfg.Sandbox.DockerfilesDir, cfg.Sandbox.WorkdirRoot, cfg.Sandbox.BuildTool, st, log)
}
