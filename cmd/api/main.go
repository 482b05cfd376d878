package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ratedesk/internal/api"
	"ratedesk/internal/audit"
	"ratedesk/internal/calendar"
	"ratedesk/internal/config"
	"ratedesk/internal/domain"
	"ratedesk/internal/export"
	"ratedesk/internal/google"
	"ratedesk/internal/holidays"
	"ratedesk/internal/logging"
	"ratedesk/internal/metrics"
	"ratedesk/internal/notify"
	"ratedesk/internal/pricing"
	"ratedesk/internal/repository"
	"ratedesk/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	auditDB, err := audit.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init audit database")
		return err
	}
	defer auditDB.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	states := initStates(cfg, redisClient, &logger)
	classifier, err := initClassifier(cfg, &logger)
	if err != nil {
		return err
	}

	pricingClient := pricing.NewClient(cfg.Backend, &logger)

	svcOpts := []calendar.Option{calendar.WithAuditor(auditDB)}
	if notifier := initNotifier(cfg, &logger); notifier != nil {
		svcOpts = append(svcOpts, calendar.WithNotifier(notifier))
	}
	svc := calendar.NewService(pricingClient, states, classifier, &logger, svcOpts...)

	exporter := export.NewExporter(cfg.Exports.Path, classifier, &logger)

	httpServer := api.NewHTTPServer(cfg.API, svc, cfg.Backend.HotelID, &logger,
		api.WithAuditor(auditDB),
		api.WithExporter(exporter),
		api.WithStateRateLimit(states),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)
	startSyncWorker(ctx, cfg, auditDB, redisClient, &logger)

	backupSvc := audit.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
	go backupSvc.Start(ctx)

	return serve(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initStates prefers redis with an in-memory fallback; without redis,
// sessions live in process memory only.
func initStates(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.StateRepository {
	ttl := time.Duration(cfg.Calendar.StateTTL) * time.Minute
	memory := repository.NewMemoryStateRepository(ttl)

	if redisClient == nil {
		logger.Warn().Msg("operator sessions are in-memory only")
		return memory
	}

	primary := repository.NewRedisStateRepository(redisClient, ttl)
	return repository.NewFailoverStateRepository(primary, memory, logger)
}

func initClassifier(cfg *config.Config, logger *zerolog.Logger) (*holidays.Classifier, error) {
	opts := []holidays.Option{}
	if cfg.Calendar.RestDayName != "" {
		opts = append(opts, holidays.WithRestWeekday(cfg.Calendar.RestDay(), cfg.Calendar.RestDayName))
	}

	if cfg.Calendar.HolidaysPath != "" {
		table, err := holidays.LoadTable(cfg.Calendar.HolidaysPath)
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.Calendar.HolidaysPath).Msg("load holidays table")
			return nil, err
		}
		opts = append(opts, holidays.WithTable(table))
	}

	return holidays.New(opts...), nil
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	if !cfg.Telegram.Enabled {
		return nil
	}

	notifier, err := notify.NewTelegramNotifier(cfg.Telegram, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram notifier init failed, continuing without notifications")
		return nil
	}
	return notifier
}

func startSyncWorker(ctx context.Context, cfg *config.Config, auditDB *audit.DB, redisClient *redis.Client, logger *zerolog.Logger) {
	if !cfg.Worker.Enabled {
		return
	}
	if cfg.Google.CredentialsFile == "" || cfg.Google.RateChangesSheetID == "" {
		logger.Warn().Msg("sync worker enabled but google sheets is not configured")
		return
	}

	sheetsService, err := google.NewSheetsService(
		cfg.Google.CredentialsFile,
		cfg.Google.RateChangesSheetID,
		cfg.Google.RateChangesSheetRange,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheet sync")
		return
	}

	w := worker.NewSyncWorker(auditDB, sheetsService, redisClient, worker.RetryPolicy{}, logger)
	w.SetPollInterval(time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second)
	w.SetBatchSize(cfg.Worker.BatchSize)
	go w.Start(ctx)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("calendar API started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("calendar API stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
