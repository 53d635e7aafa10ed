package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"telemetrygen/internal/config"
	"telemetrygen/internal/handlers"
	"telemetrygen/internal/logger"
	"telemetrygen/internal/repository"
	"telemetrygen/internal/service"
	"telemetrygen/internal/worker"
	"telemetrygen/pkg/database"
	"telemetrygen/pkg/redis"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const batchCacheTTL = 24 * time.Hour

func main() {
	// Загрузка .env
	envErr := godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	if envErr != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	log.Info().
		Str("output_dir", cfg.Telemetry.OutputDir).
		Dur("period", cfg.Period()).
		Bool("excel", cfg.Telemetry.ExcelEnabled).
		Str("database", cfg.DB.Host+":"+cfg.DB.Port+"/"+cfg.DB.DBName).
		Msg("starting telemetry generator")

	dbCfg := database.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.DBName,
		SSLMode:  cfg.DB.SSLMode,
		Debug:    cfg.DB.Debug,
	}

	// Подключение к Redis
	var cache repository.BatchCache
	var redisStats handlers.StatsFunc
	if cfg.Redis.Enabled {
		redisClient, err := redis.Connect(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error().Err(err).Msg("batch cache disabled")
		} else {
			defer redisClient.Close()
			cache = repository.NewCacheRepository(redisClient)
			redisStats = func(ctx context.Context) (map[string]string, error) {
				return redis.GetStats(ctx, redisClient)
			}
		}
	}

	generator := service.NewRecordGenerator(nil, nil)
	telemetryService := service.NewTelemetryService(generator, repository.NewPostgresStore(dbCfg), service.Options{
		OutputDir:    cfg.Telemetry.OutputDir,
		ExcelEnabled: cfg.Telemetry.ExcelEnabled,
		Cache:        cache,
		CacheTTL:     batchCacheTTL,
	})

	telemetryWorker := worker.NewTelemetryWorker(telemetryService, cfg.Period(), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if cfg.Status.Enabled {
		statusDBCfg := dbCfg
		statusDBCfg.MaxOpenConns = 4
		statusRepo := repository.NewLazyRepository(func() (*gorm.DB, error) {
			return database.Connect(statusDBCfg)
		})
		defer func() {
			if err := statusRepo.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close status database connection")
			}
		}()

		handler := handlers.NewTelemetryHandler(telemetryWorker, telemetryService, statusRepo, cache).
			WithRedisStats(redisStats)
		server = startStatusServer(cfg, handler)
	}

	telemetryWorker.Run(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("status server forced to shutdown")
		}
	}

	log.Info().Msg("shutting down gracefully")
}

func startStatusServer(cfg *config.Config, handler *handlers.TelemetryHandler) *http.Server {
	router := handlers.NewRouter(handler, handlers.RouterConfig{
		Debug:             cfg.DB.Debug,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Status.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("status server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("status server failed")
		}
	}()

	return server
}
