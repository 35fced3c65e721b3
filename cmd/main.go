package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Gopher0727/occult/config"
	"github.com/Gopher0727/occult/internal/events"
	"github.com/Gopher0727/occult/internal/model"
	"github.com/Gopher0727/occult/internal/pkg/kafka"
	"github.com/Gopher0727/occult/internal/pkg/redis"
	"github.com/Gopher0727/occult/internal/repository"
	"github.com/Gopher0727/occult/internal/service"
	"github.com/Gopher0727/occult/internal/storage"
	"github.com/Gopher0727/occult/internal/utils"
	"github.com/Gopher0727/occult/middleware/jwt"
	logger "github.com/Gopher0727/occult/middleware/log"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("OCCULT_CONFIG"), "path to a YAML config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	db, err := storage.Open(&cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("failed to open database", logger.Err(err))
	}
	defer storage.Close(db)

	if err := storage.Migrate(db); err != nil {
		appLogger.Fatal("failed to migrate schema", logger.Err(err))
	}

	// redis is optional; nil interfaces disable the cache and slow mode
	var (
		cache   service.Cache
		limiter service.RateLimiter
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			appLogger.Fatal("failed to connect to redis", logger.Err(err))
		}
		defer redisClient.Close()
		cache = redisClient
		limiter = redis.NewLimiter(redisClient, appLogger.Logger, true)
	}

	var dispatcher events.IDispatcher = events.Nop{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(&cfg.Kafka)
		if err != nil {
			appLogger.Fatal("failed to create kafka producer", logger.Err(err))
		}
		defer producer.Close()

		pool := utils.NewWorkerPool(cfg.Events.Workers, cfg.Events.QueueSize, appLogger.Logger)
		pool.Start()
		// drain queued events before the producer closes
		defer pool.Stop()

		dispatcher = events.NewDispatcher(producer, pool, appLogger)
	}

	tokens := jwt.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	deps := service.NewDeps(repository.NewStore(db), cache, tokens, model.SystemClock{}, dispatcher, appLogger)
	deps.Limiter = limiter
	// no transport is mounted here; embedders mount the services they need
	_ = service.NewServices(deps, cfg)

	appLogger.Info("occult core ready",
		zap.String("database", cfg.Database.Driver),
		zap.Bool("cache", cfg.Redis.Enabled),
		zap.Bool("events", cfg.Kafka.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	appLogger.Info("shutting down")
}
