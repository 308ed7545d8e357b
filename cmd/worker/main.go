package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/taakra/engine/pkg/config"
	"github.com/taakra/engine/pkg/database"
	"github.com/taakra/engine/pkg/logger"

	"github.com/taakra/engine/internal/queue/tasks"
	"github.com/taakra/engine/internal/realtime"
	"github.com/taakra/engine/internal/repository"
	"github.com/taakra/engine/internal/services"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.RedisAddr == "" {
		log.Fatal("REDIS_ADDR is required for the worker")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
	})
	scheduler := asynq.NewScheduler(redisOpt, nil)
	if err := tasks.RegisterSchedules(scheduler, cfg.DeactivateEnded); err != nil {
		log.Fatal("schedule registration failed", zap.Error(err))
	}

	// Initialize DB and repositories for task handlers
	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.Options{MaxOpenConns: cfg.AsynqConcurrency})
	if err != nil {
		logger.L().Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close(db)

	// worker pushes into the same channel the API gateways subscribe to
	pusher := realtime.NewNotifier(realtime.NewRedisBroker(rdb, realtime.DefaultChannel))
	competitionSvc := services.NewCompetitionService(
		repository.NewCompetitionRepository(db),
		repository.NewCategoryRepository(db),
		nil,
	)

	mux := asynq.NewServeMux()
	tasks.NewHandler(pusher, competitionSvc).Register(mux)

	logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
	if err := srv.Start(mux); err != nil {
		logger.L().Fatal("worker start failed", zap.Error(err))
	}
	logger.L().Info("asynq scheduler starting", zap.Bool("deactivate_ended", cfg.DeactivateEnded))
	if err := scheduler.Start(); err != nil {
		srv.Shutdown()
		logger.L().Fatal("scheduler start failed", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))

	// Allow in-flight tasks to finish gracefully
	scheduler.Shutdown()
	srv.Shutdown()
}
