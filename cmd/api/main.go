package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taakra/engine/internal/api"
	"github.com/taakra/engine/internal/api/handlers"
	mw "github.com/taakra/engine/internal/api/middleware"
	"github.com/taakra/engine/internal/auth"
	"github.com/taakra/engine/internal/chatbot"
	"github.com/taakra/engine/internal/metrics"
	"github.com/taakra/engine/internal/queue/tasks"
	"github.com/taakra/engine/internal/realtime"
	"github.com/taakra/engine/internal/repository"
	"github.com/taakra/engine/internal/services"
	"github.com/taakra/engine/pkg/config"
	"github.com/taakra/engine/pkg/database"
	"github.com/taakra/engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting Taakra API",
		zap.String("env", cfg.AppEnv),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("socket_addr", cfg.SocketAddr),
	)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.Options{LogQueries: !cfg.IsProduction()})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	log.Info("Database connected successfully")

	checks := map[string]handlers.Pinger{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}

	// Redis backs the realtime broker, chatbot history and task queue when configured.
	var (
		broker   realtime.Broker      = realtime.NewMemoryBroker()
		history  chatbot.HistoryStore = chatbot.NewMemoryHistory(0)
		notifier services.Notifier
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

		broker = realtime.NewRedisBroker(rdb, realtime.DefaultChannel)
		history = chatbot.NewRedisHistory(rdb, 24*time.Hour)

		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()
		notifier = tasks.NewNotifier(client)
	} else {
		log.Warn("REDIS_ADDR not set, using in-process realtime fan-out and chatbot history")
		notifier = realtime.NewNotifier(broker)
	}

	var assistant chatbot.Assistant
	if cfg.GeminiAPIKey != "" {
		gemini, err := chatbot.NewGeminiAssistant(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal("gemini client init failed", zap.Error(err))
		}
		defer gemini.Close()
		assistant = gemini
	} else {
		log.Warn("GEMINI_API_KEY not set, chatbot answers with canned responses")
	}

	var google auth.OAuthProvider
	if cfg.GoogleEnabled() {
		google = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	competitionRepo := repository.NewCompetitionRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// Services
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authSvc := services.NewAuthService(userRepo, tokens, cfg.BcryptCost)
	competitionSvc := services.NewCompetitionService(competitionRepo, categoryRepo, notifier)
	categorySvc := services.NewCategoryService(categoryRepo)
	userSvc := services.NewUserService(userRepo, competitionRepo, cfg.BcryptCost)
	chatSvc := services.NewChatService(messageRepo, userRepo)
	chatbotSvc := services.NewChatbotService(assistant, history, competitionRepo, categoryRepo)

	debug := cfg.DebugErrors && !cfg.IsProduction()

	// Create router with dependencies
	router := api.NewRouter(api.Dependencies{
		Authenticator:       authSvc,
		CORSOrigins:         cfg.CORSOrigins,
		RateLimiter:         mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		AuthHandler:         handlers.NewAuthHandler(authSvc, auth.NewCookies(cfg.IsProduction()), google, cfg.ClientURL, debug),
		CompetitionsHandler: handlers.NewCompetitionsHandler(competitionSvc, debug),
		CategoriesHandler:   handlers.NewCategoriesHandler(categorySvc, debug),
		UsersHandler:        handlers.NewUsersHandler(userSvc, debug),
		ChatHandler:         handlers.NewChatHandler(chatSvc, debug),
		ChatbotHandler:      handlers.NewChatbotHandler(chatbotSvc, debug),
		HealthHandler:       handlers.NewHealthHandler(checks),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	hub := realtime.NewHub(broker)
	gateway := realtime.NewGateway(hub, chatSvc, authSvc, cfg.CORSOrigins)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return gateway.Listen(cfg.SocketAddr)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
		if err := gateway.Shutdown(shutdownCtx); err != nil {
			log.Error("gateway shutdown error", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", zap.Error(err))
		return
	}
	log.Info("server exited gracefully")
}
