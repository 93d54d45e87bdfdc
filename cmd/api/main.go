package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"persona-match/internal/catalog"
	"persona-match/internal/config"
	"persona-match/internal/db"
	apihttp "persona-match/internal/http"
	"persona-match/internal/index"
	"persona-match/internal/repository"
	"persona-match/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	traitCatalog := catalog.New()

	var (
		userRepo      repository.UserRepository
		selectionRepo repository.SelectionRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Ping(ctx, pool); err != nil {
			logger.Fatal("db ping", zap.Error(err))
		}
		userRepo = repository.NewPgUserRepository(pool)
		selectionRepo = repository.NewPgSelectionRepository(pool, traitCatalog)
	} else {
		logger.Warn("no DATABASE_URL configured, running with in-memory directory only")
		userRepo = repository.NewMemoryUserRepository()
	}

	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
	limiter := service.NewPersonaRateLimiter(window, cfg.RateLimitMax)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else if shared := service.NewRedisPersonaRateLimiter(redisClient, window, cfg.RateLimitMax); shared != nil {
			limiter = shared
		}
		cancel()
	}

	personaSvc := service.NewPersonaService(traitCatalog)
	selectionSvc := service.NewSelectionService(logger, traitCatalog, index.New(), selectionRepo)
	matchSvc := service.NewMatchService(logger, selectionSvc, userRepo)

	if err := selectionSvc.Rehydrate(ctx); err != nil {
		logger.Fatal("selection store rehydration failed", zap.Error(err))
	}

	personaHandler := apihttp.NewPersonaHandler(logger, traitCatalog, personaSvc, selectionSvc, matchSvc, limiter)
	userHandler := apihttp.NewUserHandler(logger, userRepo)
	router := apihttp.NewRouter(logger, personaHandler, userHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
