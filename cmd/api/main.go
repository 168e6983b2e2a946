package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"satya-chat/internal/config"
	"satya-chat/internal/db"
	apihttp "satya-chat/internal/http"
	"satya-chat/internal/repository"
	"satya-chat/internal/service"
	"satya-chat/internal/ws"
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

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	conversationRepo := repository.NewPgConversationRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	var searchLimiter service.SearchRateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, search rate limiting disabled", zap.Error(err))
		} else {
			searchLimiter = service.NewRedisSearchRateLimiter(
				redisClient,
				time.Duration(cfg.SearchRateWindowSec)*time.Second,
				cfg.SearchRateMax,
			)
		}
		cancel()
	}

	tokenSvc := service.NewTokenService(cfg.WSAuthSecret)
	if tokenSvc == nil {
		logger.Warn("ws auth secret not configured, registrations are trusted")
	}

	registry := ws.NewRegistry()
	conversationSvc := service.NewConversationService(logger, userRepo, conversationRepo)
	messageSvc := service.NewMessageService(logger, messageRepo, conversationRepo, userRepo, registry)
	aggregateSvc := service.NewAggregateService(logger, messageRepo, conversationRepo)
	searchSvc := service.NewSearchService(logger, userRepo, conversationRepo, searchLimiter)

	storeTimeout := time.Duration(cfg.StoreTimeoutSeconds) * time.Second
	dispatcher := ws.NewDispatcher(
		logger,
		registry,
		conversationSvc,
		messageSvc,
		aggregateSvc,
		searchSvc,
		tokenSvc,
		storeTimeout,
	)

	profileHandler := apihttp.NewProfileHandler(logger, userRepo, pool)
	wsHandler := apihttp.NewWSHandler(logger, registry, dispatcher)
	router := apihttp.NewRouter(logger, profileHandler, wsHandler)

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
