package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/yourusername/trivia-host/internal/config"
	"github.com/yourusername/trivia-host/internal/domain/repository"
	"github.com/yourusername/trivia-host/internal/handler"
	"github.com/yourusername/trivia-host/internal/live"
	"github.com/yourusername/trivia-host/internal/middleware"
	"github.com/yourusername/trivia-host/internal/repository/memory"
	pgRepo "github.com/yourusername/trivia-host/internal/repository/postgres"
	redisRepo "github.com/yourusername/trivia-host/internal/repository/redis"
	"github.com/yourusername/trivia-host/internal/service"
	ws "github.com/yourusername/trivia-host/internal/websocket"
	"github.com/yourusername/trivia-host/pkg/auth"
	"github.com/yourusername/trivia-host/pkg/database"
	"github.com/yourusername/trivia-host/pkg/logger"
)

func main() {
	// .env необязателен: в контейнере переменные приходят из окружения
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Не удалось прочитать .env")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Info().Str("path", configPath).Msg("Загрузка конфигурации")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Setup(cfg.Log)

	// Хранилище: PostgreSQL или данные в памяти процесса
	var (
		repos     repository.Repositories
		uow       repository.UnitOfWork
		db        *gorm.DB
		healthChk = map[string]handler.HealthCheck{}
	)
	if cfg.Database.IsMemory() {
		store := memory.NewStore()
		if cfg.Database.FixturePath != "" {
			if err := store.LoadFixture(cfg.Database.FixturePath); err != nil {
				log.Fatal().Err(err).Msg("Failed to load fixture")
			}
		}
		log.Warn().Msg("Используется хранилище в памяти: данные будут потеряны при перезапуске")
		repos, uow = store.Repositories(), store
	} else {
		db, err = database.NewPostgresDB(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
		repos, uow = pgRepo.NewRepositories(db), pgRepo.NewUnitOfWork(db)
		healthChk["postgres"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	// Redis: кеш табло, rate limiting, кластерная рассылка WebSocket
	var (
		redisClient    redis.UniversalClient
		cacheRepo      repository.CacheRepository
		pubSubProvider ws.PubSubProvider = &ws.NoOpPubSub{}
	)
	if cfg.Redis.Enabled {
		redisClient, err = database.NewUniversalRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Msg("Successfully connected to Redis")

		cache, err := redisRepo.NewCacheRepo(redisClient, cfg.Redis.KeyPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize CacheRepo")
		}
		cacheRepo = cache
		healthChk["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}

		if cfg.WebSocket.Cluster.Enabled {
			provider, err := ws.NewRedisPubSub(redisClient)
			if err != nil {
				log.Error().Err(err).Msg("Ошибка при создании Redis PubSub провайдера, кластеризация WS будет неактивна")
			} else {
				pubSubProvider = provider
			}
		}
	}

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize JWTService")
	}

	wsHub := ws.NewHub(cfg.WebSocket, pubSubProvider)
	if err := wsHub.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start WebSocket hub")
	}
	wsManager := ws.NewManager(wsHub)
	registry := live.NewRegistry()

	scoreService := service.NewScoreService(repos, cacheRepo, cfg.Game)
	progressionService := service.NewProgressionService(repos, uow, cacheRepo, wsManager, cfg.Game)
	answerService := service.NewAnswerService(repos, uow, scoreService, wsManager, cfg.Game)

	routes := &handler.Routes{
		Auth:       middleware.NewAuthMiddleware(jwtService),
		Authorizer: progressionService,
		Game:       handler.NewGameHandler(progressionService, registry, cfg.Game.JoinURLBase),
		Score:      handler.NewScoreHandler(scoreService),
		Answer:     handler.NewAnswerHandler(answerService),
		WS: handler.NewWSHandler(wsManager, progressionService, repos, registry, jwtService,
			ws.ClientConfigFrom(cfg.WebSocket), cfg.Server.AllowedOrigins),
		Health: handler.NewHealthHandler(healthChk, wsManager.GetMetrics),
	}
	if cfg.RateLimit.Enabled && redisClient != nil {
		routes.PlayLimit = middleware.NewRateLimiter(redisClient).Limit(middleware.PlayRateLimitPolicy(cfg.RateLimit))
	}

	isProduction := gin.Mode() == gin.ReleaseMode
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.RequestTimeout(cfg.Server.RequestTimeout))

	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Warn().Err(err).Msg("Failed to set trusted proxies")
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Warn().Err(err).Msg("Failed to set trusted proxies")
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.Register(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Str("port", cfg.Server.Port).Str("db_driver", cfg.Database.Driver).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Закрываем соединения клиентов и подписку кластера
	wsHub.Close()
	if err := pubSubProvider.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing PubSub provider")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing Redis client")
		}
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing database")
			}
		}
	}

	log.Info().Msg("Server exited properly")
}
