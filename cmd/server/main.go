package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robogate/robogate/internal/config"
	"github.com/robogate/robogate/internal/handler"
	"github.com/robogate/robogate/internal/middleware"
	"github.com/robogate/robogate/internal/pkg/logger"
	"github.com/robogate/robogate/internal/repository"
	"github.com/robogate/robogate/internal/service"
	"github.com/robogate/robogate/internal/venue"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)

	// 2. Initialize Persistence
	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("Connected to PostgreSQL")

	accountRepo := repository.NewPostgresAccountRepo(db)
	policyRepo := repository.NewPostgresPolicyRepo(db)
	tradeRepo := repository.NewPostgresTradeRepo(db)
	credentialRepo := repository.NewPostgresCredentialRepo(db)

	// Idempotency store (Redis > Memory)
	var idemStore middleware.IdempotencyStore
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("Connected to Redis")
			ttl := time.Duration(cfg.Redis.IdempotencyTTLSeconds) * time.Second
			idemStore = repository.NewRedisIdempotencyStore(redisClient, ttl)
		} else {
			logger.Error("Failed to connect to Redis, falling back to memory", "error", err)
		}
	}
	if idemStore == nil {
		idemStore = middleware.NewInMemIdempotencyStore()
	}

	// 3. Initialize Core Services
	venueClient := venue.NewClient(cfg.Venue)
	assetCache := venue.NewAssetCache(venueClient.FetchAssetMetadata, cfg.Venue.MetadataTTL(), nil)

	policySvc := service.NewPolicyService(policyRepo)
	accountSvc := service.NewAccountService(accountRepo)
	tracker := service.NewDrawdownTracker(accountRepo)
	aggregator := service.NewNotionalAggregator(tradeRepo, service.StartOfDayUTC, nil)
	credentials := service.NewStoredCredentialProvider(credentialRepo, nil)

	validator := service.NewValidator(policySvc, aggregator, credentials, venueClient, assetCache, cfg.Risk)
	executor := service.NewTradeExecutor(validator, tradeRepo, venueClient, cfg.Venue)

	// 4. Initialize Handlers
	accountHandler := handler.NewAccountHandler(accountSvc, tracker, aggregator)
	policyHandler := handler.NewPolicyHandler(policySvc)
	tradeHandler := handler.NewTradeHandler(accountSvc, validator, executor, tradeRepo)

	// 5. Setup Router
	r := gin.Default()

	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "robogate"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg))
	v1.Use(middleware.RateLimitMiddleware(cfg.Rate))
	{
		v1.POST("/accounts", accountHandler.Onboard)
		v1.GET("/accounts/:id", accountHandler.Get)
		v1.POST("/accounts/:id/equity", accountHandler.UpdateEquity)
		v1.GET("/accounts/:id/notional", accountHandler.TodayNotional)

		v1.GET("/accounts/:id/policy", policyHandler.GetCurrent)
		v1.PUT("/accounts/:id/policy", policyHandler.Upsert)

		v1.POST("/accounts/:id/trades/validate", tradeHandler.Validate)
		v1.POST("/accounts/:id/trades", middleware.IdempotencyMiddleware(idemStore), tradeHandler.Execute)
		v1.POST("/accounts/:id/trades/direct", middleware.IdempotencyMiddleware(idemStore), tradeHandler.ExecuteDirect)
		v1.GET("/accounts/:id/trades", tradeHandler.ListByAccount)
		v1.GET("/trades/:id", tradeHandler.Get)
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("robogate started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("Server exiting")
}
