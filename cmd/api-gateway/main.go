package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/mfi-loan-engine/api/swagger"
	"github.com/noah-isme/mfi-loan-engine/internal/handler"
	"github.com/noah-isme/mfi-loan-engine/internal/middleware"
	"github.com/noah-isme/mfi-loan-engine/internal/repository"
	"github.com/noah-isme/mfi-loan-engine/internal/service"
	"github.com/noah-isme/mfi-loan-engine/pkg/cache"
	"github.com/noah-isme/mfi-loan-engine/pkg/config"
	"github.com/noah-isme/mfi-loan-engine/pkg/database"
	"github.com/noah-isme/mfi-loan-engine/pkg/logger"
	corsmiddleware "github.com/noah-isme/mfi-loan-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mfi-loan-engine/pkg/middleware/requestid"
)

// @title MFI Loan Engine API
// @version 0.1.0
// @description Loan amortization, arrears classification and portfolio reclassification
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Preview.CacheEnabled || cfg.Reclassifier.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
			redisClient = nil
		}
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Preview.CacheTTL, logr, cfg.Preview.CacheEnabled)

	loanRepo := repository.NewLoanRepository(db)
	stateRepo := repository.NewLoanStateRepository(db)

	loanSvc := service.NewLoanService(loanRepo, stateRepo, cacheSvc, metricsSvc, cfg.Preview.CacheTTL, validator.New(), logr)
	reclassifierSvc := service.NewReclassifierService(loanRepo, stateRepo, cacheSvc, metricsSvc, logr.Named("reclassifier"), service.ReclassifierConfig{
		Workers:    cfg.Reclassifier.Workers,
		MaxRetries: cfg.Reclassifier.MaxRetries,
		RetryDelay: cfg.Reclassifier.RetryDelay,
		Timeout:    cfg.Reclassifier.Timeout,
		Interval:   cfg.Reclassifier.Interval,
	})
	if cfg.Reclassifier.Enabled {
		reclassifierSvc.Start(ctx)
		logr.Info("scheduled reclassification enabled", zap.Duration("interval", cfg.Reclassifier.Interval))
	}

	loanHandler := handler.NewLoanHandler(loanSvc, reclassifierSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
		"postgres": handler.PingFunc(db.PingContext),
		"redis":    cacheRepo,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/snapshot", metricsHandler.Snapshot)

	loans := api.Group("/loans")
	loans.POST("/schedule/preview", loanHandler.PreviewSchedule)
	loans.GET("/states", loanHandler.ListStates)
	loans.GET("/portfolio/summary", loanHandler.PortfolioSummary)
	loans.POST("/reclassify", loanHandler.Reclassify)
	loans.GET("/:id/state", loanHandler.LoanState)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
