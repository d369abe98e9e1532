package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	importapp "github.com/backoffice/backend/internal/application/import"
	syncapp "github.com/backoffice/backend/internal/application/sync"
	"github.com/backoffice/backend/internal/infrastructure/cache"
	"github.com/backoffice/backend/internal/infrastructure/config"
	"github.com/backoffice/backend/internal/infrastructure/ecommerce"
	"github.com/backoffice/backend/internal/infrastructure/logger"
	"github.com/backoffice/backend/internal/infrastructure/persistence"
	"github.com/backoffice/backend/internal/interfaces/http/handler"
	"github.com/backoffice/backend/internal/interfaces/http/middleware"
	"github.com/backoffice/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("starting back office server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Connect to the database
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	storeRepo := persistence.NewGormStoreRepository(db.DB)
	syncRepo := persistence.NewGormSyncRepository(db.DB)

	// Watermark cache: Redis when configured, in-process otherwise
	var watermarks cache.WatermarkCache
	if cfg.Redis.Host != "" {
		redisCache, err := cache.NewRedisWatermarkCache(cfg.Redis)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisCache.Close()
		watermarks = redisCache
		log.Info("watermark cache backed by redis", zap.String("addr", cfg.Redis.RedisAddr()))
	} else {
		watermarks = cache.NewInMemoryWatermarkCache(cfg.Redis.TTL)
		log.Info("watermark cache running in-process")
	}

	// Platform service factory with per-session sync defaults
	factory := ecommerce.NewFactory(storeRepo, syncRepo, log, ecommerce.SyncOptions{
		BatchSize: cfg.Sync.BatchSize,
		PageSize:  cfg.Sync.PageSize,
		Client: ecommerce.ClientConfig{
			MaxRetries:      cfg.Sync.MaxRetries,
			ConnectTimeout:  cfg.Sync.ConnectTimeout,
			RequestTimeout:  cfg.Sync.RequestTimeout,
			MaxConcurrent:   cfg.Sync.MaxConcurrent,
			PolitenessDelay: cfg.Sync.PolitenessDelay,
		},
	})

	// Application services
	syncService := syncapp.NewService(factory, watermarks, log)
	importService := importapp.NewService(syncRepo, cfg.Import, log)

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("invalid trusted proxies", zap.Error(err))
		}
	}

	// Routes
	router.NewRouter(engine).
		Register(handler.NewSyncHandler(syncService)).
		Register(handler.NewImportHandler(importService)).
		Register(handler.NewSystemHandler()).
		Setup()

	// Root-level health check with a live database probe
	engine.GET("/health", healthHandler(db))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited gracefully")
}

func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.GetGinLogger(c).Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
