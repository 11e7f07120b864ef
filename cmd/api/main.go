package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "savefood/api/swagger" // swagger docs
	"savefood/internal/cache"
	"savefood/internal/config"
	"savefood/internal/database"
	"savefood/internal/event"
	"savefood/internal/handler"
	"savefood/internal/logger"
	"savefood/internal/metrics"
	"savefood/internal/middleware"
	"savefood/internal/repository"
	"savefood/internal/repository/memory"
	"savefood/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           SaveFood API
// @version         1.0
// @description     Food donation marketplace: donations, buy requests and OTP-verified collector handoff.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := logger.Init(&cfg.Log, cfg.Mode); err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer zap.L().Sync() //nolint:errcheck
	gin.SetMode(cfg.Mode)

	stores, err := openStores(cfg)
	if err != nil {
		zap.L().Fatal("storage init failed", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var feed cache.DonationFeed = cache.NoopFeed{}
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zap.L().Warn("redis unavailable, donation feed is not cached", zap.Error(err))
		} else {
			defer client.Close()
			feed = cache.NewRedisFeed(client, cfg.Redis.FeedTTL)
			zap.L().Info("donation feed cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	var publisher event.Publisher = event.NoopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher = event.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		zap.L().Info("lifecycle events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer publisher.Close()

	appMetrics := metrics.New(prometheus.DefaultRegisterer)
	auth := middleware.NewAuth(cfg.JWT.Secret, cfg.JWT.TTL)

	// Set up dependencies (Repository -> Service -> Handler)
	userService := service.NewUserService(stores.Users, auth)
	donationService := service.NewDonationService(stores, feed, cfg.MediaRoot)
	collectorService := service.NewCollectorService(stores, auth)
	auditService := service.NewAuditService(stores.Audit)
	statsService := service.NewStatsService(stores.Stats)
	buyRequestService := service.NewBuyRequestService(stores,
		service.WithPublisher(publisher),
		service.WithFeedCache(feed),
		service.WithMetrics(appMetrics),
	)

	userHandler := handler.NewUserHandler(userService, auth)
	donationHandler := handler.NewDonationHandler(donationService, auth)
	buyRequestHandler := handler.NewBuyRequestHandler(buyRequestService, auth)
	collectorHandler := handler.NewCollectorHandler(collectorService, buyRequestService, auth)
	auditHandler := handler.NewAuditHandler(auditService, auth)
	statsHandler := handler.NewStatsHandler(statsService, auth)

	router := gin.New()
	router.Use(logger.GinLogger(), logger.GinRecovery(true))
	router.MaxMultipartMemory = 8 << 20

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.Static("/media", cfg.MediaRoot)

	api := router.Group("/api")
	userHandler.RegisterRoutes(api)
	donationHandler.RegisterRoutes(api)
	buyRequestHandler.RegisterRoutes(api)
	collectorHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)
	statsHandler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zap.L().Info("server listening", zap.String("port", cfg.Port), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStores(cfg *config.Config) (repository.Stores, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		zap.L().Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore().Stores(), nil
	}

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		return repository.Stores{}, err
	}
	zap.L().Info("connected to PostgreSQL")
	return repository.NewStores(db), nil
}
