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

	"github.com/bridgekit/custody-schedule-api/internal/handler"
	"github.com/bridgekit/custody-schedule-api/internal/messaging"
	"github.com/bridgekit/custody-schedule-api/internal/middleware"
	"github.com/bridgekit/custody-schedule-api/internal/repository"
	"github.com/bridgekit/custody-schedule-api/internal/service"
	"github.com/bridgekit/custody-schedule-api/pkg/cache"
	"github.com/bridgekit/custody-schedule-api/pkg/config"
	"github.com/bridgekit/custody-schedule-api/pkg/database"
	"github.com/bridgekit/custody-schedule-api/pkg/export"
	"github.com/bridgekit/custody-schedule-api/pkg/logger"
	corsmiddleware "github.com/bridgekit/custody-schedule-api/pkg/middleware/cors"
	reqidmiddleware "github.com/bridgekit/custody-schedule-api/pkg/middleware/requestid"
	"github.com/bridgekit/custody-schedule-api/pkg/storage"
)

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, calendar caching disabled", "error", err)
		redisClient = nil
	}

	eventRepo := repository.NewEventRepository(db)
	requestRepo := repository.NewChangeRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(cfg.JWT)
	validate := validator.New()

	opts := []service.ChangeRequestServiceOption{
		service.WithCacheInvalidator(cacheRepo),
		service.WithWorkflowMetrics(metricsService),
	}

	var documentService *service.DocumentService
	if cfg.Documents.Enabled {
		store, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init document storage", "error", err)
		}
		documentService = service.NewDocumentService(export.NewPDFExporter(), store, metricsService, logr, service.DocumentServiceConfig{
			Workers:    cfg.Documents.WorkerConcurrency,
			MaxRetries: cfg.Documents.WorkerRetries,
		})
		documentService.Start(ctx)
		defer documentService.Stop()
		opts = append(opts, service.WithApprovalSinks(documentService))
	}

	var publisher *messaging.ApprovalPublisher
	if cfg.AMQP.Enabled {
		publisher, err = messaging.NewApprovalPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, logr)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to amqp broker", "error", err)
		}
		defer publisher.Close()
		opts = append(opts, service.WithApprovalSinks(publisher))
	}

	changeRequestService := service.NewChangeRequestService(eventRepo, requestRepo, auditRepo, validate, logr, opts...)
	eventService := service.NewEventService(eventRepo, eventRepo, validate, cacheRepo, cfg.Workflow.EventsCacheTTL, auditRepo, logr)

	eventHandler := handler.NewEventHandler(eventService)
	changeRequestHandler := handler.NewChangeRequestHandler(changeRequestService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authService))
	{
		calendar := api.Group("/calendar")
		calendar.GET("/events", eventHandler.List)
		calendar.POST("/events", eventHandler.Create)
		calendar.GET("/events/:id", eventHandler.Get)

		requests := calendar.Group("/change-requests")
		requests.POST("", changeRequestHandler.Create)
		requests.GET("", changeRequestHandler.List)
		requests.POST("/preview", changeRequestHandler.Preview)
		requests.GET("/:id", changeRequestHandler.Get)
		requests.POST("/:id/resolve", changeRequestHandler.Resolve)
		requests.GET("/:id/alternatives", changeRequestHandler.Alternatives)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
