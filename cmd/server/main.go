package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adoptionapp "github.com/farmlink/backend/internal/application/adoption"
	farmapp "github.com/farmlink/backend/internal/application/farm"
	"github.com/farmlink/backend/internal/infrastructure/auth"
	"github.com/farmlink/backend/internal/infrastructure/cache"
	"github.com/farmlink/backend/internal/infrastructure/config"
	"github.com/farmlink/backend/internal/infrastructure/event"
	"github.com/farmlink/backend/internal/infrastructure/logger"
	"github.com/farmlink/backend/internal/infrastructure/persistence"
	"github.com/farmlink/backend/internal/infrastructure/scheduler"
	"github.com/farmlink/backend/internal/interfaces/http/handler"
	"github.com/farmlink/backend/internal/interfaces/http/middleware"
	"github.com/farmlink/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

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

	log.Info("Starting FarmLink Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Idempotency store for payment callback deduplication
	dedupStore, err := cache.NewIdempotencyStore(cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = dedupStore.Close()
	}()

	// Repositories
	projectRepo := persistence.NewGormProjectRepository(db.DB)
	unitRepo := persistence.NewGormUnitRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	recordRepo := persistence.NewGormAdoptionRecordRepository(db.DB)
	farmRepo := persistence.NewGormFarmRepository(db.DB)
	cropRepo := persistence.NewGormCropRepository(db.DB)
	allocationStore := persistence.NewGormAllocationStore(db.DB)

	// Event bus
	eventBus := event.NewInMemoryEventBus(log.Named("eventbus"))

	// Application services
	allocationCfg := adoptionapp.AllocationConfig{
		PaymentWindow: cfg.Adoption.PaymentWindow,
		RetryAttempts: cfg.Adoption.RetryAttempts,
		RetryDelay:    cfg.Adoption.RetryDelay,
	}
	allocationService := adoptionapp.NewAllocationService(allocationStore, orderRepo, allocationCfg, log.Named("allocation"))
	allocationService.SetEventPublisher(eventBus)

	paymentService := adoptionapp.NewPaymentService(allocationStore, orderRepo, dedupStore, log.Named("payment"))
	paymentService.SetEventPublisher(eventBus)

	reclaimService := adoptionapp.NewReclaimService(allocationStore, orderRepo, log.Named("reclaim"))
	reclaimService.SetBatchSize(cfg.Adoption.ReclaimBatchSize)
	projectService := adoptionapp.NewProjectService(projectRepo, unitRepo, recordRepo, log.Named("project"))
	recordService := adoptionapp.NewRecordService(recordRepo)
	farmService := farmapp.NewFarmService(farmRepo, cropRepo)

	// Background reclaimer for expired pending orders
	reclaimer := scheduler.NewReclaimScheduler(reclaimService, log.Named("scheduler"), scheduler.ReclaimSchedulerConfig{
		Enabled:      cfg.Adoption.ReclaimEnabled,
		Interval:     cfg.Adoption.ReclaimInterval,
		SweepTimeout: 5 * time.Minute,
	})
	if err := reclaimer.Start(context.Background()); err != nil {
		log.Fatal("Failed to start reclaim scheduler", zap.Error(err))
	}

	// JWT auth
	jwtService := auth.NewJWTService(cfg.JWT)
	authMW := middleware.JWTAuthMiddleware(jwtService)
	adminMW := middleware.RequireAdmin()

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
	)

	// Handlers
	projectHandler := handler.NewProjectHandler(projectService)
	orderHandler := handler.NewOrderHandler(allocationService, paymentService)
	callbackHandler := handler.NewPaymentCallbackHandler(paymentService)
	recordHandler := handler.NewRecordHandler(recordService)
	farmHandler := handler.NewFarmHandler(farmService)
	systemHandler := handler.NewSystemHandler(db.DB, reclaimer)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(router.RegistrarFunc(func(rg *gin.RouterGroup) {
		projectHandler.RegisterRoutes(rg, authMW, adminMW)
	}))
	r.Register(router.RegistrarFunc(func(rg *gin.RouterGroup) {
		orderHandler.RegisterRoutes(rg, authMW)
	}))
	r.Register(callbackHandler)
	r.Register(router.RegistrarFunc(func(rg *gin.RouterGroup) {
		recordHandler.RegisterRoutes(rg, authMW)
	}))
	r.Register(farmHandler)
	r.Register(router.RegistrarFunc(func(rg *gin.RouterGroup) {
		systemHandler.RegisterRoutes(rg, authMW, adminMW)
	}))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := reclaimer.Stop(ctx); err != nil {
		log.Error("Reclaim scheduler shutdown error", zap.Error(err))
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
