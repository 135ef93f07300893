package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"omnichannel/inquiries/internal/api"
	"omnichannel/inquiries/internal/api/middleware"
	"omnichannel/inquiries/internal/cache"
	"omnichannel/inquiries/internal/config"
	"omnichannel/inquiries/internal/db"
	"omnichannel/inquiries/internal/logger"
	"omnichannel/inquiries/internal/services"
	"omnichannel/inquiries/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (dispatcher and background tasks), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	mongoClient, mongoDb, err := db.ConnectDB(context.Background(), cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient, zapLogger); err != nil {
			zapLogger.Error("error disconnecting from MongoDB", zap.Error(err))
		}
	}()

	redisClient, err := cache.ConnectRedis(context.Background(), cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient, zapLogger); err != nil {
			zapLogger.Error("error disconnecting from Redis", zap.Error(err))
		}
	}()

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	inquiryOpts := []services.InquiryServiceOption{services.WithLogger(zapLogger)}
	if cfg.EnterpriseFeatures {
		zapLogger.Info("enterprise features enabled, installing SLA and priority extension")
		inquiryOpts = append(inquiryOpts, services.WithExtension(services.NewSLAExtension(mongoDb)))
	}
	inquiryService := services.NewInquiryService(mongoDb, inquiryOpts...)
	if err := inquiryService.EnsureIndexes(appCtx); err != nil {
		zapLogger.Fatal("failed to ensure inquiry indexes", zap.Error(err))
	}

	settingsService := services.NewSettingsService(mongoDb, cfg, redisClient, zapLogger)
	if err := settingsService.Load(appCtx); err != nil {
		zapLogger.Fatal("failed to load settings", zap.Error(err))
	}

	agentService := services.NewAgentAvailabilityService(redisClient, zapLogger)
	dispatchService := services.NewDispatchService(inquiryService, settingsService, agentService, cfg.DispatchMaxRetries, zapLogger)

	taskClient := tasks.NewClient(redisClient)
	defer func() { _ = taskClient.Close() }()

	var wg sync.WaitGroup

	// Settings edits made on any instance are followed through Redis pub/sub.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := settingsService.SubscribeToChanges(appCtx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("settings subscription stopped", zap.Error(err))
		}
	}()

	// Buffered so the service API never blocks on it
	shutdownChan := make(chan struct{}, 1)

	// Service API (always runs)
	serviceRouter := api.SetupServiceRouter(inquiryService, dispatchService, shutdownChan, zapLogger)
	serviceSrv := &http.Server{
		Addr:              ":" + cfg.ServiceApiPort,
		Handler:           serviceRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		zapLogger.Info("service API listening", zap.String("port", cfg.ServiceApiPort))
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("service API ListenAndServe error", zap.Error(err))
		}
		zapLogger.Info("service API server stopped")
	}()

	// --- Mode-specific servers ---
	var mainApiSrv *http.Server
	var taskSrv *asynq.Server
	var scheduler *asynq.Scheduler
	stopCleanup := make(chan struct{})

	zapLogger.Info("starting application", zap.String("mode", cfg.RunMode))

	apiMode := func() {
		rateLimiter := middleware.NewRateLimiterMiddleware(cfg, zapLogger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			rateLimiter.RunCleanup(time.Minute, stopCleanup)
		}()

		mainApiRouter := api.SetupRouter(cfg, api.Dependencies{
			Inquiries:   inquiryService,
			Settings:    settingsService,
			Agents:      agentService,
			TaskQueue:   taskClient,
			RateLimiter: rateLimiter,
		}, zapLogger)
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           mainApiRouter,
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			zapLogger.Info("main API listening", zap.String("port", cfg.ApiPort))
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zapLogger.Fatal("main API ListenAndServe error", zap.Error(err))
			}
			zapLogger.Info("main API server stopped")
		}()
	}

	bgMode := func() {
		// Leases left behind by a previous dispatcher are released before the first sweep.
		if _, err := taskClient.EnqueueContext(appCtx, tasks.NewUnlockAllTask(), asynq.Queue(tasks.QueueCritical)); err != nil {
			zapLogger.Error("failed to enqueue startup unlock", zap.Error(err))
		}

		processor := tasks.NewTaskProcessor(cfg, inquiryService, settingsService, dispatchService, taskClient, zapLogger)
		var mux *asynq.ServeMux
		taskSrv, mux = tasks.SetupServer(redisClient, processor, zapLogger)
		if err := taskSrv.Start(mux); err != nil {
			zapLogger.Fatal("background task server error", zap.Error(err))
		}

		scheduler, err = tasks.NewScheduler(redisClient, cfg, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed to configure scheduler", zap.Error(err))
		}
		if err := scheduler.Start(); err != nil {
			zapLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		zapLogger.Info("dispatcher started", zap.String("interval", cfg.DispatchInterval))
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		zapLogger.Fatal("invalid run mode", zap.String("mode", cfg.RunMode))
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		zapLogger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case <-shutdownChan:
		zapLogger.Info("shutdown requested via service API")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Error("service API server shutdown error", zap.Error(err))
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			zapLogger.Error("main API server shutdown error", zap.Error(err))
		}
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}

	close(stopCleanup)
	cancelApp()

	zapLogger.Info("waiting for servers to stop")
	wg.Wait()
	zapLogger.Info("server gracefully stopped")
}
