package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/raquezha/nuecagram/common/id"
	"github.com/raquezha/nuecagram/common/logger"
	"github.com/raquezha/nuecagram/common/otel"
	"github.com/raquezha/nuecagram/core/config"
	"github.com/raquezha/nuecagram/internal/http/middleware"
	httprouter "github.com/raquezha/nuecagram/internal/http/router"
	"github.com/raquezha/nuecagram/internal/queue"
	"github.com/raquezha/nuecagram/internal/service"
	"github.com/raquezha/nuecagram/internal/store"
	"github.com/raquezha/nuecagram/internal/telegram"
	"github.com/raquezha/nuecagram/internal/webhook"
	"github.com/raquezha/nuecagram/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses the OTel provider when an
	// endpoint is configured).
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "nuecagram starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	pipelines := store.NewPipelineStore()
	bot := telegram.NewClient(cfg.Telegram)
	delivery := service.NewDelivery(bot, pipelines)
	reconciler := service.NewReconciler(delivery, pipelines, cfg.Tracking.MaxAge)

	ingestQueue := queue.New(cfg.Webhook.QueueCapacity)

	processor := worker.NewProcessor(ingestQueue, reconciler, worker.ProcessorConfig{
		RestartDelay: cfg.Webhook.RestartDelay,
	})
	cleaner := worker.NewCleaner(pipelines, worker.CleanerConfig{
		Interval: cfg.Tracking.CleanupInterval,
		MaxAge:   cfg.Tracking.MaxAge,
	})

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	go processor.Run(workerCtx)
	go cleaner.Run(workerCtx)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, ingestQueue)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	// Close the queue first so the processor drains what is left, then stop
	// the workers.
	ingestQueue.Close()
	processor.Stop()
	cancelWorkers()
	cleaner.Stop()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, ingestQueue *queue.Queue) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates the span, Recovery catches panics, Logger
	// logs with trace context.
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, httprouter.RouterConfig{
		Validator:   webhook.NewValidator(cfg.Webhook.SecretToken),
		Queue:       ingestQueue,
		MaxBodySize: cfg.Webhook.MaxBodyBytes,
	})

	return router
}
