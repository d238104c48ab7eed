package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pricedrp9/pulse-map/internal/handler"
	"github.com/pricedrp9/pulse-map/internal/mailer"
	"github.com/pricedrp9/pulse-map/internal/middleware"
	"github.com/pricedrp9/pulse-map/internal/notify"
	"github.com/pricedrp9/pulse-map/internal/repository"
	"github.com/pricedrp9/pulse-map/internal/service"
	"github.com/pricedrp9/pulse-map/pkg/cache"
	"github.com/pricedrp9/pulse-map/pkg/config"
	"github.com/pricedrp9/pulse-map/pkg/database"
	"github.com/pricedrp9/pulse-map/pkg/logger"
	corsmiddleware "github.com/pricedrp9/pulse-map/pkg/middleware/cors"
	reqidmiddleware "github.com/pricedrp9/pulse-map/pkg/middleware/requestid"
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer rdb.Close()

	feed := notify.NewFeed(rdb, logr)
	metricsSvc := service.NewMetricsService()

	pulseRepo := repository.NewPulseRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	markRepo := repository.NewMarkRepository(db)

	availabilitySvc := service.NewAvailabilityService(markRepo, pulseRepo, feed, metricsSvc, logr)
	participantSvc := service.NewParticipantService(participantRepo, pulseRepo, feed, nil, logr)

	mail := mailer.New(pulseRepo, participantRepo, mailer.NewLogSender(logr), metricsSvc,
		cfg.Notify.FromAddress, cfg.Notify.DefaultLocale, logr)
	dispatcher := mailer.NewDispatcher(mail, mailer.DispatcherConfig{
		Workers:    cfg.Notify.WorkerConcurrency,
		MaxRetries: cfg.Notify.WorkerRetries,
		RetryDelay: cfg.Notify.RetryDelay,
	}, logr)

	pulseSvc := service.NewPulseService(pulseRepo, participantRepo, availabilitySvc, feed, dispatcher, nil, logr)
	exportSvc := service.NewExportService(pulseSvc, markRepo, metricsSvc, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher.Start(rootCtx)
	defer dispatcher.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	pulseHandler := handler.NewPulseHandler(pulseSvc)
	participantHandler := handler.NewParticipantHandler(participantSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	eventsHandler := handler.NewEventsHandler(feed, metricsSvc, logr)
	notifyHandler := handler.NewNotifyHandler(dispatcher)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/pulses", pulseHandler.Create)
		api.GET("/pulses", pulseHandler.List)
		api.GET("/pulses/:id", pulseHandler.Get)
		api.POST("/pulses/:id/finalize", pulseHandler.Finalize)
		api.POST("/pulses/:id/reopen", pulseHandler.Reopen)

		api.POST("/pulses/:id/participants", participantHandler.Join)
		api.GET("/pulses/:id/participants", participantHandler.List)
		api.PATCH("/participants/:participantId", participantHandler.Update)

		api.PUT("/pulses/:id/availability", availabilityHandler.Add)
		api.DELETE("/pulses/:id/availability", availabilityHandler.Remove)
		api.GET("/pulses/:id/availability", availabilityHandler.List)

		api.GET("/pulses/:id/events", eventsHandler.Stream)

		api.POST("/finalize", notifyHandler.Trigger)

		if cfg.Exports.Enabled {
			exportHandler := handler.NewExportHandler(exportSvc)
			api.GET("/pulses/:id/export/csv", exportHandler.CSV)
			api.GET("/pulses/:id/export/pdf", exportHandler.PDF)
			api.GET("/pulses/:id/calendar.ics", exportHandler.ICS)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
		os.Exit(1)
	}
}
