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
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Parhamrhh/course-registration-performance-testing/internal/registration"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/repository"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/service"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/cache"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/config"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/database"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/logger"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/tracing"
)

// @title Course Registration API
// @version 1.0.0
// @description Course registration with per-course capacity and a bounded reserve queue
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	if err := run(cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, cfg.Cache.Enabled)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer redisClient.Close()
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	students := repository.NewStudentRepository(db)
	semesters := repository.NewSemesterRepository(db)
	courses := repository.NewCourseRepository(db)
	registrations := repository.NewRegistrationRepository(db)
	events := repository.NewRegistrationEventRepository(db)

	engine := registration.NewEngine(registrations, registration.Options{
		LockTimeout:   cfg.Registration.LockTimeout,
		EnforceWindow: cfg.Registration.EnforceWindow,
		Observer:      metrics,
		Logger:        logr,
	})

	eventSvc := service.NewEventService(events, service.EventConfig{
		Enabled:    cfg.Events.Enabled,
		Workers:    cfg.Events.Workers,
		BufferSize: cfg.Events.BufferSize,
		MaxRetries: cfg.Events.MaxRetries,
	}, logr)
	eventSvc.Start(ctx)

	deps := routeDeps{
		auth: service.NewAuthService(students, validate, logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		}),
		catalog:      service.NewCatalogService(semesters, courses, cacheSvc, metrics, validate, logr),
		registration: service.NewRegistrationService(engine, registrations, semesters, cacheSvc, eventSvc, metrics, validate, logr),
		roster:       service.NewRosterService(registrations, courses, cfg.Roster.Enabled, logr),
		metrics:      metrics,
		db:           db,
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, logr, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	if err := eventSvc.Stop(shutdownCtx); err != nil {
		logr.Warn("event queue drain", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Warn("tracer shutdown", zap.Error(err))
	}
	logr.Info("server stopped", zap.Int("active_course_locks", engine.ActiveLocks()))
	return nil
}
