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
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-catalog-api/api/swagger"
	"github.com/noah-isme/course-catalog-api/internal/handler"
	"github.com/noah-isme/course-catalog-api/internal/migrations"
	"github.com/noah-isme/course-catalog-api/internal/repository"
	"github.com/noah-isme/course-catalog-api/internal/router"
	"github.com/noah-isme/course-catalog-api/internal/service"
	"github.com/noah-isme/course-catalog-api/pkg/cache"
	"github.com/noah-isme/course-catalog-api/pkg/config"
	"github.com/noah-isme/course-catalog-api/pkg/database"
	"github.com/noah-isme/course-catalog-api/pkg/logger"
)

// @title Course Catalog API
// @version 1.0.0
// @description Categories, courses, students and enrollments
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

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrate(ctx, db, logr); err != nil {
			return err
		}
	}

	metrics := service.NewMetricsService()
	cacheRepo, cacheSvc := setupCache(ctx, cfg, metrics, logr)
	if cacheRepo != nil {
		defer cacheRepo.Close() //nolint:errcheck
	}

	categoryRepo := repository.NewCategoryRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	validate := service.NewValidator()
	categories := service.NewCategoryService(categoryRepo, cacheSvc, validate, logr)
	courses := service.NewCourseService(courseRepo, categoryRepo, studentRepo, db, cacheSvc, metrics, validate, logr)
	students := service.NewStudentService(studentRepo, courseRepo, db, metrics, validate, logr)
	enrollments := service.NewEnrollmentService(enrollmentRepo, courseRepo, studentRepo, db, cacheSvc, metrics, validate, logr)
	exports := service.NewExportService(courseRepo, logr)

	var readiness interface{ Ping(context.Context) error }
	if cacheRepo != nil {
		readiness = cacheRepo
	}

	engine := router.New(router.Handlers{
		Categories:  handler.NewCategoryHandler(categories, courses),
		Courses:     handler.NewCourseHandler(courses, students, exports),
		Students:    handler.NewStudentHandler(students, courses),
		Enrollments: handler.NewEnrollmentHandler(enrollments),
		Health:      handler.NewHealthHandler(db, readiness, metrics, logr),
	}, router.Options{
		Prefix:         cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("prefix", cfg.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrate(ctx context.Context, db *sqlx.DB, logr *zap.Logger) error {
	migrator, err := migrations.New(db)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	applied, err := migrator.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logr.Info("migrations applied", zap.Strings("versions", applied))
	return nil
}

// setupCache connects Redis when caching is enabled. Connection failures
// leave the API running without a cache.
func setupCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*repository.CacheRepository, *service.CacheService) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		return nil, nil
	}
	repo := repository.NewCacheRepository(client, logr)
	return repo, service.NewCacheService(repo, metrics, cfg.Cache.TTL, logr, true)
}
