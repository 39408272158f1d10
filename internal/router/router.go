// Package router assembles the gin engine: ambient middleware, probes, docs and
// the catalog routes under the API prefix.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/course-catalog-api/internal/handler"
	"github.com/noah-isme/course-catalog-api/internal/middleware"
	"github.com/noah-isme/course-catalog-api/internal/service"
	appErrors "github.com/noah-isme/course-catalog-api/pkg/errors"
	"github.com/noah-isme/course-catalog-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-catalog-api/pkg/middleware/cors"
	"github.com/noah-isme/course-catalog-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/course-catalog-api/pkg/middleware/requestid"
	"github.com/noah-isme/course-catalog-api/pkg/response"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Categories  *handler.CategoryHandler
	Courses     *handler.CourseHandler
	Students    *handler.StudentHandler
	Enrollments *handler.EnrollmentHandler
	Health      *handler.HealthHandler
}

// Options configures the ambient middleware.
type Options struct {
	Prefix         string
	AllowedOrigins []string
	RateLimitRPS   int
	RateLimitBurst int
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
}

// New builds the engine.
func New(h Handlers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Prefix == "" {
		opts.Prefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics))

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.ErrNotFound)
	})

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", h.Health.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.Prefix)
	if opts.RateLimitRPS > 0 {
		api.Use(ratelimit.New(opts.RateLimitRPS, opts.RateLimitBurst, opts.Logger).Middleware())
	}

	categories := api.Group("/categories")
	categories.GET("", h.Categories.List)
	categories.POST("", h.Categories.Create)
	categories.GET("/:id", h.Categories.Get)
	categories.PUT("/:id", h.Categories.Update)
	categories.PATCH("/:id", h.Categories.Patch)
	categories.DELETE("/:id", h.Categories.Delete)
	categories.GET("/:id/courses", h.Categories.Courses)

	courses := api.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.POST("", h.Courses.Create)
	courses.GET("/popular", h.Courses.Popular)
	courses.GET("/export", h.Courses.Export)
	courses.GET("/:id", h.Courses.Get)
	courses.PUT("/:id", h.Courses.Update)
	courses.PATCH("/:id", h.Courses.Patch)
	courses.DELETE("/:id", h.Courses.Delete)
	courses.GET("/:id/students", h.Courses.Students)

	students := api.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/active", h.Students.Active)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.PATCH("/:id", h.Students.Patch)
	students.DELETE("/:id", h.Students.Delete)
	students.GET("/:id/courses", h.Students.Courses)

	enrollments := api.Group("/enrollments")
	enrollments.GET("", h.Enrollments.List)
	enrollments.POST("", h.Enrollments.Create)
	enrollments.GET("/:id", h.Enrollments.Get)
	enrollments.PUT("/:id", h.Enrollments.Update)
	enrollments.PATCH("/:id", h.Enrollments.Patch)
	enrollments.DELETE("/:id", h.Enrollments.Delete)

	return r
}
