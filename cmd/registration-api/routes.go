package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	_ "github.com/Parhamrhh/course-registration-performance-testing/api/swagger"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/handler"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/middleware"
	"github.com/Parhamrhh/course-registration-performance-testing/internal/service"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/config"
	"github.com/Parhamrhh/course-registration-performance-testing/pkg/logger"
	corsmiddleware "github.com/Parhamrhh/course-registration-performance-testing/pkg/middleware/cors"
	reqidmiddleware "github.com/Parhamrhh/course-registration-performance-testing/pkg/middleware/requestid"
)

type routeDeps struct {
	auth         *service.AuthService
	catalog      *service.CatalogService
	registration *service.RegistrationService
	roster       *service.RosterService
	metrics      *service.MetricsService
	db           handler.Pinger
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(deps.auth)
	catalogHandler := handler.NewCatalogHandler(deps.catalog)
	registrationHandler := handler.NewRegistrationHandler(deps.registration)
	rosterHandler := handler.NewRosterHandler(deps.roster)
	requireStudent := middleware.JWT(deps.auth)

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", requireStudent, authHandler.Me)

	semesters := api.Group("/semesters")
	semesters.GET("", catalogHandler.ListSemesters)
	semesters.GET("/:id", catalogHandler.GetSemester)
	semesters.GET("/:id/courses", catalogHandler.ListCourses)
	semesters.GET("/:id/my-courses", requireStudent, registrationHandler.MyCourses)

	courses := api.Group("/courses")
	courses.GET("/:id", catalogHandler.GetCourse)
	courses.GET("/:id/availability", registrationHandler.Availability)
	courses.POST("/:id/register", requireStudent, registrationHandler.Register)
	courses.POST("/:id/drop", requireStudent, registrationHandler.Drop)
	courses.GET("/:id/roster", requireStudent, rosterHandler.Roster)

	return r
}
