// Package server contains the HTTP handlers for the catalog API.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog/internal/bootstrap"
	"catalog/internal/cache"
	"catalog/internal/config"
	"catalog/internal/database"
	"catalog/internal/media"
	"catalog/internal/middleware"
	"catalog/internal/repository"
	"catalog/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	media           media.Host
	auth            *middleware.Authenticator
	promMiddleware  *fiberprometheus.FiberPrometheus
	catalogService  *service.CatalogService
	categoryService *service.CategoryService
	statsService    *service.StatsService
}

// NewServer creates a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Media)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching and write rate limits are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, host media.Host) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if host == nil {
		return nil, errors.New("media host is required")
	}
	auth, err := middleware.NewAuthenticator(cfg)
	if err != nil {
		return nil, fmt.Errorf("identity verification: %w", err)
	}

	softwareRepo := repository.NewSoftwareRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	store := cache.New(redisClient)

	return &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		media:           host,
		auth:            auth,
		promMiddleware:  middleware.InitMetrics("catalog-api"),
		catalogService:  service.NewCatalogService(softwareRepo, categoryRepo, host, store, service.MediaOptionsFromConfig(cfg)),
		categoryService: service.NewCategoryService(categoryRepo, store),
		statsService:    service.NewStatsService(softwareRepo, categoryRepo, store),
	}, nil
}

// NewApp returns a Fiber app with the middleware chain and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Software Catalog API",
		// Multipart bodies carry one image plus form fields.
		BodyLimit:    int(s.config.ImageMaxUploadBytes()) + 1024*1024,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// Images under /media are embedded by the dashboard on another origin.
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if prefix, ok := s.localMediaPrefix(); ok {
		app.Static(prefix, s.config.MediaLocalDir, fiber.Static{MaxAge: 86400})
	}

	api := app.Group("/api")
	authRequired := s.auth.Required()
	writeLimit := middleware.WriteLimit{
		Client:  s.redis,
		Scope:   "catalog_write",
		Limit:   60,
		Window:  time.Minute,
		Enabled: s.config.RateLimitsEnabled(),
	}.Handler()

	software := api.Group("/software")
	software.Get("/", s.ListSoftware)
	// Specific /slug/:slug route before generic /:id
	software.Get("/slug/:slug", s.GetSoftwareBySlug)
	software.Get("/:id", s.GetSoftware)
	software.Post("/", authRequired, writeLimit, s.CreateSoftware)
	software.Put("/:id", authRequired, writeLimit, s.UpdateSoftware)
	software.Delete("/:id", authRequired, writeLimit, s.DeleteSoftware)

	categories := api.Group("/categories")
	categories.Get("/", s.ListCategories)
	categories.Get("/:id", s.GetCategory)
	categories.Post("/", authRequired, writeLimit, s.CreateCategory)
	categories.Put("/:id", authRequired, writeLimit, s.UpdateCategory)
	categories.Delete("/:id", authRequired, writeLimit, s.DeleteCategory)

	api.Get("/stats", s.GetStats)
}

// localMediaPrefix reports the path the local media host publishes under.
func (s *Server) localMediaPrefix() (string, bool) {
	if _, ok := s.media.(*media.LocalHost); !ok {
		return "", false
	}
	base := s.config.MediaPublicBaseURL
	if !strings.HasPrefix(base, "/") {
		return "", false
	}
	return strings.TrimRight(base, "/"), true
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: the
// API serves without cache when it is down.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "degraded"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"media":    s.media.Name(),
		},
		"time": time.Now(),
	})
}

// Shutdown releases the store and cache connections.
func (s *Server) Shutdown(_ context.Context) error {
	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
