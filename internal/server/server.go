// Package server contains the HTTP handlers and routing for the API.
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"supplydesk/internal/adminreg"
	"supplydesk/internal/cache"
	"supplydesk/internal/config"
	"supplydesk/internal/database"
	"supplydesk/internal/ldap"
	"supplydesk/internal/middleware"
	"supplydesk/internal/models"
	"supplydesk/internal/repository"
	"supplydesk/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CredentialVerifier checks a username/password pair against the external
// authentication provider.
type CredentialVerifier interface {
	Authenticate(ctx context.Context, username, password string) (*ldap.Identity, error)
}

// AdminRegistry is the mutable set of administrator usernames.
type AdminRegistry interface {
	List() []string
	IsAdmin(username string) bool
	Add(username string) (adminreg.Result, []string, error)
	Remove(username string) (adminreg.Result, []string, error)
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	verifier       CredentialVerifier
	adminReg       AdminRegistry
	appService     *service.ApplicationService
	reportService  *service.ReportService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient, ldap.NewClient(cfg.LDAPURL), adminreg.NewRegistry(cfg.AdminFile)), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, verifier CredentialVerifier, registry AdminRegistry) *Server {
	appRepo := repository.NewApplicationRepository(db)
	reportRepo := repository.NewReportRepository(db)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("supplydesk-api"),
		verifier:       verifier,
		adminReg:       registry,
		appService:     service.NewApplicationService(appRepo),
		reportService:  service.NewReportService(reportRepo),
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID and username
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS before middlewares that can short-circuit so browser clients
	// still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
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
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Authentication against the external credential verifier
	api.Post("/auth", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "auth"), s.Authenticate)

	// Machine-to-machine read access guarded by the static API token.
	api.Get("/applications", s.APITokenRequired(), s.GetApplications)
	api.Get("/applications/:id", s.APITokenRequired(), s.GetApplication)

	reports := api.Group("/reports", s.APITokenRequired())
	reports.Get("/full", s.GetFullReport)
	reports.Get("/status", s.GetStatusReport)
	reports.Get("/priority", s.GetPriorityReport)
	reports.Get("/users", s.GetUsersReport)
	reports.Get("/pending-items", s.GetPendingItemsReport)
	reports.Get("/weekly", s.GetWeeklyReport)

	// Session-token routes
	protected := api.Group("", s.AuthRequired())
	protected.Post("/applications", s.CreateApplication)
	protected.Get("/my-applications", s.GetMyApplications)
	protected.Patch("/applications/:id/status", s.UpdateApplicationStatus)
	protected.Patch("/applications/:id/priority", s.UpdateApplicationPriority)
	protected.Patch("/applications/:id/admin-status", s.AdminRequired(), s.AdminUpdateApplicationStatus)

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/applications", s.GetAdminApplications)
	admin.Get("/users", s.GetAdminUsers)
	admin.Post("/users/:username", s.AddAdminUser)
	admin.Delete("/users/:username", s.RemoveAdminUser)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional; readiness only degrades on the database.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns middleware that validates the session token and
// stores its claims in Fiber locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		// Accept both "Bearer <token>" and a bare token.
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token claims"))
		}

		username, ok := claims["sub"].(string)
		if !ok || username == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token structure - missing subject"))
		}

		displayName, _ := claims["name"].(string)
		isAdmin, _ := claims["admin"].(bool)

		c.Locals("username", username)
		c.Locals("displayName", displayName)
		c.Locals("isAdmin", isAdmin)

		// Stamp the authenticated user into the request context so every
		// log line behind this middleware carries it.
		c.SetUserContext(context.WithValue(c.UserContext(), middleware.UsernameKey, username))

		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin sessions with 403.
// The admin flag is read from the token, so registry changes only take
// effect on re-authentication. Must be placed after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isAdmin, _ := c.Locals("isAdmin").(bool)
		if !isAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// APITokenRequired returns middleware for machine-to-machine routes guarded
// by the static API token carried verbatim in the Authorization header.
func (s *Server) APITokenRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.config.APIToken)) != 1 {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid API token"))
		}
		return c.Next()
	}
}

// Shutdown releases server resources. The fiber app is shut down by the
// caller before this runs.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.ErrorContext(ctx, "error closing redis client", "error", err)
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.ErrorContext(ctx, "error closing sql DB", "error", cerr)
			}
		}
	}

	return nil
}
