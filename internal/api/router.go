package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/staffdesk/ops-system/internal/api/handler"
	"github.com/staffdesk/ops-system/internal/api/middleware"
	"github.com/staffdesk/ops-system/internal/core/domain"
	"github.com/staffdesk/ops-system/internal/core/ports"
	"github.com/staffdesk/ops-system/internal/session"
)

// Deps carries the constructed services the router wires into routes.
// Everything is built once at startup and injected; handlers hold no
// global state.
type Deps struct {
	Auth      ports.AuthService
	Documents ports.DocumentService
	Sales     ports.SalesService
	Schedule  ports.ScheduleService
	Users     ports.UserService
	Session   *session.Store

	Mongo *mongo.Database
	Redis *redis.Client

	JWTSecret string
	Logger    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("staffdesk"))

	authRequired := middleware.Auth(deps.JWTSecret)
	adminOnly := middleware.RBAC(domain.RoleAdmin)
	staff := middleware.RBAC(domain.RoleAdmin, domain.RoleManager, domain.RoleEmployee)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	documentHandler := handler.NewDocumentHandler(deps.Documents)
	salesHandler := handler.NewSalesHandler(deps.Sales)
	scheduleHandler := handler.NewScheduleHandler(deps.Schedule)
	userHandler := handler.NewUserHandler(deps.Users)
	sessionHandler := handler.NewSessionHandler(deps.Session)

	// --- Auth routes ---
	e.POST("/api/auth/register", authHandler.Register)
	e.POST("/api/auth/login", authHandler.Login)
	e.GET("/api/auth/profile", authHandler.Profile, authRequired)

	// --- Session routes ---
	e.GET("/api/session", sessionHandler.Get)
	e.POST("/api/session/signin", sessionHandler.SignIn)
	e.POST("/api/session/signout", sessionHandler.SignOut)

	// --- Domain routes ---
	documents := e.Group("/api/documents", authRequired, staff)
	documents.GET("", documentHandler.List)
	documents.POST("", documentHandler.Upload)
	documents.GET("/:id", documentHandler.Get)
	documents.POST("/:id/sign", documentHandler.Sign)
	documents.POST("/:id/reject", documentHandler.Reject)

	sales := e.Group("/api/sales", authRequired, middleware.RBAC(domain.RoleAdmin, domain.RoleManager))
	sales.GET("", salesHandler.List)
	sales.POST("", salesHandler.Record)

	schedule := e.Group("/api/schedule", authRequired, staff)
	schedule.GET("", scheduleHandler.List)
	schedule.POST("", scheduleHandler.Create)

	users := e.Group("/api/users", authRequired, adminOnly)
	users.GET("", userHandler.List)
	users.PUT("/:id/role", userHandler.UpdateRole)

	// --- Observability (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandler())

	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	return e
}
