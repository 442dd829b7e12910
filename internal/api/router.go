package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/bottlerun/exchange-api/docs"
	"github.com/bottlerun/exchange-api/internal/api/handler"
	"github.com/bottlerun/exchange-api/internal/api/middleware"
	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/core/ports"
	"github.com/bottlerun/exchange-api/internal/notify"
)

// Dependencies is everything the HTTP layer needs from the wiring in main.
type Dependencies struct {
	Auth      ports.AuthService
	Orders    ports.OrderService
	Messages  ports.MessageService
	Registry  *notify.Registry
	WS        notify.ConnConfig
	Pingers   map[string]ports.Pinger
	JWTSecret string
	Logger    zerolog.Logger

	// Metrics defaults to the global prometheus registry.
	Metrics *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(deps.Logger))

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Metrics != nil {
		registerer, gatherer = deps.Metrics, deps.Metrics
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "exchange",
		Registerer: registerer,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	orderHandler := handler.NewOrderHandler(deps.Orders)
	messageHandler := handler.NewMessageHandler(deps.Messages)
	wsHandler := handler.NewWSHandler(deps.Registry, deps.JWTSecret, deps.WS, deps.Logger)
	authMiddleware := middleware.Auth(deps.JWTSecret)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/verify", authHandler.Verify)
	auth.POST("/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)

	// --- Profile ---
	e.GET("/me", authHandler.Me, authMiddleware)
	e.PUT("/me", authHandler.UpdateProfile, authMiddleware)

	// --- Orders ---
	orders := e.Group("/orders", authMiddleware)
	orders.POST("", orderHandler.Create, middleware.RBAC(domain.RoleClient))
	orders.GET("", orderHandler.ListPending, middleware.RBAC(domain.RoleRunner, domain.RoleAdmin))
	orders.POST("/:id/accept", orderHandler.Accept, middleware.RBAC(domain.RoleRunner))
	orders.POST("/:id/request-verification", orderHandler.RequestVerification, middleware.RBAC(domain.RoleRunner))
	orders.POST("/:id/complete", orderHandler.Complete, middleware.RBAC(domain.RoleRunner))
	// Participant checks happen in the service.
	orders.POST("/:id/cancel", orderHandler.Cancel)
	orders.GET("/:id/messages", messageHandler.List)
	orders.POST("/:id/messages", messageHandler.Send)

	e.GET("/my-orders", orderHandler.ListMine, authMiddleware)

	// --- Realtime (token travels in the query string) ---
	e.GET("/ws", wsHandler.Connect)

	// --- Ops (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Pingers)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/health" || p == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
