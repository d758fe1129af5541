package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/clinicbook/clinic-web/internal/api/handler"
	"github.com/clinicbook/clinic-web/internal/api/middleware"
	"github.com/clinicbook/clinic-web/internal/api/view"
	"github.com/clinicbook/clinic-web/internal/core/gate"
	"github.com/clinicbook/clinic-web/pkg/logger"
)

// Deps carries what the router needs from main.
type Deps struct {
	Clients  middleware.ClientSource
	Renderer *view.Renderer
	Session  middleware.SessionConfig
	Checks   map[string]handler.Check
	Log      zerolog.Logger

	// Metrics default to the global Prometheus registry when nil.
	MetricsRegisterer prometheus.Registerer
	MetricsGatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if d.Renderer != nil {
		e.Renderer = d.Renderer
	}
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	if d.MetricsRegisterer == nil {
		d.MetricsRegisterer = prometheus.DefaultRegisterer
	}
	if d.MetricsGatherer == nil {
		d.MetricsGatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(logger.RequestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: d.MetricsRegisterer,
	}))

	session := middleware.BrowserSession(d.Clients, d.Session)
	gated := []echo.MiddlewareFunc{session, middleware.RouteGate()}

	// --- Pages ---
	pages := handler.NewPageHandler()
	for _, r := range gate.All() {
		e.GET(string(r), pages.Show, gated...)
	}
	// Unmatched paths still pass the gate: signed out goes to login.
	e.RouteNotFound("/*", pages.Show, gated...)

	auth := handler.NewAuthHandler()
	e.POST(string(gate.Login), auth.LoginForm, gated...)
	e.POST(string(gate.Register), auth.RegisterForm, gated...)
	e.POST("/logout", auth.LogoutForm, session)

	// --- Session API ---
	sessions := handler.NewSessionHandler(0)
	e.GET("/api/session", sessions.Get, session)
	e.POST("/api/session/login", auth.Login, session)
	e.POST("/api/session/register", auth.Register, session)
	e.POST("/api/session/logout", auth.Logout, session)

	// --- Backend API proxy ---
	proxy := handler.NewProxyHandler(d.Log)
	e.Any("/api/*", proxy.Forward, session)

	// --- Ops (no browser session) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Checks)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: d.MetricsGatherer,
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
