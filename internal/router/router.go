// File: internal/router/router.go
package router

import (
	"time"

	"github.com/labstack/echo/v4"

	"alcovian/internal/cache"
	"alcovian/internal/database"
	"alcovian/internal/events"
	"alcovian/internal/handler"
	"alcovian/internal/handler/enrollments"
	"alcovian/internal/handler/users"
	"alcovian/internal/metrics"
	"alcovian/internal/middleware"
)

// Deps are the collaborators the routes need. Cache and Notifier may be nil.
// A nil IPExtractor means clients are identified by their peer address.
type Deps struct {
	DB          database.DB
	Cache       cache.Cache
	Notifier    events.Notifier
	IPExtractor echo.IPExtractor

	StorageTimeout      time.Duration
	AdminJWTSecret      string
	StrictUserEmail     bool
	SignupRateLimit     int
	SignupRateWindow    time.Duration
	EnrollmentsCacheTTL time.Duration
}

// Setup registers every route and its middleware.
func Setup(e *echo.Echo, d Deps) {
	// the signup limiter keys on c.RealIP, so headers must not pick it
	e.IPExtractor = d.IPExtractor
	if e.IPExtractor == nil {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api")

	api.GET("/ping", handler.PingHandler(d.DB, d.Cache))

	api.POST("/signup",
		enrollments.SignupHandler(d.DB, d.Cache, d.Notifier, d.StorageTimeout),
		middleware.RateLimit(d.Cache, "signup", d.SignupRateLimit, d.SignupRateWindow),
	)
	api.GET("/enrollments",
		enrollments.ListHandler(d.DB, d.Cache, d.EnrollmentsCacheTTL, d.StorageTimeout),
		middleware.RequireAdmin(d.AdminJWTSecret),
	)

	api.POST("/users", users.UpsertUserHandler(d.DB, d.Notifier, d.StrictUserEmail, d.StorageTimeout))
}
