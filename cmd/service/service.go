// @title        Alcovian Enrollment API
// @version      1.0
// @description  Enrollment and user endpoints behind the Alcovian site
// @host         localhost:8080
// @BasePath     /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alcovian/internal/cache"
	"alcovian/internal/config"
	"alcovian/internal/database"
	"alcovian/internal/events"
	"alcovian/internal/logger"
	"alcovian/internal/middleware"
	"alcovian/internal/router"
	"alcovian/internal/validation"
	"alcovian/internal/worker"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	_ "alcovian/docs"

	echoSwagger "github.com/swaggo/echo-swagger"
)

const (
	shutdownTimeout = 10 * time.Second
	queuePerWorker  = 64
)

var (
	loadConfig      = func() (*config.Config, error) { return config.Load() }
	newPgxPool      = database.NewPgxPool
	newRedisClient  = cache.NewRedisClient
	runMigrationsFn = database.RunMigrations
	newPublisher    = func(url, exchange string) (events.Publisher, error) {
		return events.NewAMQPPublisher(url, exchange)
	}
	newWorkerPool = worker.NewPool
	startServer   = serve
	exitFunc      = os.Exit
)

// serve runs e until SIGINT/SIGTERM, then shuts it down gracefully.
func serve(e *echo.Echo, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if cfg.DatabaseURL != "" {
		if err := runMigrationsFn(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	} else {
		log.Warn().Msg("DATABASE_URL not set; storage endpoints will answer 503")
	}
	db := database.NewLazy(cfg.DatabaseURL, newPgxPool)
	defer db.Close()

	var cch cache.Cache
	if cfg.RedisAddr != "" {
		c, err := newRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer c.Close()
		cch = c
	} else {
		log.Warn().Msg("REDIS_ADDR not set; caching and rate limiting disabled")
	}

	var pub events.Publisher = events.Nop{}
	if cfg.RabbitURL != "" {
		p, err := newPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		defer p.Close()
		pub = p
	}

	clientIP, err := middleware.ClientIP(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	wp := newWorkerPool(cfg.WorkerCount, cfg.WorkerCount*queuePerWorker)
	defer wp.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.Debug = cfg.Debug
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Metrics())
	e.Use(echomw.Recover())

	router.Setup(e, router.Deps{
		DB:                  db,
		Cache:               cch,
		Notifier:            events.NewAsyncNotifier(wp, pub, cfg.StorageTimeout),
		IPExtractor:         clientIP,
		StorageTimeout:      cfg.StorageTimeout,
		AdminJWTSecret:      cfg.AdminJWTSecret,
		StrictUserEmail:     cfg.StrictUserEmail,
		SignupRateLimit:     cfg.SignupRateLimit,
		SignupRateWindow:    cfg.SignupRateWindow,
		EnrollmentsCacheTTL: cfg.EnrollmentsCacheTTL,
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	log.Info().Str("addr", cfg.Addr).Msg("starting server")
	return startServer(e, cfg.Addr)
}

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("service stopped")
		exitFunc(1)
	}
}
