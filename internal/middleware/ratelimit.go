package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"alcovian/internal/cache"
	"alcovian/internal/dto"
	"alcovian/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const rateLimitTimeout = 500 * time.Millisecond

// RateLimit allows limit requests per client IP in each fixed window,
// counted in Redis. A nil cache or a zero limit disables it. Redis errors
// let the request through.
func RateLimit(cch cache.Cache, name string, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if cch == nil || limit <= 0 {
			return next
		}
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), rateLimitTimeout)
			defer cancel()

			key := "ratelimit:" + name + ":" + c.RealIP()
			n, err := cch.Incr(ctx, key).Result()
			if err != nil {
				log.Warn().Err(err).Str("limiter", name).Msg("rate limiter unavailable")
				return next(c)
			}
			if n == 1 {
				if err := cch.Expire(ctx, key, window).Err(); err != nil {
					log.Warn().Err(err).Str("limiter", name).Msg("rate limiter expire failed")
				}
			}
			if n <= int64(limit) {
				return next(c)
			}

			retry := window
			if ttl, err := cch.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				retry = ttl
			} else if err == nil {
				// counter lost its expiry; without one it would block forever
				_ = cch.Expire(ctx, key, window).Err()
			}
			metrics.RateLimited.WithLabelValues(name).Inc()
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			return c.JSON(http.StatusTooManyRequests, dto.HTTPError{Error: "Too many requests. Please try again later."})
		}
	}
}
