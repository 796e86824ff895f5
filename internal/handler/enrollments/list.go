// File: internal/handler/enrollments/list.go
package enrollments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"alcovian/internal/cache"
	"alcovian/internal/database"
	"alcovian/internal/dto"
	"alcovian/internal/handler"
	"alcovian/internal/logger"
	"alcovian/internal/metrics"
	"alcovian/internal/model"
	"alcovian/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	listCacheKey   = "enrollments:all"
	listVersionKey = "enrollments:version"
	msgListFailed  = "Failed to retrieve enrollments"
)

var listEnrollments = store.ListEnrollments

// ListHandler returns every enrollment, newest first. Results are cached
// for ttl under the current list version when a cache is configured;
// cache errors fall back to the database.
// @Summary     List enrollments
// @Description Returns all enrollments ordered by created_at descending
// @Tags        enrollments
// @Produce     json
// @Success     200 {object} dto.EnrollmentsResponse
// @Failure     401 {object} dto.HTTPError
// @Failure     403 {object} dto.HTTPError
// @Failure     500 {object} dto.HTTPError
// @Failure     503 {object} dto.HTTPError
// @Security    BearerAuth
// @Router      /enrollments [get]
func ListHandler(db database.DB, cch cache.Cache, ttl, timeout time.Duration) echo.HandlerFunc {
	useCache := cch != nil && ttl > 0
	return func(c echo.Context) error {
		log := logger.WithRequestID(handler.RequestID(c))

		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		cacheKey := ""
		if useCache {
			key, err := listKey(ctx, cch)
			if err != nil {
				metrics.EnrollmentsCache.WithLabelValues("error").Inc()
				log.Warn().Err(err).Msg("enrollment list cache version read failed")
			}
			cacheKey = key
		}

		if cacheKey != "" {
			raw, err := cch.Get(ctx, cacheKey).Bytes()
			switch {
			case err == nil:
				var cached dto.EnrollmentsResponse
				if err := json.Unmarshal(raw, &cached); err == nil && cached.Enrollments != nil {
					metrics.EnrollmentsCache.WithLabelValues("hit").Inc()
					return c.JSON(http.StatusOK, cached)
				}
				metrics.EnrollmentsCache.WithLabelValues("error").Inc()
				log.Warn().Msg("discarding unreadable enrollment list cache entry")
			case errors.Is(err, redis.Nil):
				metrics.EnrollmentsCache.WithLabelValues("miss").Inc()
			default:
				metrics.EnrollmentsCache.WithLabelValues("error").Inc()
				log.Warn().Err(err).Msg("enrollment list cache read failed")
			}
		}

		list, err := listEnrollments(ctx, db)
		if err != nil {
			if errors.Is(err, database.ErrUnconfigured) {
				log.Error().Err(err).Msg("enrollment storage not configured")
				return c.JSON(http.StatusServiceUnavailable, dto.HTTPError{Error: handler.MsgUnavailable})
			}
			log.Error().Err(err).Msg("list enrollments failed")
			return c.JSON(http.StatusInternalServerError, dto.HTTPError{Error: msgListFailed})
		}

		if list == nil {
			list = []model.Enrollment{}
		}
		resp := dto.EnrollmentsResponse{Enrollments: list}
		if cacheKey != "" {
			if raw, err := json.Marshal(resp); err == nil {
				if err := cch.Set(ctx, cacheKey, raw, ttl).Err(); err != nil {
					log.Warn().Err(err).Msg("enrollment list cache write failed")
				}
			}
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// listKey names the cached list for the current version. Signups bump the
// version after their insert commits, so a list read that raced one is
// stored under a key no later request looks up.
func listKey(ctx context.Context, cch cache.Cache) (string, error) {
	version, err := cch.Get(ctx, listVersionKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		version = "0"
	case err != nil:
		return "", err
	}
	return listCacheKey + ":" + version, nil
}
