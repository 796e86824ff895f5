// File: internal/handler/ping.go
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"alcovian/internal/cache"
	"alcovian/internal/database"
	"alcovian/internal/dto"

	"github.com/labstack/echo/v4"
)

const pingTimeout = 2 * time.Second

// PingHandler checks the database and, when configured, the cache.
// @Summary     Health Check
// @Description Returns pong when the database answers and a cache round trip succeeds
// @Tags        health
// @Produce     json
// @Success     200 {object} dto.PingResponse
// @Failure     500 {object} dto.HTTPError
// @Failure     503 {object} dto.HTTPError
// @Router      /ping [get]
func PingHandler(db database.DB, cch cache.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			if errors.Is(err, database.ErrUnconfigured) {
				return c.JSON(http.StatusServiceUnavailable, dto.HTTPError{Error: "database not configured"})
			}
			return c.JSON(http.StatusInternalServerError, dto.HTTPError{Error: "database unhealthy"})
		}
		if cch != nil {
			if err := cch.Set(ctx, "ping", "pong", time.Second).Err(); err != nil {
				return c.JSON(http.StatusInternalServerError, dto.HTTPError{Error: "cache unhealthy"})
			}
		}
		return c.JSON(http.StatusOK, dto.PingResponse{Message: "pong"})
	}
}
