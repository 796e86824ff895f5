package middleware

import (
	"net/http"
	"strings"

	"alcovian/internal/dto"
	"alcovian/internal/service"

	"github.com/labstack/echo/v4"
)

const ContextUserKey = "user"

type authError struct {
	status  int
	message string
}

func extractClaims(c echo.Context, secret string) (*service.CustomClaims, *authError) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil, &authError{http.StatusUnauthorized, "missing token"}
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, &authError{http.StatusUnauthorized, "invalid authorization header format"}
	}
	claims, err := service.VerifyAccessToken(secret, strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, &authError{http.StatusUnauthorized, "invalid token"}
	}
	return claims, nil
}

// RequireAdmin admits only bearer tokens signed with secret whose is_admin
// claim is set. An empty secret means no identity provider is configured
// and every request passes through.
func RequireAdmin(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if secret == "" {
			return next
		}
		return func(c echo.Context) error {
			claims, aerr := extractClaims(c, secret)
			if aerr != nil {
				return c.JSON(aerr.status, dto.HTTPError{Error: aerr.message})
			}
			if !claims.IsAdmin {
				return c.JSON(http.StatusForbidden, dto.HTTPError{Error: "admin privileges required"})
			}
			c.Set(ContextUserKey, claims)
			return next(c)
		}
	}
}
