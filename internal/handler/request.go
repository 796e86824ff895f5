// File: internal/handler/request.go
package handler

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	MsgInvalidBody = "Invalid request body"
	MsgUnavailable = "Service temporarily unavailable"
)

// DecodeObject reads the request body as a JSON object. Anything else
// (null, arrays, scalars, malformed or empty bodies) reports false.
func DecodeObject(c echo.Context) (map[string]any, bool) {
	var m map[string]any
	if err := c.Echo().JSONSerializer.Deserialize(c, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// StringField returns body[key] when it is a JSON string.
func StringField(body map[string]any, key string) (string, bool) {
	s, ok := body[key].(string)
	return s, ok
}

// OptionalString returns a trimmed copy of body[key], or nil when the
// value is absent, not a string, or blank.
func OptionalString(body map[string]any, key string) *string {
	s, ok := StringField(body, key)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// RequestID returns the id assigned by the RequestID middleware.
func RequestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
