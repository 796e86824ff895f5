// File: internal/dto/http_error.go
package dto

// HTTPError is the body of every 4xx/5xx response.
// swagger:model dto.HTTPError
type HTTPError struct {
	Error string `json:"error" example:"Name is required"`
}
