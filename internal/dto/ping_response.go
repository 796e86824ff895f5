package dto

// swagger:model dto.PingResponse
type PingResponse struct {
	Message string `json:"message" example:"pong"`
}
