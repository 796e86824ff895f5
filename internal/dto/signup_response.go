package dto

import "time"

// swagger:model dto.SignupResponse
type SignupResponse struct {
	OK        bool      `json:"ok" example:"true"`
	Message   string    `json:"message" example:"Enrollment submitted successfully"`
	ID        int64     `json:"id" example:"42"`
	Email     string    `json:"email" example:"ada@example.com"`
	CreatedAt time.Time `json:"created_at" example:"2025-05-01T15:04:05Z"`
}
