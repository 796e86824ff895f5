package dto

import "alcovian/internal/model"

// swagger:model dto.EnrollmentsResponse
type EnrollmentsResponse struct {
	Enrollments []model.Enrollment `json:"enrollments"`
}
