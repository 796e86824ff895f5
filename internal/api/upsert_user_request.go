package api

// swagger:model api.UpsertUserRequest
type UpsertUserRequest struct {
	ClerkID   string  `json:"clerkId" validate:"required" example:"user_2abc"`
	Email     string  `json:"email" validate:"required" example:"ada@example.com"`
	FirstName *string `json:"firstName,omitempty" example:"Ada"`
	LastName  *string `json:"lastName,omitempty" example:"Lovelace"`
	CreatedAt *string `json:"createdAt,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00" example:"2025-05-01T15:04:05Z"`
}
