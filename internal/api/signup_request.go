package api

// SignupRequest is the typed view of a signup body after field extraction.
// swagger:model api.SignupRequest
type SignupRequest struct {
	Name    string  `json:"name" validate:"required" example:"Ada Lovelace"`
	Email   string  `json:"email" validate:"required" example:"ada@example.com"`
	Context *string `json:"context,omitempty" example:"Interested in the spring cohort"`
}
