package dto

// swagger:model dto.UpsertUserResponse
type UpsertUserResponse struct {
	OK      bool   `json:"ok" example:"true"`
	Message string `json:"message" example:"User saved successfully"`
	Existed bool   `json:"existed" example:"false"`
	// ID is omitted when a duplicate's row could not be looked up.
	ID *int64 `json:"id,omitempty" example:"7"`
}
