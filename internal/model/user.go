// File: internal/model/user.go
package model

import "time"

// User mirrors an identity issued by the external identity provider.
type User struct {
	ID         int64     `db:"id" json:"id"`
	ExternalID string    `db:"external_id" json:"external_id"`
	Email      string    `db:"email" json:"email"`
	FirstName  *string   `db:"first_name" json:"first_name"`
	LastName   *string   `db:"last_name" json:"last_name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
