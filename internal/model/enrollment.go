// File: internal/model/enrollment.go
package model

import "time"

// Enrollment is one submitted interest form.
type Enrollment struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Context   *string   `db:"context" json:"context"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
