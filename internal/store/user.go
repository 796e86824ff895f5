package store

import (
	"context"
	"fmt"

	"alcovian/internal/database"
	"alcovian/internal/model"
)

// CreateUser inserts u. A second insert for the same external id fails
// with an error matching ErrConflict.
func CreateUser(ctx context.Context, db database.DB, u *model.User) (*model.User, error) {
	row := db.QueryRow(ctx,
		`INSERT INTO users (external_id, email, first_name, last_name, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		u.ExternalID,
		u.Email,
		u.FirstName,
		u.LastName,
		u.CreatedAt,
	)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("CreateUser: %w", classify(err))
	}
	return u, nil
}

func GetUserByExternalID(ctx context.Context, db database.DB, externalID string) (*model.User, error) {
	row := db.QueryRow(ctx,
		`SELECT id, external_id, email, first_name, last_name, created_at
		 FROM users WHERE external_id = $1`,
		externalID,
	)
	u := &model.User{}
	if err := row.Scan(
		&u.ID,
		&u.ExternalID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("GetUserByExternalID: %w", classify(err))
	}
	return u, nil
}
