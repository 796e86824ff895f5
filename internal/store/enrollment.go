package store

import (
	"context"
	"fmt"

	"alcovian/internal/database"
	"alcovian/internal/model"
)

// CreateEnrollment inserts e and fills in its ID and CreatedAt.
func CreateEnrollment(ctx context.Context, db database.DB, e *model.Enrollment) (*model.Enrollment, error) {
	row := db.QueryRow(ctx,
		`INSERT INTO enrollments (name, email, context)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		e.Name,
		e.Email,
		e.Context,
	)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("CreateEnrollment: %w", classify(err))
	}
	return e, nil
}

// ListEnrollments returns every enrollment, newest first.
func ListEnrollments(ctx context.Context, db database.DB) ([]model.Enrollment, error) {
	rows, err := db.Query(ctx,
		`SELECT id, name, email, context, created_at
		 FROM enrollments
		 ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ListEnrollments: %w", err)
	}
	defer rows.Close()

	list := []model.Enrollment{}
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Context, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListEnrollments: %w", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListEnrollments: %w", err)
	}
	return list, nil
}
