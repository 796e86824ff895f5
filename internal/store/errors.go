package store

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

var (
	ErrConflict = errors.New("store: conflict")
	ErrNotFound = errors.New("store: not found")
)

// classify maps driver errors onto the package's sentinel errors.
// The original error stays in the chain.
func classify(err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		return errors.Join(ErrConflict, err)
	case errors.Is(err, pgx.ErrNoRows):
		return errors.Join(ErrNotFound, err)
	default:
		return err
	}
}
