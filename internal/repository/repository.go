package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors.
const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-constraint violation.
// The constrained insert + retry pattern for access codes and the
// (taker, code) registration pair both hinge on this check.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// IsNotFound reports whether err means no row matched.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
