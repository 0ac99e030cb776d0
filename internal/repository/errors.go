// Package repository implements the credential store over PostgreSQL. Each
// table has its own thin repo over *sql.DB. Row-not-found is reported as
// sql.ErrNoRows; constraint violations are translated to the sentinels below
// at this boundary so higher layers never see raw driver errors.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrEmailExists maps the unique violation on users.email.
var ErrEmailExists = errors.New("email already exists")

// pg error codes (class 23, integrity constraint violations)
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
