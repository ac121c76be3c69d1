package pg

import "github.com/jackc/pgx/v5/pgconn"

// pgError builds a driver error with the given SQLSTATE code.
func pgError(code string) *pgconn.PgError {
	return &pgconn.PgError{Code: code}
}
