package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// sqlxGet runs a single-row query against either a transaction or the plain
// connection, both of which satisfy sqlx.ExtContext.
func sqlxGet(ctx context.Context, q sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, q, dest, query, args...)
}

// sqlxSelect runs a multi-row query against either a transaction or the plain
// connection.
func sqlxSelect(ctx context.Context, q sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}
