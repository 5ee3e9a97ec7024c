package utils

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresDriver is the database/sql name registered by pgx's stdlib package.
const PostgresDriver = "pgx"

// OpenPostgres opens a Postgres pool through pgx's database/sql driver.
func OpenPostgres(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	return OpenDB(ctx, PostgresDriver, dsn, pool)
}
