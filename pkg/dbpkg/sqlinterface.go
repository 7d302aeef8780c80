// Package dbpkg provides helpers to make db initialization, migration and error handling easier.
package dbpkg

import (
	"context"
	"database/sql"

	// Both drivers are selectable through DB_DRIVER.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// SQLInterface provides neccessary db methods to perform queries.
//
// It is satisfied by both *sql.DB and *sql.Tx, so repositories can run inside
// or outside of a database transaction.
type SQLInterface interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Setup sets up connection with database.
func Setup(driver, source string) (*sql.DB, error) {
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
