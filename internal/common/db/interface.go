package db

import "context"

// Database is the minimal surface repositories need from a SQL database.
// Implementations own their connection pool.
type Database interface {
	Querier

	// Begin starts a transaction.
	Begin(ctx context.Context) (Transaction, error)

	// Ping verifies the database connection is alive.
	Ping(ctx context.Context) error

	// Close closes the database and its connection pool.
	Close() error
}

// Transaction groups statements that commit or roll back together.
type Transaction interface {
	Querier

	Commit() error
	Rollback() error
}

// Rows is the result of a query returning multiple rows.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Row is the result of a query returning at most one row.
type Row interface {
	Scan(dest ...interface{}) error
}

// Result reports what a statement changed.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}
