package db

import (
	"database/sql"
)

// Database owns a connection pool and its lifecycle.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}
