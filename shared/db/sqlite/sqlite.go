package sqlite

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/dfryer1193/postpage/shared/db"
	_ "modernc.org/sqlite"
)

const (
	defaultPath = "./postpage.db"
	pathEnvVar  = "SQLITE_DB_PATH"
)

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// NewSQLiteConfig reads the database path from SQLITE_DB_PATH, falling back to
// ./postpage.db.
func NewSQLiteConfig() *SQLiteConfig {
	path := os.Getenv(pathEnvVar)
	if path == "" {
		path = defaultPath
	}

	return &SQLiteConfig{
		Path: path,
	}
}

var _ db.Database = (*SQLiteDB)(nil)

// SQLiteDB implements db.Database for SQLite.
type SQLiteDB struct {
	dbPath string
	db     *sql.DB
}

func NewSQLiteDB(cfg *SQLiteConfig) *SQLiteDB {
	return &SQLiteDB{
		dbPath: cfg.Path,
	}
}

// Connect opens the database, applies pragmas and runs pending migrations.
func (s *SQLiteDB) Connect() error {
	if s.db != nil {
		return fmt.Errorf("database already connected")
	}

	conn, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if s.dbPath == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-64000", // 64MB; negative is KiB
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.db = conn
	return nil
}

func (s *SQLiteDB) Close() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	return err
}

// DB returns the underlying pool, or nil when not connected.
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *SQLiteDB) Path() string {
	return s.dbPath
}
