package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

var errAbort = errors.New("abort")

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every pooled connection would get its own in-memory database.
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(`CREATE TABLE test_table (id INTEGER PRIMARY KEY, value TEXT)`)
	if err != nil {
		t.Fatalf("Failed to create test table: %v", err)
	}

	return conn
}

func countRows(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM test_table").Scan(&count); err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	return count
}

func insert(ctx context.Context, conn *sql.DB, value string) error {
	_, err := GetExecutor(ctx, conn).ExecContext(ctx, "INSERT INTO test_table (value) VALUES (?)", value)
	return err
}

func TestRunInTransaction(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(ctx context.Context, conn *sql.DB) error
		wantErr   bool
		wantCount int
	}{
		{
			name: "commit",
			fn: func(ctx context.Context, conn *sql.DB) error {
				return insert(ctx, conn, "a")
			},
			wantCount: 1,
		},
		{
			name: "rollback on error",
			fn: func(ctx context.Context, conn *sql.DB) error {
				if err := insert(ctx, conn, "a"); err != nil {
					return err
				}
				return errAbort
			},
			wantErr:   true,
			wantCount: 0,
		},
		{
			name: "nested reuses outer transaction",
			fn: func(ctx context.Context, conn *sql.DB) error {
				if err := insert(ctx, conn, "outer"); err != nil {
					return err
				}
				return RunInTransaction(ctx, conn, func(inner context.Context) error {
					return insert(inner, conn, "inner")
				})
			},
			wantCount: 2,
		},
		{
			name: "nested failure rolls back everything",
			fn: func(ctx context.Context, conn *sql.DB) error {
				if err := insert(ctx, conn, "outer"); err != nil {
					return err
				}
				return RunInTransaction(ctx, conn, func(inner context.Context) error {
					if err := insert(inner, conn, "inner"); err != nil {
						return err
					}
					return errAbort
				})
			},
			wantErr:   true,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := setupTestDB(t)

			err := RunInTransaction(context.Background(), conn, func(txCtx context.Context) error {
				if _, ok := GetTx(txCtx); !ok {
					t.Error("Expected transaction in context")
				}
				return tt.fn(txCtx, conn)
			})

			if tt.wantErr && !errors.Is(err, errAbort) {
				t.Fatalf("RunInTransaction() error = %v, want %v", err, errAbort)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("RunInTransaction() error = %v", err)
			}
			if got := countRows(t, conn); got != tt.wantCount {
				t.Errorf("row count = %d, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestRunInTransaction_NestedSeesSameTx(t *testing.T) {
	conn := setupTestDB(t)

	err := RunInTransaction(context.Background(), conn, func(outer context.Context) error {
		return RunInTransaction(outer, conn, func(inner context.Context) error {
			outerTx, _ := GetTx(outer)
			innerTx, _ := GetTx(inner)
			if outerTx != innerTx {
				t.Error("Expected nested transaction to reuse outer transaction")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("RunInTransaction failed: %v", err)
	}
}

func TestGetExecutor(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()

	if executor := GetExecutor(ctx, conn); executor != conn {
		t.Error("Expected executor to be the database")
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if executor := GetExecutor(WithTx(ctx, tx), conn); executor != tx {
		t.Error("Expected executor to be the transaction")
	}
}
