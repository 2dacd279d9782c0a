package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	sharedDB   *sql.DB
	sharedOnce sync.Once
	sharedErr  error
)

// Shared returns the process-wide in-memory DuckDB connection
func Shared(ctx context.Context) (*sql.DB, error) {
	sharedOnce.Do(func() {
		sharedDB, sharedErr = Open(ctx)
	})
	return sharedDB, sharedErr
}

// Open creates an in-memory DuckDB connection with the JSON extension loaded
func Open(ctx context.Context) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	// DuckDB works best with a single connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, stmt := range []string{"INSTALL json", "LOAD json"} {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to %s: %w", stmt, err)
		}
	}
	return conn, nil
}
