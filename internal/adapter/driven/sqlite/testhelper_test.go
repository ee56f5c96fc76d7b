package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
)

// setupTestDB opens a migrated in-memory database private to the test.
// Writer and reader share it through cache=shared; the name comes from
// t.Name() so parallel tests never see each other's secrets.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		url.PathEscape(t.Name()),
	)

	open := func(role string, maxConns int) *sql.DB {
		conn, err := sql.Open("sqlite", dsn)
		if err != nil {
			t.Fatalf("open test db %s: %v", role, err)
		}
		conn.SetMaxOpenConns(maxConns)
		if err := conn.PingContext(context.Background()); err != nil {
			_ = conn.Close()
			t.Fatalf("ping test db %s: %v", role, err)
		}
		return conn
	}

	// The writer must stay open while the reader connects or the shared
	// in-memory database is dropped.
	writer := open("writer", 1)
	reader := open("reader", 4)
	db := &DB{Writer: writer, Reader: reader, path: dsn}
	t.Cleanup(func() { _ = db.Close() })

	if err := RunMigrations(db.Writer); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

// newTestSecretRepo returns a SecretRepo over a fresh database.
func newTestSecretRepo(t *testing.T, key []byte) (*SecretRepo, *DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewSecretRepo(db, key), db
}
