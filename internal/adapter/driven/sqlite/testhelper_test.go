package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"testing"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// Writer and reader connections share the same in-memory database via cache=shared.
// A unique name derived from t.Name() keeps parallel tests isolated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Percent-encode the test name so it cannot be read as DSN query parameters.
	safeName := url.PathEscape(t.Name())
	// WAL mode does not apply to in-memory databases; omit journal_mode.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		safeName,
	)

	db, err := open(context.Background(), dsn, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if _, err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}
