package lighting

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/smartlight-core/internal/infrastructure/database"
	_ "github.com/nerrad567/smartlight-core/migrations" // registers the embedded schema
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "lighting-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db.DB
}

// insertUser creates a bare user row and returns its id.
func insertUser(t *testing.T, db *sql.DB, username, role string) int64 {
	t.Helper()

	stamp := database.FormatTime(time.Now())
	res, err := db.Exec(
		`INSERT INTO users (username, password_hash, role, created_at, updated_at) VALUES (?, 'x', ?, ?, ?)`,
		username, role, stamp, stamp)
	if err != nil {
		t.Fatalf("inserting user %s: %v", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("reading user id: %v", err)
	}
	return id
}

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }
