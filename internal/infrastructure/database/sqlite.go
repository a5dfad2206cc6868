package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// TimestampLayout is the on-disk form of every timestamp column.
// It is fixed width and always UTC, so string comparison in SQL orders
// rows chronologically.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimestampLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTime parses a timestamp column. RFC3339 values written by older
// tools are accepted as well.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// IsUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY
// constraint failure.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// BoolToInt maps a Go bool onto SQLite's 0/1 integer convention.
func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
