package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

// MigrationsFS holds the schema files. The migrations package assigns its
// embedded files here from init:
//
//	import _ "github.com/nerrad567/smartlight-core/migrations"
var MigrationsFS fs.FS

// MigrationsDir is the directory inside MigrationsFS that holds the files.
var MigrationsDir = "migrations"

// ErrNoDownMigration is returned by Rollback when the newest applied
// version has no .down.sql file.
var ErrNoDownMigration = errors.New("migration has no down script")

// Migration is one schema step loaded from a
// <date>_<time>_<name>.up.sql / .down.sql pair.
type Migration struct {
	Version string // "20260104_192230"
	Name    string // "initial_schema"
	Up      string
	Down    string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   string
	AppliedAt time.Time
}

// MigrationStatus reports which embedded migrations have run.
type MigrationStatus struct {
	Applied []AppliedMigration
	Pending []Migration
}

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL
)`

// Migrate runs every pending migration in version order. Each one commits
// on its own, so a failure leaves earlier steps applied and a later call
// resumes from the failed version.
func (db *DB) Migrate(ctx context.Context) error {
	status, err := db.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	for _, m := range status.Pending {
		err := db.inTx(ctx, func(tx execer) error {
			if _, err := tx.ExecContext(ctx, m.Up); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				m.Version, FormatTime(time.Now()))
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// Rollback reverts the newest applied migration. It returns the reverted
// version, or "" when nothing has been applied.
func (db *DB) Rollback(ctx context.Context) (string, error) {
	status, err := db.MigrationStatus(ctx)
	if err != nil {
		return "", err
	}
	if len(status.Applied) == 0 {
		return "", nil
	}
	latest := status.Applied[len(status.Applied)-1].Version

	set, err := loadMigrations()
	if err != nil {
		return "", err
	}
	idx := slices.IndexFunc(set, func(m Migration) bool { return m.Version == latest })
	if idx < 0 {
		return "", fmt.Errorf("migration %s is applied but not embedded", latest)
	}
	m := set[idx]
	if m.Down == "" {
		return "", fmt.Errorf("%s_%s: %w", m.Version, m.Name, ErrNoDownMigration)
	}

	err = db.inTx(ctx, func(tx execer) error {
		if _, err := tx.ExecContext(ctx, m.Down); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = ?`, m.Version)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("rolling back %s_%s: %w", m.Version, m.Name, err)
	}
	return m.Version, nil
}

// MigrationStatus compares the embedded migrations with schema_migrations.
// It creates the tracking table on first use.
func (db *DB) MigrationStatus(ctx context.Context) (MigrationStatus, error) {
	var status MigrationStatus
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return status, fmt.Errorf("creating schema_migrations: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT version, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return status, fmt.Errorf("reading schema_migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var a AppliedMigration
		var stamp string
		if err := rows.Scan(&a.Version, &stamp); err != nil {
			return status, fmt.Errorf("scanning schema_migrations: %w", err)
		}
		a.AppliedAt, _ = ParseTime(stamp) //nolint:errcheck // written by Migrate
		status.Applied = append(status.Applied, a)
		done[a.Version] = true
	}
	if err := rows.Err(); err != nil {
		return status, fmt.Errorf("reading schema_migrations: %w", err)
	}

	set, err := loadMigrations()
	if err != nil {
		return status, err
	}
	for _, m := range set {
		if !done[m.Version] {
			status.Pending = append(status.Pending, m)
		}
	}
	return status, nil
}

// loadMigrations reads MigrationsFS and returns the migrations sorted by
// version. Files that do not follow the naming scheme are ignored, and a
// down script without a matching up script is an error.
func loadMigrations() ([]Migration, error) {
	if MigrationsFS == nil {
		return nil, nil
	}
	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	byVersion := make(map[string]*Migration)
	downs := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f, ok := parseMigrationFile(e.Name())
		if !ok {
			continue
		}
		body, err := fs.ReadFile(MigrationsFS, path.Join(MigrationsDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		if !f.up {
			downs[f.version] = string(body)
			continue
		}
		byVersion[f.version] = &Migration{Version: f.version, Name: f.name, Up: string(body)}
	}

	for version, body := range downs {
		m, ok := byVersion[version]
		if !ok {
			return nil, fmt.Errorf("down migration %s has no up migration", version)
		}
		m.Down = body
	}

	set := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		set = append(set, *m)
	}
	slices.SortFunc(set, func(a, b Migration) int { return strings.Compare(a.Version, b.Version) })
	return set, nil
}

type migrationFile struct {
	version string
	name    string
	up      bool
}

// parseMigrationFile splits "20260104_192230_initial_schema.up.sql" into
// its version, name and direction.
func parseMigrationFile(filename string) (migrationFile, bool) {
	var f migrationFile
	base, ok := strings.CutSuffix(filename, ".sql")
	if !ok {
		return f, false
	}
	if stem, ok := strings.CutSuffix(base, ".up"); ok {
		base, f.up = stem, true
	} else if stem, ok := strings.CutSuffix(base, ".down"); ok {
		base = stem
	} else {
		return f, false
	}

	date, rest, ok := strings.Cut(base, "_")
	if !ok || len(date) != 8 {
		return f, false
	}
	clock, name, _ := strings.Cut(rest, "_")
	if len(clock) != 6 {
		return f, false
	}
	f.version = date + "_" + clock
	f.name = name
	return f, true
}
