package lighting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/smartlight-core/internal/infrastructure/database"
)

// ConfigRepository persists lighting configuration.
type ConfigRepository interface {
	// Current returns the current configuration joined with the editor's
	// username. Returns ErrConfigNotFound when nothing has been stored.
	Current(ctx context.Context) (*SystemConfig, error)

	// Update applies patch to the current configuration, or to
	// DefaultConfig when none exists, and stamps editorID. The read and the
	// write run in one transaction.
	Update(ctx context.Context, editorID int64, patch ConfigPatch) (*SystemConfig, error)
}

// currentConfigQuery selects the current row. Timestamps are fixed-width
// UTC text, so ordering on updated_at is chronological.
const currentConfigQuery = `
	SELECT c.id, c.threshold, c.manual_mode, c.lamp_status, c.updated_by,
	       u.username, c.created_at, c.updated_at
	FROM system_configs c
	LEFT JOIN users u ON u.id = c.updated_by
	ORDER BY c.updated_at DESC, c.id DESC
	LIMIT 1`

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteConfigRepository implements ConfigRepository using SQLite.
type SQLiteConfigRepository struct {
	db   *sql.DB
	mode StorageMode
	now  func() time.Time
}

// NewConfigRepository creates a SQLite-backed config repository. An empty
// mode selects StorageSingleton.
func NewConfigRepository(db *sql.DB, mode StorageMode) *SQLiteConfigRepository {
	if mode == "" {
		mode = StorageSingleton
	}
	return &SQLiteConfigRepository{db: db, mode: mode, now: time.Now}
}

// Mode returns the storage mode in use.
func (r *SQLiteConfigRepository) Mode() StorageMode {
	return r.mode
}

// Current returns the latest configuration row.
func (r *SQLiteConfigRepository) Current(ctx context.Context) (*SystemConfig, error) {
	return currentConfig(ctx, r.db)
}

// Update performs the read-modify-write inside a single transaction.
// In singleton mode the current row is updated in place. In versioned mode
// a new row is inserted and becomes current.
func (r *SQLiteConfigRepository) Update(ctx context.Context, editorID int64, patch ConfigPatch) (*SystemConfig, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning config update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	current, err := currentConfig(ctx, tx)
	switch {
	case errors.Is(err, ErrConfigNotFound):
		current = nil
	case err != nil:
		return nil, err
	}

	stamp := database.FormatTime(r.now())

	if current == nil || r.mode == StorageVersioned {
		base := DefaultConfig()
		if current != nil {
			base = *current
		}
		next := patch.apply(base)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO system_configs (threshold, manual_mode, lamp_status, updated_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			next.Threshold, database.BoolToInt(next.ManualMode), database.BoolToInt(next.LampStatus),
			editorID, stamp, stamp,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting config: %w", err)
		}
	} else {
		next := patch.apply(*current)
		_, err = tx.ExecContext(ctx,
			`UPDATE system_configs
			 SET threshold = ?, manual_mode = ?, lamp_status = ?, updated_by = ?, updated_at = ?
			 WHERE id = ?`,
			next.Threshold, database.BoolToInt(next.ManualMode), database.BoolToInt(next.LampStatus),
			editorID, stamp, current.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("updating config: %w", err)
		}
	}

	updated, err := currentConfig(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing config update: %w", err)
	}
	return updated, nil
}

func currentConfig(ctx context.Context, q rowQuerier) (*SystemConfig, error) {
	c, err := scanConfig(q.QueryRowContext(ctx, currentConfigQuery))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfigNotFound
	}
	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConfig(s scanner) (*SystemConfig, error) {
	var (
		c          SystemConfig
		manualMode int
		lampStatus int
		updatedBy  sql.NullInt64
		editor     sql.NullString
		createdAt  string
		updatedAt  string
	)

	err := s.Scan(&c.ID, &c.Threshold, &manualMode, &lampStatus, &updatedBy,
		&editor, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning config: %w", err)
	}

	c.ManualMode = manualMode != 0
	c.LampStatus = lampStatus != 0
	if updatedBy.Valid {
		id := updatedBy.Int64
		c.UpdatedByID = &id
	}
	if editor.Valid {
		name := editor.String
		c.UpdatedBy = &name
	}
	if c.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}

	return &c, nil
}
