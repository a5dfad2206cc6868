package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/smartlight-core/internal/infrastructure/database"
)

// Actions recorded in the trail.
const (
	ActionLogin  = "login"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Entity types an action applies to.
const (
	EntityUser   = "user"
	EntityConfig = "config"
)

// Page size bounds for List. A non-positive limit means DefaultLimit; larger
// limits are capped at MaxLimit.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Entry is one recorded administrative action.
type Entry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId,omitempty"`
	UserID     *int64         `json:"userId,omitempty"`
	Username   string         `json:"username,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Filter selects entries. Zero fields match everything; Since and Until
// are inclusive.
type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	Since      time.Time
	Until      time.Time
	Limit      int
	Offset     int
}

func (f Filter) clamped() Filter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	f.Offset = max(f.Offset, 0)
	return f
}

func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if f.Action != "" {
		add("action = ?", f.Action)
	}
	if f.EntityType != "" {
		add("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		add("entity_id = ?", f.EntityID)
	}
	if !f.Since.IsZero() {
		add("created_at >= ?", database.FormatTime(f.Since))
	}
	if !f.Until.IsZero() {
		add("created_at <= ?", database.FormatTime(f.Until))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Page is one slice of a filtered listing plus the total match count.
type Page struct {
	Logs   []Entry `json:"logs"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository records and lists audit entries.
type Repository interface {
	Record(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter) (*Page, error)
}

// Store keeps the audit trail in the audit_logs table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore returns a Store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record inserts e, filling ID and CreatedAt when unset.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}

	var details sql.NullString
	if e.Details != nil {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encoding audit details: %w", err)
		}
		details = sql.NullString{String: string(b), Valid: true}
	}
	var userID sql.NullInt64
	if e.UserID != nil {
		userID = sql.NullInt64{Int64: *e.UserID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, entity_type, entity_id, user_id, username, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.EntityType, optional(e.EntityID), userID, optional(e.Username),
		details, database.FormatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("recording %s %s: %w", e.Action, e.EntityType, err)
	}
	return nil
}

func optional(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// List returns the entries matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) (*Page, error) {
	f = f.clamped()
	where, args := f.where()

	page := &Page{Logs: []Entry{}, Limit: f.Limit, Offset: f.Offset}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}
	if page.Total == 0 {
		return page, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, entity_type, entity_id, user_id, username, details, created_at
		 FROM audit_logs`+where+` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		page.Logs = append(page.Logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}
	return page, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e                           Entry
		entityID, username, details sql.NullString
		userID                      sql.NullInt64
		createdAt                   string
	)
	if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &entityID, &userID, &username, &details, &createdAt); err != nil {
		return e, fmt.Errorf("scanning audit entry: %w", err)
	}

	e.EntityID, e.Username = entityID.String, username.String
	if userID.Valid {
		e.UserID = &userID.Int64
	}
	if details.Valid && details.String != "" {
		// Unreadable details are dropped rather than failing the listing.
		_ = json.Unmarshal([]byte(details.String), &e.Details)
	}

	var err error
	e.CreatedAt, err = database.ParseTime(createdAt)
	return e, err
}
