package lighting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/smartlight-core/internal/infrastructure/database"
)

// SensorLogRepository persists device readings. Rows are never updated.
type SensorLogRepository interface {
	Append(ctx context.Context, log *SensorLog) error
	Latest(ctx context.Context) (*SensorLog, error)
	List(ctx context.Context, q LogQuery) ([]SensorLog, int, error)
	Since(ctx context.Context, start time.Time) ([]SensorLog, error)
}

const sensorLogColumns = "id, light_value, lamp_status, config_id, created_at"

// SQLiteSensorLogRepository implements SensorLogRepository using SQLite.
type SQLiteSensorLogRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSensorLogRepository creates a SQLite-backed sensor log repository.
func NewSensorLogRepository(db *sql.DB) *SQLiteSensorLogRepository {
	return &SQLiteSensorLogRepository{db: db, now: time.Now}
}

// Append inserts a reading and sets its ID and CreatedAt.
func (r *SQLiteSensorLogRepository) Append(ctx context.Context, log *SensorLog) error {
	stamp := database.FormatTime(r.now())

	var configID any
	if log.ConfigID != nil {
		configID = *log.ConfigID
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO sensor_logs (light_value, lamp_status, config_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		log.LightValue, database.BoolToInt(log.LampStatus), configID, stamp,
	)
	if err != nil {
		return fmt.Errorf("inserting sensor log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading sensor log id: %w", err)
	}

	log.ID = id
	log.CreatedAt, _ = database.ParseTime(stamp) //nolint:errcheck // format is controlled
	return nil
}

// Latest returns the most recent reading, or ErrNoReadings.
func (r *SQLiteSensorLogRepository) Latest(ctx context.Context) (*SensorLog, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sensorLogColumns+" FROM sensor_logs ORDER BY created_at DESC, id DESC LIMIT 1")

	l, err := scanSensorLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoReadings
	}
	return l, err
}

// List returns one page of readings, newest first, together with the
// number of rows matching the bounds. q must already be normalised.
func (r *SQLiteSensorLogRepository) List(ctx context.Context, q LogQuery) ([]SensorLog, int, error) {
	var (
		where []string
		args  []any
	)
	if q.Start != nil {
		where = append(where, "created_at >= ?")
		args = append(args, database.FormatTime(*q.Start))
	}
	if q.End != nil {
		where = append(where, "created_at <= ?")
		args = append(args, database.FormatTime(*q.End))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sensor_logs"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting sensor logs: %w", err)
	}

	pageArgs := append(append([]any{}, args...), q.Limit, (q.Page-1)*q.Limit)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sensorLogColumns+" FROM sensor_logs"+clause+
			" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?", pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing sensor logs: %w", err)
	}
	defer rows.Close()

	logs, err := collectSensorLogs(rows)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Since returns every reading with created_at >= start, oldest first.
func (r *SQLiteSensorLogRepository) Since(ctx context.Context, start time.Time) ([]SensorLog, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sensorLogColumns+" FROM sensor_logs WHERE created_at >= ? ORDER BY created_at ASC, id ASC",
		database.FormatTime(start))
	if err != nil {
		return nil, fmt.Errorf("querying sensor logs: %w", err)
	}
	defer rows.Close()

	return collectSensorLogs(rows)
}

func collectSensorLogs(rows *sql.Rows) ([]SensorLog, error) {
	logs := []SensorLog{}
	for rows.Next() {
		l, err := scanSensorLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor logs: %w", err)
	}
	return logs, nil
}

func scanSensorLog(s scanner) (*SensorLog, error) {
	var (
		l          SensorLog
		lampStatus int
		configID   sql.NullInt64
		createdAt  string
	)

	if err := s.Scan(&l.ID, &l.LightValue, &lampStatus, &configID, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning sensor log: %w", err)
	}

	l.LampStatus = lampStatus != 0
	if configID.Valid {
		id := configID.Int64
		l.ConfigID = &id
	}

	var err error
	if l.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &l, nil
}
