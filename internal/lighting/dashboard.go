package lighting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nerrad567/smartlight-core/internal/auth"
)

// Paging defaults for log listings.
const (
	DefaultPage        = 1
	DefaultPageSize    = 50
	DefaultMaxPageSize = 200
)

// DashboardConfig configures a Dashboard.
type DashboardConfig struct {
	// MaxPageSize caps the limit of a log listing. Zero selects DefaultMaxPageSize.
	MaxPageSize int

	Logger *slog.Logger
}

// Status is the dashboard overview.
type Status struct {
	LatestSensorData *SensorLog   `json:"latestSensorData"`
	CurrentConfig    SystemConfig `json:"currentConfig"`
}

// Dashboard serves the web dashboard: status, log history, statistics and
// configuration changes.
type Dashboard struct {
	configs ConfigRepository
	logs    SensorLogRepository

	maxPageSize int
	logger      *slog.Logger
	now         func() time.Time
}

// NewDashboard creates a Dashboard.
func NewDashboard(configs ConfigRepository, logs SensorLogRepository, cfg DashboardConfig) *Dashboard {
	maxPageSize := cfg.MaxPageSize
	if maxPageSize < 1 {
		maxPageSize = DefaultMaxPageSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		configs:     configs,
		logs:        logs,
		maxPageSize: maxPageSize,
		logger:      logger,
		now:         time.Now,
	}
}

// Status returns the latest reading (nil when none) and the current
// configuration, or the factory default when none is stored.
func (d *Dashboard) Status(ctx context.Context) (*Status, error) {
	status := &Status{}

	latest, err := d.logs.Latest(ctx)
	switch {
	case err == nil:
		status.LatestSensorData = latest
	case !errors.Is(err, ErrNoReadings):
		return nil, fmt.Errorf("loading latest reading: %w", err)
	}

	current, err := d.configs.Current(ctx)
	switch {
	case err == nil:
		status.CurrentConfig = *current
	case errors.Is(err, ErrConfigNotFound):
		status.CurrentConfig = DefaultConfig()
	default:
		return nil, fmt.Errorf("loading current config: %w", err)
	}

	return status, nil
}

// NormaliseQuery applies paging defaults and clamps the limit.
func (d *Dashboard) NormaliseQuery(q LogQuery) LogQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > d.maxPageSize {
		q.Limit = d.maxPageSize
	}
	return q
}

// Logs returns one page of readings, newest first.
func (d *Dashboard) Logs(ctx context.Context, q LogQuery) (*LogPage, error) {
	q = d.NormaliseQuery(q)

	logs, total, err := d.logs.List(ctx, q)
	if err != nil {
		return nil, err
	}

	return &LogPage{
		Logs: logs,
		Pagination: Pagination{
			Total:      total,
			Page:       q.Page,
			Limit:      q.Limit,
			TotalPages: (total + q.Limit - 1) / q.Limit,
		},
	}, nil
}

// UpdateConfig applies a partial configuration change on behalf of an admin.
// When nothing is stored yet the change is applied to the factory default.
func (d *Dashboard) UpdateConfig(ctx context.Context, caller auth.Principal, patch ConfigPatch) (*SystemConfig, error) {
	if !caller.IsAdmin() {
		return nil, auth.ErrForbidden
	}

	updated, err := d.configs.Update(ctx, caller.UserID, patch)
	if err != nil {
		return nil, err
	}

	d.logger.Info("lighting config updated",
		"config_id", updated.ID,
		"threshold", updated.Threshold,
		"manual_mode", updated.ManualMode,
		"lamp_status", updated.LampStatus,
		"updated_by", caller.Username,
	)
	return updated, nil
}

// Statistics summarises readings from now minus the period until now.
func (d *Dashboard) Statistics(ctx context.Context, period Period) (*Report, error) {
	start := d.now().Add(-period.Duration())

	logs, err := d.logs.Since(ctx, start)
	if err != nil {
		return nil, err
	}

	return &Report{
		Period:     period,
		Statistics: Summarise(logs),
		ChartData:  ChartData(logs),
	}, nil
}
