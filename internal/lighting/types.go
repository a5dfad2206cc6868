package lighting

import (
	"fmt"
	"time"

	"github.com/nerrad567/smartlight-core/internal/infrastructure/config"
)

// Factory defaults served when no configuration row exists.
const (
	DefaultThreshold  = 2000
	DefaultManualMode = false
	DefaultLampStatus = false
)

// StorageMode selects how configuration updates are persisted.
type StorageMode string

const (
	// StorageSingleton keeps a single row and updates it in place.
	StorageSingleton StorageMode = config.ConfigStorageSingleton

	// StorageVersioned appends a row per update. Older rows remain as history.
	StorageVersioned StorageMode = config.ConfigStorageVersioned
)

// ParseStorageMode validates a storage mode string from configuration.
func ParseStorageMode(s string) (StorageMode, error) {
	if !config.ValidConfigStorage(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidStorageMode, s)
	}
	return StorageMode(s), nil
}

// SystemConfig is a lighting configuration row. The row with the latest
// UpdatedAt (ties broken by the larger ID) is the current configuration.
//
// A SystemConfig with ID 0 is the factory default and has never been stored.
type SystemConfig struct {
	ID         int64 `json:"id,omitempty"`
	Threshold  int   `json:"threshold"`
	ManualMode bool  `json:"manualMode"`
	LampStatus bool  `json:"lampStatus"`

	// UpdatedByID references the admin who last saved the row, nil once
	// that account is deleted.
	UpdatedByID *int64 `json:"-"`

	// UpdatedBy is the editor's username, joined at read time.
	UpdatedBy *string `json:"updatedBy"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Device returns the subset of the config the device consumes.
func (c *SystemConfig) Device() DeviceConfig {
	return DeviceConfig{
		Threshold:  c.Threshold,
		ManualMode: c.ManualMode,
		LampStatus: c.LampStatus,
	}
}

// DeviceConfig is what the embedded device polls for.
type DeviceConfig struct {
	Threshold  int  `json:"threshold"`
	ManualMode bool `json:"manualMode"`
	LampStatus bool `json:"lampStatus"`
}

// DefaultConfig returns the factory default served before anything is
// stored: threshold 2000, manual mode off, lamp off.
func DefaultConfig() SystemConfig {
	return SystemConfig{
		Threshold:  DefaultThreshold,
		ManualMode: DefaultManualMode,
		LampStatus: DefaultLampStatus,
	}
}

// ConfigPatch carries the optional fields of a configuration update.
// Nil fields keep their current value.
type ConfigPatch struct {
	Threshold  *int
	ManualMode *bool
	LampStatus *bool
}

// apply returns base with the patch's present fields overlaid.
func (p ConfigPatch) apply(base SystemConfig) SystemConfig {
	if p.Threshold != nil {
		base.Threshold = *p.Threshold
	}
	if p.ManualMode != nil {
		base.ManualMode = *p.ManualMode
	}
	if p.LampStatus != nil {
		base.LampStatus = *p.LampStatus
	}
	return base
}

// Reading is a single observation reported by the device.
type Reading struct {
	LightValue int
	LampStatus bool
}

// SensorLog is a stored reading. Rows are append-only.
type SensorLog struct {
	ID         int64     `json:"id"`
	LightValue int       `json:"lightValue"`
	LampStatus bool      `json:"lampStatus"`
	ConfigID   *int64    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LogQuery selects a page of sensor logs. Start and End are inclusive.
type LogQuery struct {
	Page  int
	Limit int
	Start *time.Time
	End   *time.Time
}

// Pagination describes a page within a filtered result set.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// LogPage is one page of sensor logs, newest first.
type LogPage struct {
	Logs       []SensorLog `json:"logs"`
	Pagination Pagination  `json:"pagination"`
}
