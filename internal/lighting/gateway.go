package lighting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ReadingSink receives every reading after it has been stored.
// Sink failures are logged and never fail the reading.
type ReadingSink interface {
	RecordLightReading(ctx context.Context, log SensorLog) error
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	// Sinks mirror accepted readings to secondary stores.
	Sinks []ReadingSink

	Logger *slog.Logger
}

// Gateway is the device-facing side of the service. It serves the
// configuration the device should apply and stores the readings it reports.
type Gateway struct {
	configs ConfigRepository
	logs    SensorLogRepository
	sinks   []ReadingSink
	logger  *slog.Logger
}

// NewGateway creates a Gateway.
func NewGateway(configs ConfigRepository, logs SensorLogRepository, cfg GatewayConfig) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		configs: configs,
		logs:    logs,
		sinks:   cfg.Sinks,
		logger:  logger,
	}
}

// Config returns the configuration the device should apply. found is false
// when nothing has been stored and the factory default is returned.
func (g *Gateway) Config(ctx context.Context) (cfg DeviceConfig, found bool, err error) {
	current, err := g.configs.Current(ctx)
	if errors.Is(err, ErrConfigNotFound) {
		def := DefaultConfig()
		return def.Device(), false, nil
	}
	if err != nil {
		return DeviceConfig{}, false, fmt.Errorf("loading device config: %w", err)
	}
	return current.Device(), true, nil
}

// RecordReading stores a reading stamped with the current configuration ID,
// or no ID when none exists. The reading is stored even when it disagrees
// with the configuration.
func (g *Gateway) RecordReading(ctx context.Context, r Reading) (*SensorLog, error) {
	if r.LightValue < 0 {
		verr := &ValidationError{}
		verr.Add("lightValue", MsgLightValueInvalid)
		return nil, verr
	}

	log := &SensorLog{LightValue: r.LightValue, LampStatus: r.LampStatus}

	current, err := g.configs.Current(ctx)
	switch {
	case err == nil:
		id := current.ID
		log.ConfigID = &id
	case !errors.Is(err, ErrConfigNotFound):
		return nil, fmt.Errorf("resolving current config: %w", err)
	}

	if err := g.logs.Append(ctx, log); err != nil {
		return nil, err
	}

	for _, sink := range g.sinks {
		if err := sink.RecordLightReading(ctx, *log); err != nil {
			g.logger.Warn("mirroring sensor reading failed",
				"log_id", log.ID,
				"error", err,
			)
		}
	}

	return log, nil
}
