package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nerrad567/smartlight-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/smartlight-core/internal/lighting"
)

// defaultHandleTimeout bounds the store work done for one MQTT message.
const defaultHandleTimeout = 5 * time.Second

// Bus is the subset of the MQTT client used by this package.
type Bus interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Topics() mqtt.Topics
	QoS() byte
}

// ReadingRecorder stores a validated reading.
type ReadingRecorder interface {
	RecordReading(ctx context.Context, r lighting.Reading) (*lighting.SensorLog, error)
}

// Subscriber ingests device readings from MQTT.
type Subscriber struct {
	bus      Bus
	recorder ReadingRecorder
	logger   *slog.Logger
	timeout  time.Duration
}

// NewSubscriber creates a Subscriber. A nil logger selects slog.Default.
func NewSubscriber(bus Bus, recorder ReadingRecorder, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		bus:      bus,
		recorder: recorder,
		logger:   logger,
		timeout:  defaultHandleTimeout,
	}
}

// Start subscribes to the device log topic. The subscription is restored
// by the client after a reconnect.
func (s *Subscriber) Start() error {
	topic := s.bus.Topics().DeviceLog()
	if err := s.bus.Subscribe(topic, s.bus.QoS(), s.handleReading); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	s.logger.Info("listening for device readings", "topic", topic)
	return nil
}

// handleReading validates and stores one published reading. Rejected
// payloads are logged here and reported to the client as an error.
func (s *Subscriber) handleReading(topic string, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	reading, err := lighting.ParseReading(payload)
	if err != nil {
		var verr *lighting.ValidationError
		if errors.As(err, &verr) {
			s.logger.Warn("rejected device reading", "topic", topic, "fields", verr.Fields)
		}
		return fmt.Errorf("parsing reading: %w", err)
	}

	log, err := s.recorder.RecordReading(ctx, reading)
	if err != nil {
		return fmt.Errorf("recording reading: %w", err)
	}

	s.logger.Debug("device reading stored",
		"log_id", log.ID,
		"light_value", log.LightValue,
		"lamp_status", log.LampStatus,
	)
	return nil
}
