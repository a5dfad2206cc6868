package telemetry

import (
	"context"

	"github.com/nerrad567/smartlight-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/smartlight-core/internal/lighting"
)

// ReadingWriter queues a reading for a time-series store.
type ReadingWriter interface {
	WriteLightReading(r influxdb.LightReading) error
}

// InfluxSink mirrors stored readings into InfluxDB. It implements
// lighting.ReadingSink.
type InfluxSink struct {
	writer ReadingWriter
	site   string
}

// NewInfluxSink creates a sink tagging every point with site.
func NewInfluxSink(writer ReadingWriter, site string) *InfluxSink {
	return &InfluxSink{writer: writer, site: site}
}

// RecordLightReading queues log for the next InfluxDB batch.
func (s *InfluxSink) RecordLightReading(_ context.Context, log lighting.SensorLog) error {
	return s.writer.WriteLightReading(influxdb.LightReading{
		Site:       s.site,
		LogID:      log.ID,
		LightValue: log.LightValue,
		LampStatus: log.LampStatus,
		ConfigID:   log.ConfigID,
		Time:       log.CreatedAt,
	})
}
