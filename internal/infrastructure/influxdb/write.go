package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementLightReading is the measurement every accepted sensor reading
// is written to.
const MeasurementLightReading = "light_reading"

// LightReading is one sensor reading as mirrored into InfluxDB.
type LightReading struct {
	// Site tags the point so several installations can share a bucket.
	Site       string
	LogID      int64
	LightValue int
	LampStatus bool
	// ConfigID is the configuration in force when the reading arrived.
	ConfigID *int64
	Time     time.Time
}

// WriteLightReading queues a reading for the next batch.
//
// The write is non-blocking; delivery failures surface through the
// SetOnError callback. Returns ErrNotConnected after Close.
func (c *Client) WriteLightReading(r LightReading) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.writer.WritePoint(lightReadingPoint(r))
	return nil
}

// lightReadingPoint converts r into a line-protocol point. Lamp status is
// stored both as a boolean and as 0/1 so it can be averaged.
func lightReadingPoint(r LightReading) *write.Point {
	tags := map[string]string{}
	if r.Site != "" {
		tags["site"] = r.Site
	}

	lamp := 0
	if r.LampStatus {
		lamp = 1
	}
	fields := map[string]any{
		"log_id":      r.LogID,
		"light_value": r.LightValue,
		"lamp_status": r.LampStatus,
		"lamp_on":     lamp,
	}
	if r.ConfigID != nil {
		fields["config_id"] = *r.ConfigID
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(MeasurementLightReading, tags, fields, ts)
}
