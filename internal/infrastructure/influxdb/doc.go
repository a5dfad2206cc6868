// Package influxdb mirrors accepted sensor readings into the
// light_reading measurement of an InfluxDB v2 bucket.
//
// SQLite remains the system of record; the mirror exists for long-range
// charting outside the dashboard and may be disabled or unreachable
// without affecting ingestion.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetOnError(func(err error) { log.Error("influx write", "error", err) })
package influxdb
