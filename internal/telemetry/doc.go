// Package telemetry connects the lighting services to the optional MQTT
// and InfluxDB infrastructure.
//
// Subscriber feeds readings published on <prefix>/device/log through the
// same gateway path as POST /api/device/log. InfluxSink mirrors every
// accepted reading into InfluxDB.
package telemetry
