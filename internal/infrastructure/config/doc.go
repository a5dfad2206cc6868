// Package config loads the service configuration.
//
// Values are layered: built-in defaults, then the YAML file, then
// SMARTLIGHT_* environment variables. Secrets such as the JWT signing key,
// the MQTT password and the InfluxDB token are expected to arrive through
// the environment. A malformed override or an invalid value fails Load with
// every problem listed, so a misconfigured deployment stops at startup.
//
// The lighting section selects how the device configuration is stored
// (a single row or an append-only history) and the defaults used before an
// administrator has saved one.
package config
