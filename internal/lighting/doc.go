// Package lighting holds the smart lighting domain: the stored lighting
// configuration, the append-only sensor log, the device-facing Gateway and
// the web-facing Dashboard.
//
// The current configuration is the row with the latest updated_at, ties
// broken by the larger id. Depending on StorageMode an update either
// rewrites that row or appends a new one. When no row exists the factory
// default (threshold 2000, manual mode off, lamp off) is served and is
// materialised by the first update.
//
// Readings are stamped with the id of the configuration current when they
// arrive. They are never rejected for disagreeing with it.
package lighting
