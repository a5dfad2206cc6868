package mqtt

import "strings"

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "smartlight"

// Topics builds Smart Lighting MQTT topics under a common prefix.
//
//	topics := mqtt.NewTopics("smartlight")
//	topics.DeviceLog()    // "smartlight/device/log"
//	topics.SystemStatus() // "smartlight/system/status"
type Topics struct {
	prefix string
}

// NewTopics returns a topic builder for prefix. Surrounding slashes are
// trimmed and an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root of every topic built by t.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// DeviceLog is where the device publishes sensor readings.
//
// Example: smartlight/device/log
func (t Topics) DeviceLog() string {
	return t.Prefix() + "/device/log"
}

// SystemStatus carries the backend's online/offline status and the LWT.
//
// Example: smartlight/system/status
func (t Topics) SystemStatus() string {
	return t.Prefix() + "/system/status"
}

// AllDevice matches every device topic.
//
// Pattern: smartlight/device/#
func (t Topics) AllDevice() string {
	return t.Prefix() + "/device/#"
}
