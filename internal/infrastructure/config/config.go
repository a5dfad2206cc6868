package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigStorageSingleton keeps one config row and updates it in place.
	ConfigStorageSingleton = "singleton"

	// ConfigStorageVersioned appends a new row per update; the newest row wins.
	ConfigStorageVersioned = "versioned"
)

// ValidConfigStorage reports whether s names a supported config storage mode.
func ValidConfigStorage(s string) bool {
	return s == ConfigStorageSingleton || s == ConfigStorageVersioned
}

// Config is the full service configuration. See Load for precedence.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
	Lighting LightingConfig `yaml:"lighting"`
}

// SiteConfig names the installation. ID tags every InfluxDB point.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig locates the SQLite file. BusyTimeout is in milliseconds.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
//
// MQTT is optional. When enabled, the device may publish readings to
// <topic_prefix>/device/log as well as calling POST /api/device/log.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
}

type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig bounds the retry backoff, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`

	// BehindProxy trusts X-Forwarded-For / X-Real-IP for the client
	// address. Enable only behind a reverse proxy that sets them.
	BehindProxy bool `yaml:"behind_proxy"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig holds server timeouts in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig lists dashboard origins. Empty AllowedOrigins allows any.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// InfluxDBConfig configures the optional reading sink. FlushInterval is
// in seconds.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	// AccessTokenTTL is the token lifetime in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`
}

// BootstrapConfig seeds the first admin account on an empty database.
// An empty password means one is generated and logged once.
type BootstrapConfig struct {
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

// LightingConfig tunes the config and sensor log stores.
type LightingConfig struct {
	// ConfigStorage selects how config updates are persisted: "singleton" or "versioned".
	ConfigStorage string `yaml:"config_storage"`

	// MaxPageSize caps the limit query parameter on log listings.
	MaxPageSize int `yaml:"max_page_size"`
}

// Load builds the configuration from defaults, the YAML file at path and
// SMARTLIGHT_* environment variables, in that order, then validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Smart Lighting",
		},
		Database: DatabaseConfig{
			Path:        "./data/smartlight.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "smartlight-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "smartlight",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 3000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "smartlight",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 1440,
			},
			Bootstrap: BootstrapConfig{
				AdminUsername: "admin",
			},
		},
		Lighting: LightingConfig{
			ConfigStorage: ConfigStorageSingleton,
			MaxPageSize:   200,
		},
	}
}

// envOverrides maps SMARTLIGHT_* variables onto config fields. Secrets
// belong here rather than in the YAML file.
var envOverrides = []struct {
	name  string
	apply func(c *Config, v string) error
}{
	{"SMARTLIGHT_DATABASE_PATH", func(c *Config, v string) error { c.Database.Path = v; return nil }},
	{"SMARTLIGHT_MQTT_ENABLED", func(c *Config, v string) error { return setBool(&c.MQTT.Enabled, v) }},
	{"SMARTLIGHT_MQTT_HOST", func(c *Config, v string) error { c.MQTT.Broker.Host = v; return nil }},
	{"SMARTLIGHT_MQTT_USERNAME", func(c *Config, v string) error { c.MQTT.Auth.Username = v; return nil }},
	{"SMARTLIGHT_MQTT_PASSWORD", func(c *Config, v string) error { c.MQTT.Auth.Password = v; return nil }},
	{"SMARTLIGHT_API_HOST", func(c *Config, v string) error { c.API.Host = v; return nil }},
	{"SMARTLIGHT_API_PORT", func(c *Config, v string) error { return setInt(&c.API.Port, v) }},
	{"SMARTLIGHT_INFLUXDB_ENABLED", func(c *Config, v string) error { return setBool(&c.InfluxDB.Enabled, v) }},
	{"SMARTLIGHT_INFLUXDB_URL", func(c *Config, v string) error { c.InfluxDB.URL = v; return nil }},
	{"SMARTLIGHT_INFLUXDB_TOKEN", func(c *Config, v string) error { c.InfluxDB.Token = v; return nil }},
	{"SMARTLIGHT_LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"SMARTLIGHT_JWT_SECRET", func(c *Config, v string) error { c.Security.JWT.Secret = v; return nil }},
	{"SMARTLIGHT_ADMIN_PASSWORD", func(c *Config, v string) error { c.Security.Bootstrap.AdminPassword = v; return nil }},
	{"SMARTLIGHT_CONFIG_STORAGE", func(c *Config, v string) error { c.Lighting.ConfigStorage = v; return nil }},
}

// applyEnvOverrides applies every non-empty variable in envOverrides.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	for _, o := range envOverrides {
		v, ok := os.LookupEnv(o.name)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(cfg, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.name, err))
		}
	}
	return errors.Join(errs...)
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("not an integer: %q", v)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("not a boolean: %q", v)
	}
	*dst = b
	return nil
}

// minJWTSecretLength guards the HMAC key that signs admin tokens.
const minJWTSecretLength = 32

// Validate reports every problem at once, one per line.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Site.ID != "", "site.id is required")
	check(c.Database.Path != "", "database.path is required")
	check(c.API.Port >= 1 && c.API.Port <= 65535, "api.port must be between 1 and 65535, got %d", c.API.Port)
	check(!c.API.TLS.Enabled || (c.API.TLS.CertFile != "" && c.API.TLS.KeyFile != ""),
		"api.tls.cert_file and api.tls.key_file are required when api.tls is enabled")
	check(c.MQTT.QoS >= 0 && c.MQTT.QoS <= 2, "mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	check(!c.MQTT.Enabled || c.MQTT.Broker.Host != "", "mqtt.broker.host is required when mqtt is enabled")
	check(!c.InfluxDB.Enabled || c.InfluxDB.URL != "", "influxdb.url is required when influxdb is enabled")

	switch secret := c.Security.JWT.Secret; {
	case secret == "":
		errs = append(errs, errors.New("security.jwt.secret is required (set SMARTLIGHT_JWT_SECRET)"))
	case len(secret) < minJWTSecretLength:
		errs = append(errs, fmt.Errorf("security.jwt.secret must be at least %d characters", minJWTSecretLength))
	}
	check(c.Security.JWT.AccessTokenTTL >= 0, "security.jwt.access_token_ttl must not be negative")

	check(ValidConfigStorage(c.Lighting.ConfigStorage),
		"lighting.config_storage must be %q or %q, got %q",
		ConfigStorageSingleton, ConfigStorageVersioned, c.Lighting.ConfigStorage)
	check(c.Lighting.MaxPageSize >= 1, "lighting.max_page_size must be at least 1")

	return errors.Join(errs...)
}

// ReadTimeout is the server's read and read-header timeout.
func (t APITimeoutConfig) ReadTimeout() time.Duration { return time.Duration(t.Read) * time.Second }

// WriteTimeout is the server's response write timeout.
func (t APITimeoutConfig) WriteTimeout() time.Duration { return time.Duration(t.Write) * time.Second }

// IdleTimeout is how long keep-alive connections may sit idle.
func (t APITimeoutConfig) IdleTimeout() time.Duration { return time.Duration(t.Idle) * time.Second }

// GetAccessTokenTTL returns the JWT lifetime.
func (c *Config) GetAccessTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.AccessTokenTTL) * time.Minute
}
