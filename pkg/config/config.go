// Package config loads the YAML file that configures logging and the
// optional integrations (MQTT, InfluxDB, mDNS, HTTP extras). Listener and
// display settings live in the profile database instead.
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

// Config is the root of the YAML file.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	HTTP     HTTPConfig     `yaml:"http"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	MDNS     MDNSConfig     `yaml:"mdns"`
}

// LoggingConfig controls the global zerolog logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ServerConfig holds command server lifecycle settings.
type ServerConfig struct {
	DrainTimeoutSec int `yaml:"drain_timeout_sec"`
}

// HTTPConfig holds HTTP API extras. Host, port and the on/off switch are
// per profile.
type HTTPConfig struct {
	CORSOrigins []string `yaml:"cors_origins"`
	Swagger     bool     `yaml:"swagger"`
}

// MQTTConfig configures the MQTT bridge.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

// InfluxDBConfig configures command metrics.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	FlushInterval int    `yaml:"flush_interval_ms"`
}

// MDNSConfig configures the zeroconf advertisement.
type MDNSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
	Service  string `yaml:"service"`
	Domain   string `yaml:"domain"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Server: ServerConfig{
			DrainTimeoutSec: 2,
		},
		HTTP: HTTPConfig{
			Swagger: true,
		},
		MQTT: MQTTConfig{
			Host:        "localhost",
			Port:        1883,
			ClientID:    "treelights",
			TopicPrefix: "treelights",
			QoS:         1,
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "treelights",
			Bucket:        "treelights",
			FlushInterval: 1000,
		},
		MDNS: MDNSConfig{
			Enabled:  true,
			Instance: "simpledigitaltwin",
			Service:  "_rgbtree._tcp",
			Domain:   "local.",
		},
	}
}

// Load reads path over the defaults, applies TREELIGHTS_* environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg, os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	if v := getenv("TREELIGHTS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getenv("TREELIGHTS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := getenv("TREELIGHTS_MQTT_HOST"); v != "" {
		cfg.MQTT.Host = v
		cfg.MQTT.Enabled = true
	}
	if v := getenv("TREELIGHTS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := getenv("TREELIGHTS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}

	if v := getenv("TREELIGHTS_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
		cfg.InfluxDB.Enabled = true
	}
	if v := getenv("TREELIGHTS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := getenv("TREELIGHTS_MDNS"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TREELIGHTS_MDNS %q: %w", v, err)
		}
		cfg.MDNS.Enabled = enabled
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level))
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format %q must be console or json", c.Logging.Format))
	}
	if c.Server.DrainTimeoutSec < 0 {
		errs = append(errs, errors.New("server.drain_timeout_sec must not be negative"))
	}

	if c.MQTT.Enabled {
		if c.MQTT.Host == "" {
			errs = append(errs, errors.New("mqtt.host is required when mqtt is enabled"))
		}
		if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
			errs = append(errs, errors.New("mqtt.port must be between 1 and 65535"))
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, errors.New("mqtt.qos must be 0, 1, or 2"))
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, errors.New("mqtt.topic_prefix is required when mqtt is enabled"))
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, errors.New("influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled"))
		}
	}

	if c.MDNS.Enabled && (c.MDNS.Instance == "" || c.MDNS.Service == "") {
		errs = append(errs, errors.New("mdns.instance and mdns.service are required when mdns is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(errs...))
	}
	return nil
}

// DrainTimeout returns how long shutdown waits for sessions to finish.
func (c *Config) DrainTimeout() time.Duration {
	return time.Duration(c.Server.DrainTimeoutSec) * time.Second
}

// FlushIntervalDuration returns the InfluxDB batch flush interval.
func (c *InfluxDBConfig) FlushIntervalDuration() time.Duration {
	return time.Duration(c.FlushInterval) * time.Millisecond
}

// BrokerURL returns the MQTT broker URL.
func (c *MQTTConfig) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}
