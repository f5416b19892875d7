package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// ALERT_ENGINE_THRESHOLDS_ALERT
const EnvPrefix = "ALERT_ENGINE"

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/threat-alert-engine/")
	v.AddConfigPath("$HOME/.threat-alert-engine")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromFile loads configuration from the given file. Unlike New, a
// missing file is an error.
func NewFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return &Config{v: v}, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// bound explicitly since it has no default
	_ = v.BindEnv("thresholds.wait")
	return v
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	// Severity bands. thresholds.wait deliberately has no default so an unset
	// value can be told apart from an explicit one.
	v.SetDefault("thresholds.critical", 0.5)
	v.SetDefault("thresholds.elevated", 0.3)
	v.SetDefault("thresholds.alert", 0.15)
	v.SetDefault("thresholds.fail_safe", "standard")

	// Calibration, see core.DefaultAggregatorConfig
	v.SetDefault("aggregator.prior_logit", -2.0/1.4)
	v.SetDefault("aggregator.mean_logit", 0.0)
	v.SetDefault("aggregator.temperature", 1.0)
	v.SetDefault("aggregator.odds_cap", 0.0)

	v.SetDefault("incident.enabled", true)
	v.SetDefault("incident.ttl", "180s")
	v.SetDefault("incident.pos_cap", 1.6)
	v.SetDefault("incident.neg_cap", 3.0)
	v.SetDefault("incident.strongest_factors", []string{"identity_recognition", "presence", "delivery_token_validity"})

	v.SetDefault("factors.known", []string{})
	v.SetDefault("reasoner.enabled", true)
	v.SetDefault("service.batch_concurrency", 8)

	v.SetDefault("server.intake_type", "http")
	v.SetDefault("server.listen_address", "0.0.0.0:8088")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.max_batch_size", 500)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.stream", "security-events")
	v.SetDefault("redis.group", "alert-engine")
	v.SetDefault("redis.consumer", "alert-engine-1")
	v.SetDefault("redis.decision_stream", "alert-decisions")
	v.SetDefault("redis.block", "5s")
	v.SetDefault("redis.batch_size", 32)
	v.SetDefault("redis.claim_min_idle", "30s")
	v.SetDefault("redis.claim_interval", "15s")
	v.SetDefault("redis.max_deliveries", 5)

	v.SetDefault("store.type", "memory")
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.retention", "24h")
	v.SetDefault("store.cleanup_frequency", "1h")
	v.SetDefault("store.sqlite_path", "/data/assessments.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/alert_engine")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// IsSet reports whether the key has a value from any source, defaults included
func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

// GetDuration gets a duration value from the configuration. Values carry a
// unit ("90s", "1h"); a bare number is read as seconds.
func (c *Config) GetDuration(key string) (time.Duration, error) {
	raw := strings.TrimSpace(c.GetString(key))
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
			return 0, fmt.Errorf("invalid duration for %s: %q", key, raw)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
