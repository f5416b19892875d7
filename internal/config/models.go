package config

import (
	"fmt"
	"time"

	"github.com/mikey/threat-alert-engine/internal/core"
)

// IncidentConfig represents the incident fusion configuration
type IncidentConfig struct {
	Enabled          bool
	TTL              time.Duration
	PosCap           float64
	NegCap           float64
	StrongestFactors []string
}

// ServerConfig represents the intake configuration
type ServerConfig struct {
	IntakeType    string
	ListenAddress string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxBatchSize  int
}

// RedisConfig represents the Redis streams intake configuration
type RedisConfig struct {
	URL            string
	Stream         string
	Group          string
	Consumer       string
	DecisionStream string
	Block          time.Duration
	BatchSize      int64
	// Pending messages idle this long are claimed back for another attempt
	ClaimMinIdle  time.Duration
	ClaimInterval time.Duration
	// Deliveries after which a fail-safe decision is published instead
	MaxDeliveries int64
}

// StoreConfig represents the assessment store configuration
type StoreConfig struct {
	Type             string
	Enabled          bool
	Retention        time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// GetThresholds returns the validated severity bands. An unset
// thresholds.wait is derived from the alert threshold.
func (c *Config) GetThresholds() (core.Thresholds, error) {
	failSafe, err := core.ParseAlertDecision(c.GetString("thresholds.fail_safe"))
	if err != nil {
		return core.Thresholds{}, fmt.Errorf("%w: %v", core.ErrInvalidThresholds, err)
	}

	t := core.Thresholds{
		Critical: c.GetFloat64("thresholds.critical"),
		Elevated: c.GetFloat64("thresholds.elevated"),
		Alert:    c.GetFloat64("thresholds.alert"),
		FailSafe: failSafe,
	}
	if c.IsSet("thresholds.wait") {
		t.Wait = c.GetFloat64("thresholds.wait")
	} else {
		t.Wait = t.Alert * core.DefaultWaitRatio
	}

	if err := t.Validate(); err != nil {
		return core.Thresholds{}, err
	}
	return t, nil
}

// GetAggregator returns the validated calibration settings
func (c *Config) GetAggregator() (core.AggregatorConfig, error) {
	cfg := core.AggregatorConfig{
		PriorLogit:  c.GetFloat64("aggregator.prior_logit"),
		MeanLogit:   c.GetFloat64("aggregator.mean_logit"),
		Temperature: c.GetFloat64("aggregator.temperature"),
		OddsCap:     c.GetFloat64("aggregator.odds_cap"),
	}
	if err := cfg.Validate(); err != nil {
		return core.AggregatorConfig{}, err
	}
	return cfg, nil
}

// GetIncident returns the incident fusion configuration
func (c *Config) GetIncident() (IncidentConfig, error) {
	ttl, err := c.GetDuration("incident.ttl")
	if err != nil {
		return IncidentConfig{}, err
	}
	return IncidentConfig{
		Enabled:          c.GetBool("incident.enabled"),
		TTL:              ttl,
		PosCap:           c.GetFloat64("incident.pos_cap"),
		NegCap:           c.GetFloat64("incident.neg_cap"),
		StrongestFactors: c.GetStringSlice("incident.strongest_factors"),
	}, nil
}

// GetServer returns the intake configuration
func (c *Config) GetServer() (ServerConfig, error) {
	readTimeout, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	writeTimeout, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		IntakeType:    c.GetString("server.intake_type"),
		ListenAddress: c.GetString("server.listen_address"),
		ReadTimeout:   readTimeout,
		WriteTimeout:  writeTimeout,
		MaxBatchSize:  c.GetInt("server.max_batch_size"),
	}, nil
}

// GetRedis returns the Redis streams configuration
func (c *Config) GetRedis() (RedisConfig, error) {
	block, err := c.GetDuration("redis.block")
	if err != nil {
		return RedisConfig{}, err
	}
	minIdle, err := c.GetDuration("redis.claim_min_idle")
	if err != nil {
		return RedisConfig{}, err
	}
	interval, err := c.GetDuration("redis.claim_interval")
	if err != nil {
		return RedisConfig{}, err
	}
	return RedisConfig{
		URL:            c.GetString("redis.url"),
		Stream:         c.GetString("redis.stream"),
		Group:          c.GetString("redis.group"),
		Consumer:       c.GetString("redis.consumer"),
		DecisionStream: c.GetString("redis.decision_stream"),
		Block:          block,
		BatchSize:      int64(c.GetInt("redis.batch_size")),
		ClaimMinIdle:   minIdle,
		ClaimInterval:  interval,
		MaxDeliveries:  int64(c.GetInt("redis.max_deliveries")),
	}, nil
}

// GetStore returns the assessment store configuration
func (c *Config) GetStore() (StoreConfig, error) {
	retention, err := c.GetDuration("store.retention")
	if err != nil {
		return StoreConfig{}, err
	}
	cleanup, err := c.GetDuration("store.cleanup_frequency")
	if err != nil {
		return StoreConfig{}, err
	}
	return StoreConfig{
		Type:             c.GetString("store.type"),
		Enabled:          c.GetBool("store.enabled"),
		Retention:        retention,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("store.sqlite_path"),
		MySQLDSN:         c.GetString("store.mysql_dsn"),
	}, nil
}
