// Package config loads and validates ingest configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
// Required deployment values (API credential, region, bucket name) are
// validated lazily by the component that first uses them, never
// defaulted here; Validate only enforces structural limits.
type Config struct {
	Guardian GuardianConfig `mapstructure:"guardian"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Broker   BrokerConfig   `mapstructure:"broker"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// GuardianConfig points at the upstream content API.
type GuardianConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StorageConfig locates the archive bucket.
type StorageConfig struct {
	Bucket    string `mapstructure:"bucket"`
	ProjectID string `mapstructure:"project_id"`
	Region    string `mapstructure:"region"`
}

// BrokerConfig locates the message broker.
type BrokerConfig struct {
	ProjectID     string `mapstructure:"project_id"`
	Region        string `mapstructure:"region"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// ServerConfig controls the HTTP trigger server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. Environment variables use
// the INGEST_ prefix with underscores for section separators, e.g.
// INGEST_GUARDIAN_API_KEY.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("guardian.base_url", "https://content.guardianapis.com")
	v.SetDefault("guardian.timeout_seconds", 10)
	v.SetDefault("broker.retention_days", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)

	// Deployment values stay empty unless supplied; registering the
	// keys is what lets AutomaticEnv feed them into Unmarshal.
	v.SetDefault("guardian.api_key", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.project_id", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("broker.project_id", "")
	v.SetDefault("broker.region", "")
}

// Validate enforces structural limits.
func (c Config) Validate() error {
	if c.Guardian.TimeoutSeconds <= 0 {
		return fmt.Errorf("guardian.timeout_seconds must be > 0")
	}
	if c.Broker.RetentionDays <= 0 {
		return fmt.Errorf("broker.retention_days must be > 0")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// GuardianTimeout converts the configured timeout into a duration.
func (c Config) GuardianTimeout() time.Duration {
	return time.Duration(c.Guardian.TimeoutSeconds) * time.Second
}
