package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings for the Synapse server and CLI. Values
// come from the environment (SYNAPSE_ prefix), an optional config file, and
// built-in defaults, in that priority order.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Agent bounds per run.
	MaxSteps    int           `mapstructure:"max_steps"`
	MaxDuration time.Duration `mapstructure:"max_duration"`
	StreamDelay time.Duration `mapstructure:"stream_delay"`

	CORSOrigins []string `mapstructure:"cors_origins"`

	// Default push tokens used when a run does not carry its own.
	DefaultCustomerToken  string `mapstructure:"default_customer_token"`
	DefaultDriverToken    string `mapstructure:"default_driver_token"`
	DefaultPassengerToken string `mapstructure:"default_passenger_token"`

	// PushDryRun short-circuits the push sender so demos work without
	// real device tokens.
	PushDryRun bool `mapstructure:"push_dry_run"`

	// Push API credentials, used only when PushDryRun is false.
	PushProjectID   string `mapstructure:"push_project_id"`
	PushAccessToken string `mapstructure:"push_access_token"`

	// EvidenceDir is where uploaded evidence images are stored.
	EvidenceDir string `mapstructure:"evidence_dir"`

	// SessionCapacity bounds the suspended-session registry.
	SessionCapacity int `mapstructure:"session_capacity"`
}

// Load reads configuration from the environment and, when path is non-empty,
// from the given YAML config file.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 5000)
	v.SetDefault("max_steps", 7)
	v.SetDefault("max_duration", 120*time.Second)
	v.SetDefault("stream_delay", 100*time.Millisecond)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("push_dry_run", false)
	v.SetDefault("evidence_dir", "uploads")
	v.SetDefault("session_capacity", 512)

	v.SetEnvPrefix("SYNAPSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	if c.MaxDuration <= 0 {
		return fmt.Errorf("max_duration must be positive, got %s", c.MaxDuration)
	}
	if c.SessionCapacity <= 0 {
		return fmt.Errorf("session_capacity must be positive, got %d", c.SessionCapacity)
	}
	return nil
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
