// Package config defines all configuration for the MT4 Web Terminal
// adapter. Config is loaded from a YAML file (default: configs/config.yaml)
// with sensitive fields overridable via MT4_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure.
type Config struct {
	Login     LoginConfig     `mapstructure:"login"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// LoginConfig identifies the MT4 account the adapter authenticates as.
type LoginConfig struct {
	Login    string `mapstructure:"login"`
	Password string `mapstructure:"password"`
	Server   string `mapstructure:"server"`
}

// GatewayConfig points at the Web Terminal token endpoint and gateway id.
type GatewayConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	GatewayID  string        `mapstructure:"gateway_id"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// TrackerConfig tunes request lifecycle tracking.
//
//   - RequestTimeout: how long a TradeRequest may stay unconfirmed before
//     the sweeper reports it as timed out.
//   - SweepInterval: how often the sweeper scans for expired requests.
type TrackerConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: MT4_LOGIN, MT4_PASSWORD, MT4_SERVER.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MT4")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("tracker.request_timeout", 180*time.Second)
	v.SetDefault("tracker.sweep_interval", 5*time.Second)
	v.SetDefault("gateway.dial_timeout", 10*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if login := os.Getenv("MT4_LOGIN"); login != "" {
		cfg.Login.Login = login
	}
	if password := os.Getenv("MT4_PASSWORD"); password != "" {
		cfg.Login.Password = password
	}
	if server := os.Getenv("MT4_SERVER"); server != "" {
		cfg.Login.Server = server
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Login.Login == "" {
		return fmt.Errorf("login.login is required (set MT4_LOGIN)")
	}
	if c.Login.Password == "" {
		return fmt.Errorf("login.password is required (set MT4_PASSWORD)")
	}
	if c.Login.Server == "" {
		return fmt.Errorf("login.server is required (set MT4_SERVER)")
	}
	if c.Tracker.RequestTimeout <= 0 {
		return fmt.Errorf("tracker.request_timeout must be > 0")
	}
	if c.Tracker.SweepInterval <= 0 {
		return fmt.Errorf("tracker.sweep_interval must be > 0")
	}
	if c.Tracker.SweepInterval >= c.Tracker.RequestTimeout {
		return fmt.Errorf("tracker.sweep_interval must be smaller than tracker.request_timeout")
	}
	return nil
}
