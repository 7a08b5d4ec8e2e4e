// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"mmss/internal/storage"
)

// Directory modes.
const (
	DirectoryLocal  = "local"
	DirectoryRemote = "remote"
)

type Config struct {
	Port      string    `mapstructure:"port"`
	Database  Database  `mapstructure:"database"`
	Policy    Policy    `mapstructure:"policy"`
	Directory Directory `mapstructure:"directory"`
	Gateway   Gateway   `mapstructure:"gateway"`
	Telemetry Telemetry `mapstructure:"telemetry"`
	Log       Log       `mapstructure:"log"`
}

type Database struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

type Policy struct {
	LoanPeriodDays int    `mapstructure:"loan_period_days"`
	ShiftCapacity  int    `mapstructure:"shift_capacity"`
	Prices         Prices `mapstructure:"prices"`
}

// Prices are per person, in cents.
type Prices struct {
	Morning   int64 `mapstructure:"morning"`
	Afternoon int64 `mapstructure:"afternoon"`
	Evening   int64 `mapstructure:"evening"`
}

type Directory struct {
	Mode           string `mapstructure:"mode"`
	VisitorsURL    string `mapstructure:"visitors_url"`
	CollectionsURL string `mapstructure:"collections_url"`
}

// Gateway routes /api/v1/loans and /api/v1/tours to ExchangeURL and the
// directory paths to the Directory URLs.
type Gateway struct {
	ExchangeURL string `mapstructure:"exchange_url"`
}

type Telemetry struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"port":                      "8080",
	"database.driver":           storage.DriverMemory,
	"database.url":              "",
	"policy.loan_period_days":   14,
	"policy.shift_capacity":     20,
	"policy.prices.morning":     1000,
	"policy.prices.afternoon":   1200,
	"policy.prices.evening":     1500,
	"directory.mode":            DirectoryLocal,
	"directory.visitors_url":    "http://localhost:8083",
	"directory.collections_url": "http://localhost:8081",
	"gateway.exchange_url":      "http://localhost:8082",
	"telemetry.service_name":    "mmss",
	"telemetry.otlp_endpoint":   "",
	"log.level":                 "info",
	"log.format":                "json",
}

// Environment names the services honoured before the MMSS_ prefix existed.
var legacyEnv = map[string]string{
	"port":                      "PORT",
	"database.url":              "DATABASE_URL",
	"directory.visitors_url":    "VISITORS_SERVICE_URL",
	"directory.collections_url": "COLLECTIONS_SERVICE_URL",
	"gateway.exchange_url":      "EXCHANGE_SERVICE_URL",
}

// Load reads path (optional), then the environment, then defaults.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("MMSS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "MMSS_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case storage.DriverMemory, storage.DriverSQLite:
	case storage.DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver %q is not one of memory, sqlite, postgres", c.Database.Driver)
	}
	switch c.Directory.Mode {
	case DirectoryLocal, DirectoryRemote:
	default:
		return fmt.Errorf("directory.mode %q is not one of local, remote", c.Directory.Mode)
	}
	if c.Policy.LoanPeriodDays <= 0 {
		return fmt.Errorf("policy.loan_period_days must be positive")
	}
	if c.Policy.ShiftCapacity <= 0 {
		return fmt.Errorf("policy.shift_capacity must be positive")
	}
	p := c.Policy.Prices
	if p.Morning < 0 || p.Afternoon < 0 || p.Evening < 0 {
		return fmt.Errorf("policy.prices must not be negative")
	}
	return nil
}
