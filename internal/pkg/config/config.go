package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	NATS         NATSConfig         `mapstructure:"nats"`
	Valkey       ValkeyConfig       `mapstructure:"valkey"`
	Mapbox       MapboxConfig       `mapstructure:"mapbox"`
	Roboflow     RoboflowConfig     `mapstructure:"roboflow"`
	Verification VerificationConfig `mapstructure:"verification"`
	Scan         ScanConfig         `mapstructure:"scan"`
	Temporal     TemporalConfig     `mapstructure:"temporal"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// MapboxConfig configures the satellite tile and geocoding provider.
type MapboxConfig struct {
	Token string `mapstructure:"token"`
}

// RoboflowConfig configures the hosted inference model.
type RoboflowConfig struct {
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	ModelVersion string `mapstructure:"model_version"`
}

// VerificationConfig tunes the crowd-verification thresholds.
type VerificationConfig struct {
	MinFeedbackCount      int     `mapstructure:"min_feedback_count"`
	MinPositivePercentage float64 `mapstructure:"min_positive_percentage"`
}

// ScanConfig tunes the tile scan pipeline.
type ScanConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// TemporalConfig configures the workflow engine for long-running scans.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "courtscan")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "courtscan")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("mapbox.token", "")
	v.SetDefault("roboflow.api_key", "")
	v.SetDefault("roboflow.model", "court-detection")
	v.SetDefault("roboflow.model_version", "9")
	v.SetDefault("verification.min_feedback_count", 5)
	v.SetDefault("verification.min_positive_percentage", 0.7)
	v.SetDefault("scan.concurrency", 4)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "courtscan-scans")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: COURTSCAN_DATABASE_HOST → database.host
	v.SetEnvPrefix("COURTSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Roboflow.Model == "" || c.Roboflow.ModelVersion == "" {
		errs = append(errs, "roboflow.model and roboflow.model_version are required")
	}
	if c.Verification.MinFeedbackCount <= 0 {
		errs = append(errs, "verification.min_feedback_count must be positive")
	}
	if c.Verification.MinPositivePercentage <= 0 || c.Verification.MinPositivePercentage > 1 {
		errs = append(errs, fmt.Sprintf("verification.min_positive_percentage must be in (0, 1], got %v", c.Verification.MinPositivePercentage))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
