// Package config provides unified configuration loading for the print service.
// Supports YAML files, .env files, environment variables and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the print service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Printer       PrinterConfig       `yaml:"printer"`
	Crop          CropConfig          `yaml:"crop"`
	Fetch         FetchConfig         `yaml:"fetch"`
	Lock          LockConfig          `yaml:"lock"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PrinterConfig holds the target device settings.
type PrinterConfig struct {
	Name   string      `yaml:"name"`
	Driver string      `yaml:"driver"` // ipp or spool
	DPI    int         `yaml:"dpi"`
	IPP    IPPConfig   `yaml:"ipp"`
	Spool  SpoolConfig `yaml:"spool"`
}

// IPPConfig holds CUPS/IPP connection settings.
type IPPConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	TLS          bool          `yaml:"tls"`
	JobTimeout   time.Duration `yaml:"job_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// SpoolConfig holds settings for the directory-backed device.
type SpoolConfig struct {
	Dir string `yaml:"dir"`
}

// CropConfig holds crop calculator settings.
type CropConfig struct {
	Mode string `yaml:"mode"` // bottom or tight
}

// FetchConfig holds document download settings.
type FetchConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxBytes   int64         `yaml:"max_bytes"`
	UserAgent  string        `yaml:"user_agent"`
	MaxRetries int           `yaml:"max_retries"`
}

// LockConfig holds device lock settings.
type LockConfig struct {
	Driver string        `yaml:"driver"` // memory or redis
	TTL    time.Duration `yaml:"ttl"`
	Wait   time.Duration `yaml:"wait"`
	Redis  RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
// A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "localhost",
			Port:             1234,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     5 * time.Minute,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   5 * time.Minute,
			GracefulShutdown: 30 * time.Second,
		},
		Printer: PrinterConfig{
			Name:   "Hengstler Extendo X56",
			Driver: "ipp",
			DPI:    203,
			IPP: IPPConfig{
				Host:         "localhost",
				Port:         631,
				JobTimeout:   2 * time.Minute,
				PollInterval: 500 * time.Millisecond,
			},
			Spool: SpoolConfig{
				Dir: "/tmp/pdf-printer-spool",
			},
		},
		Crop: CropConfig{
			Mode: "bottom",
		},
		Fetch: FetchConfig{
			Timeout:    60 * time.Second,
			MaxBytes:   64 << 20,
			UserAgent:  "pdf-printer/1.0",
			MaxRetries: 2,
		},
		Lock: LockConfig{
			Driver: "memory",
			TTL:    10 * time.Minute,
			Wait:   30 * time.Second,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "pdf-printer:lock:",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "pdf-printer",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if strings.TrimSpace(c.Printer.Name) == "" {
		return fmt.Errorf("printer name is required")
	}

	if c.Printer.Driver != "ipp" && c.Printer.Driver != "spool" {
		return fmt.Errorf("invalid printer driver: %s", c.Printer.Driver)
	}

	if c.Printer.DPI < 1 || c.Printer.DPI > 2400 {
		return fmt.Errorf("printer dpi must be between 1 and 2400, got %d", c.Printer.DPI)
	}

	if c.Printer.Driver == "spool" && c.Printer.Spool.Dir == "" {
		return fmt.Errorf("spool driver requires printer.spool.dir")
	}

	if c.Crop.Mode != "bottom" && c.Crop.Mode != "tight" {
		return fmt.Errorf("invalid crop mode: %s", c.Crop.Mode)
	}

	if c.Lock.Driver != "memory" && c.Lock.Driver != "redis" {
		return fmt.Errorf("invalid lock driver: %s", c.Lock.Driver)
	}

	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch max_bytes must be positive")
	}

	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch max_retries must not be negative")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("PRINTER_NAME"); v != "" {
		cfg.Printer.Name = v
	}

	if v := os.Getenv("PRINTER_DRIVER"); v != "" {
		cfg.Printer.Driver = v
	}

	if v := os.Getenv("PRINTER_DPI"); v != "" {
		if dpi, err := strconv.Atoi(v); err == nil {
			cfg.Printer.DPI = dpi
		}
	}

	if v := os.Getenv("CUPS_HOST"); v != "" {
		cfg.Printer.IPP.Host = v
	}

	if v := os.Getenv("CUPS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Printer.IPP.Port = port
		}
	}

	if v := os.Getenv("CUPS_USER"); v != "" {
		cfg.Printer.IPP.Username = v
	}

	if v := os.Getenv("CUPS_PASSWORD"); v != "" {
		cfg.Printer.IPP.Password = v
	}

	if v := os.Getenv("SPOOL_DIR"); v != "" {
		cfg.Printer.Spool.Dir = v
	}

	if v := os.Getenv("CROP_MODE"); v != "" {
		cfg.Crop.Mode = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Lock.Driver = "redis"
		cfg.Lock.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
