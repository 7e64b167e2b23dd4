package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Query     QueryConfig     `mapstructure:"query"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeout int    `mapstructure:"write_timeout_seconds"`
	IdleTimeout  int    `mapstructure:"idle_timeout_seconds"`
}

// BackendConfig points at the REST service that owns the student records.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type QueryConfig struct {
	PageSize        int           `mapstructure:"page_size"`
	ListTimeout     time.Duration `mapstructure:"list_timeout"`
	ListStaleTime   time.Duration `mapstructure:"list_stale_time"`
	DetailStaleTime time.Duration `mapstructure:"detail_stale_time"`
	DetailRetry     int           `mapstructure:"detail_retry"`
	CacheTime       time.Duration `mapstructure:"cache_time"`
	GCInterval      time.Duration `mapstructure:"gc_interval"`
}

// NATSConfig is optional; an empty URL disables mutation events.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// TelemetryConfig is optional; an empty endpoint disables the OTLP exporter.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func Load() (*Config, error) {
	return LoadFrom("/configs", "./configs", "../configs", "../../configs")
}

// LoadFrom reads config.<ENV>.yaml from the first path that has it. The file
// is optional; environment variables take precedence over it.
func LoadFrom(paths ...string) (*Config, error) {
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	v := viper.New()
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)
	v.SetDefault("env", env)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		fmt.Printf("No config file found (will use ENV variables): %v\n", err)
	}

	// QUERY_PAGE_SIZE overrides query.page_size and so on
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("backend.base_url", "BACKEND_URL")
	_ = v.BindEnv("nats.url", "NATS_URL")
	_ = v.BindEnv("telemetry.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout_seconds", 10)
	v.SetDefault("server.write_timeout_seconds", 10)
	v.SetDefault("server.idle_timeout_seconds", 60)

	v.SetDefault("backend.base_url", "http://localhost:3001")
	v.SetDefault("backend.timeout", 10*time.Second)

	v.SetDefault("query.page_size", 10)
	v.SetDefault("query.list_timeout", 3*time.Second)
	v.SetDefault("query.list_stale_time", 0)
	v.SetDefault("query.detail_stale_time", 10*time.Second)
	v.SetDefault("query.detail_retry", 3)
	v.SetDefault("query.cache_time", 5*time.Minute)
	v.SetDefault("query.gc_interval", time.Minute)

	v.SetDefault("nats.subject", "students.events")
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url is required")
	}
	if c.Query.PageSize < 1 {
		return fmt.Errorf("query.page_size must be positive, got %d", c.Query.PageSize)
	}
	return nil
}
