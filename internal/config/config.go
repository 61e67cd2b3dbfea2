package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a configuration from the default search paths and environment
func New() (*Config, error) {
	return Load("")
}

// Load reads configuration from file, or from the default search paths when
// file is empty. A missing default config file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/threat-analyzer/")
		v.AddConfigPath("$HOME/.threat-analyzer")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("THREAT_ANALYZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
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
	v.SetDefault("server.type", "http")
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.max_request_bytes", 30*1024*1024)
	v.SetDefault("server.block_phishing", false)
	v.SetDefault("server.modify_subject", false)
	v.SetDefault("server.subject_prefix", "[**PHISHING**] ")
	v.SetDefault("server.analysis_timeout", "10s")
	v.SetDefault("server.headers.label", "X-Threat-Label")
	v.SetDefault("server.headers.score", "X-Threat-Score")
	v.SetDefault("server.headers.confidence", "X-Threat-Confidence")
	v.SetDefault("server.headers.reasons", "X-Threat-Reasons")
	v.SetDefault("server.postfix.enabled", true)
	v.SetDefault("server.postfix.address", "127.0.0.1")
	v.SetDefault("server.postfix.port", 10026)

	v.SetDefault("email.phishing_weight", 15.0)
	v.SetDefault("email.fraud_weight", 12.0)
	v.SetDefault("email.spam_weight", 8.0)
	v.SetDefault("email.max_reasons", 5)
	v.SetDefault("email.version", "1.0.0-heuristic")
	v.SetDefault("email.max_text_bytes", 1024*1024)

	v.SetDefault("pdf.max_text_chars", 10000)
	v.SetDefault("pdf.max_urls", 50)

	v.SetDefault("url.batch_limit", 20)
	v.SetDefault("url.trusted_domains", []string{})

	v.SetDefault("store.type", "memory")
	v.SetDefault("store.retention", "24h")
	v.SetDefault("store.cleanup_frequency", "1h")
	v.SetDefault("store.sqlite_path", "/data/verdicts.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/threat_analyzer")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_prefix", "threat:verdict:")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "threat_analyzer")

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

// GetInt64 gets an int64 value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
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

// GetDuration parses a duration value. Empty values are zero.
func (c *Config) GetDuration(key string) (time.Duration, error) {
	s := c.GetString(key)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
