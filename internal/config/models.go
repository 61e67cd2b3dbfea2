package config

import (
	"fmt"
	"time"
)

// ServerConfig represents the listener configuration
type ServerConfig struct {
	Type            string
	ListenAddress   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxRequestBytes int64
	AnalysisTimeout time.Duration
}

// PostfixConfig represents the Postfix content filter settings
type PostfixConfig struct {
	BlockPhishing    bool
	ModifySubject    bool
	SubjectPrefix    string
	LabelHeader      string
	ScoreHeader      string
	ConfidenceHeader string
	ReasonsHeader    string
	Enabled          bool
	Address          string
	Port             int
}

// EmailConfig represents the email classifier settings
type EmailConfig struct {
	PhishingWeight float64
	FraudWeight    float64
	SpamWeight     float64
	MaxReasons     int
	Version        string
	MaxTextBytes   int
}

// PDFConfig represents the PDF analyzer bounds
type PDFConfig struct {
	MaxTextChars int
	MaxURLs      int
}

// URLConfig represents the URL analyzer settings
type URLConfig struct {
	BatchLimit     int
	TrustedDomains []string
}

// StoreConfig represents the verdict store settings
type StoreConfig struct {
	Type             string
	Retention        time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPrefix      string
}

// MetricsConfig represents the Prometheus settings
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// GetServer returns the listener configuration
func (c *Config) GetServer() (ServerConfig, error) {
	read, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	write, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	analysis, err := c.GetDuration("server.analysis_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		Type:            c.GetString("server.type"),
		ListenAddress:   c.GetString("server.listen_address"),
		ReadTimeout:     read,
		WriteTimeout:    write,
		MaxRequestBytes: c.GetInt64("server.max_request_bytes"),
		AnalysisTimeout: analysis,
	}, nil
}

// GetPostfix returns the Postfix content filter settings
func (c *Config) GetPostfix() PostfixConfig {
	return PostfixConfig{
		BlockPhishing:    c.GetBool("server.block_phishing"),
		ModifySubject:    c.GetBool("server.modify_subject"),
		SubjectPrefix:    c.GetString("server.subject_prefix"),
		LabelHeader:      c.GetString("server.headers.label"),
		ScoreHeader:      c.GetString("server.headers.score"),
		ConfidenceHeader: c.GetString("server.headers.confidence"),
		ReasonsHeader:    c.GetString("server.headers.reasons"),
		Enabled:          c.GetBool("server.postfix.enabled"),
		Address:          c.GetString("server.postfix.address"),
		Port:             c.GetInt("server.postfix.port"),
	}
}

// GetEmail returns the email classifier settings
func (c *Config) GetEmail() EmailConfig {
	return EmailConfig{
		PhishingWeight: c.GetFloat64("email.phishing_weight"),
		FraudWeight:    c.GetFloat64("email.fraud_weight"),
		SpamWeight:     c.GetFloat64("email.spam_weight"),
		MaxReasons:     c.GetInt("email.max_reasons"),
		Version:        c.GetString("email.version"),
		MaxTextBytes:   c.GetInt("email.max_text_bytes"),
	}
}

// GetPDF returns the PDF analyzer bounds
func (c *Config) GetPDF() PDFConfig {
	return PDFConfig{
		MaxTextChars: c.GetInt("pdf.max_text_chars"),
		MaxURLs:      c.GetInt("pdf.max_urls"),
	}
}

// GetURL returns the URL analyzer settings
func (c *Config) GetURL() URLConfig {
	return URLConfig{
		BatchLimit:     c.GetInt("url.batch_limit"),
		TrustedDomains: c.GetStringSlice("url.trusted_domains"),
	}
}

// GetStore returns the verdict store settings
func (c *Config) GetStore() (StoreConfig, error) {
	retention, err := c.GetDuration("store.retention")
	if err != nil {
		return StoreConfig{}, err
	}
	cleanup, err := c.GetDuration("store.cleanup_frequency")
	if err != nil {
		return StoreConfig{}, err
	}
	if retention < 0 {
		return StoreConfig{}, fmt.Errorf("store.retention must not be negative: %s", retention)
	}
	return StoreConfig{
		Type:             c.GetString("store.type"),
		Retention:        retention,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("store.sqlite_path"),
		MySQLDSN:         c.GetString("store.mysql_dsn"),
		RedisAddr:        c.GetString("store.redis_addr"),
		RedisPrefix:      c.GetString("store.redis_prefix"),
	}, nil
}

// GetMetrics returns the Prometheus settings
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{
		Enabled:   c.GetBool("metrics.enabled"),
		Namespace: c.GetString("metrics.namespace"),
	}
}
