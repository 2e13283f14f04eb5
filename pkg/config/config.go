package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "IGPOST"

// Config holds all configuration options for igpost
type Config struct {
	Instagram InstagramConfig `yaml:"instagram" json:"instagram" envconfig:"INSTAGRAM"`
	Retry     RetryConfig     `yaml:"retry" json:"retry" envconfig:"RETRY"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit" envconfig:"RATE_LIMIT"`
	Download  DownloadConfig  `yaml:"download" json:"download" envconfig:"DOWNLOAD"`
	Output    OutputConfig    `yaml:"output" json:"output" envconfig:"OUTPUT"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging" envconfig:"LOGGING"`
}

// InstagramConfig holds the upstream endpoint settings
type InstagramConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url" envconfig:"BASE_URL"`
	UserAgent string        `yaml:"user_agent" json:"user_agent" envconfig:"USER_AGENT"`
	DocID     string        `yaml:"doc_id" json:"doc_id" envconfig:"DOC_ID"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" envconfig:"TIMEOUT"`
}

// RetryConfig controls the backoff applied to rate-limited or forbidden fetches.
// Retries counts attempts after the first one.
type RetryConfig struct {
	Retries int           `yaml:"retries" json:"retries" envconfig:"RETRIES"`
	Delay   time.Duration `yaml:"delay" json:"delay" envconfig:"DELAY"`
}

// RateLimitConfig holds client-side rate limiting. Zero requests per minute
// disables it. Algorithm is "smooth" (evenly spaced tokens) or "bucket"
// (the whole budget refilled once a minute).
type RateLimitConfig struct {
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute" envconfig:"REQUESTS_PER_MINUTE"`
	BurstSize         int    `yaml:"burst_size" json:"burst_size" envconfig:"BURST_SIZE"`
	Algorithm         string `yaml:"algorithm" json:"algorithm" envconfig:"ALGORITHM"`
}

// DownloadConfig holds media download settings
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads" envconfig:"CONCURRENT_DOWNLOADS"`
	Timeout             time.Duration `yaml:"timeout" json:"timeout" envconfig:"TIMEOUT"`
	SkipVideos          bool          `yaml:"skip_videos" json:"skip_videos" envconfig:"SKIP_VIDEOS"`
	SkipImages          bool          `yaml:"skip_images" json:"skip_images" envconfig:"SKIP_IMAGES"`
}

// OutputConfig holds result encoding and download directory settings
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory" envconfig:"DIR"`
	Format        string `yaml:"format" json:"format" envconfig:"FORMAT"`
	SaveMetadata  bool   `yaml:"save_metadata" json:"save_metadata" envconfig:"SAVE_METADATA"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" envconfig:"LEVEL"`
	File  string `yaml:"file" json:"file" envconfig:"FILE"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			BaseURL:   "https://www.instagram.com",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0 Safari/537.36",
			DocID:     "9510064595728286",
			Timeout:   30 * time.Second,
		},
		Retry: RetryConfig{
			Retries: 5,
			Delay:   1000 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
			BurstSize:         1,
			Algorithm:         "smooth",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 3,
			Timeout:             60 * time.Second,
		},
		Output: OutputConfig{
			BaseDirectory: "./downloads",
			Format:        "json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv overrides fields from IGPOST_* environment variables, for
// example IGPOST_RETRY_RETRIES=2 or IGPOST_RETRY_DELAY=500ms. Unset
// variables leave the current value untouched.
func (c *Config) LoadFromEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to process environment: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations
func (c *Config) findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".igpost.yaml",
		".igpost.yml",
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, ".config", "igpost", "config.yaml"),
			filepath.Join(home, ".config", "igpost", "config.yml"),
			filepath.Join(home, ".igpost.yaml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.BaseURL == "" {
		errs = append(errs, errors.New("instagram base url is required"))
	}
	if c.Instagram.DocID == "" {
		errs = append(errs, errors.New("instagram doc id is required"))
	}
	if c.Instagram.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Retry.Retries < 0 {
		errs = append(errs, errors.New("retries cannot be negative"))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive when rate limiting is enabled"))
	}
	switch c.RateLimit.Algorithm {
	case "", "smooth", "bucket":
	default:
		errs = append(errs, fmt.Errorf("invalid rate limit algorithm %q", c.RateLimit.Algorithm))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}

	switch strings.ToLower(c.Output.Format) {
	case "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("invalid output format %q", c.Output.Format))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if retries, ok := flags["retries"].(int); ok {
		c.Retry.Retries = retries
	}
	if delay, ok := flags["delay"].(time.Duration); ok {
		c.Retry.Delay = delay
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if format, ok := flags["format"].(string); ok && format != "" {
		c.Output.Format = format
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if rpm, ok := flags["rate-limit"].(int); ok {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if skip, ok := flags["skip-videos"].(bool); ok {
		c.Download.SkipVideos = skip
	}
	if skip, ok := flags["skip-images"].(bool); ok {
		c.Download.SkipImages = skip
	}
	if save, ok := flags["save-metadata"].(bool); ok {
		c.Output.SaveMetadata = save
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".igpost.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
