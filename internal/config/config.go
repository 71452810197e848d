// Package config provides configuration management for the interview prep service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the interview prep service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Pipeline contains batch orchestration settings.
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	// Retry contains retry executor settings for external calls.
	Retry RetryConfig `mapstructure:"retry"`
	// Services contains per-service rate limit settings.
	Services ServicesConfig `mapstructure:"services"`
	// LLM contains provider client settings.
	LLM LLMConfig `mapstructure:"llm"`
	// Upload contains resume upload validation settings.
	Upload UploadConfig `mapstructure:"upload"`
	// Kafka contains the optional terminal-event publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading the request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds response writes. It must stay 0 (disabled) while
	// SSE streaming is served from this listener.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// ClientRPS is the per-client request throttle applied by middleware.
	ClientRPS float64 `mapstructure:"client_rps"`
	// ClientBurst is the per-client throttle burst size.
	ClientBurst int `mapstructure:"client_burst"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace is the prefix for all metric names.
	Namespace string `mapstructure:"namespace"`
}

// PipelineConfig holds batch orchestration settings.
type PipelineConfig struct {
	// SkillCount is the number of skills to extract from a resume.
	SkillCount int `mapstructure:"skill_count"`
	// BatchSize is the number of skills per batch.
	BatchSize int `mapstructure:"batch_size"`
	// MaxConcurrentBatches bounds how many batch pipelines run at once.
	MaxConcurrentBatches int `mapstructure:"max_concurrent_batches"`
	// SafeTokenLimit is the size budget below which a merged context is
	// assumed to fit the provider's input window.
	SafeTokenLimit int `mapstructure:"safe_token_limit"`
	// TokenEstimateDivisor converts character counts into the token
	// estimate (chars / divisor). A coarse, provider-specific heuristic.
	TokenEstimateDivisor int `mapstructure:"token_estimate_divisor"`
	// GlobalTimeout bounds the total wall-clock time of one run.
	GlobalTimeout time.Duration `mapstructure:"global_timeout"`
	// BatchStaggerDelay spaces out batch launches to soften bursts against
	// the discovery provider. Zero disables staggering.
	BatchStaggerDelay time.Duration `mapstructure:"batch_stagger_delay"`
}

// RetryConfig holds retry executor settings.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `mapstructure:"max_retries"`
	// BaseDelay is the first backoff delay; doubled each retry.
	BaseDelay time.Duration `mapstructure:"base_delay"`
	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration `mapstructure:"max_delay"`
	// AttemptTimeout bounds each individual call attempt.
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

// ServiceLimitConfig holds rate limit settings for one external service.
type ServiceLimitConfig struct {
	// RPM is the requests-per-minute admitted by the sliding-window limiter.
	RPM int `mapstructure:"rpm"`
	// DailyLimit is the trailing-24h request quota. Zero means unlimited.
	DailyLimit int `mapstructure:"daily_limit"`
}

// ServicesConfig holds per-service rate limit settings.
type ServicesConfig struct {
	// Extraction covers skill extraction calls.
	Extraction ServiceLimitConfig `mapstructure:"extraction"`
	// Discovery covers source discovery calls.
	Discovery ServiceLimitConfig `mapstructure:"discovery"`
	// Generation covers question generation calls.
	Generation ServiceLimitConfig `mapstructure:"generation"`
}

// LLMConfig holds provider client settings.
type LLMConfig struct {
	// Temperature is the sampling temperature for generation calls.
	Temperature float64 `mapstructure:"temperature"`
	// Gemini configures the search-grounded discovery/extraction client.
	Gemini GeminiConfig `mapstructure:"gemini"`
	// OpenRouter configures the chat-completions generation client.
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
}

// GeminiConfig holds Gemini-specific settings.
type GeminiConfig struct {
	// APIKey is loaded exclusively from INTERVIEWPREP_LLM_GEMINI_API_KEY.
	APIKey string `mapstructure:"-"`
	// Model is the Gemini model name.
	Model string `mapstructure:"model"`
	// BaseURL is the API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// OpenRouterConfig holds OpenRouter-specific settings.
type OpenRouterConfig struct {
	// APIKey is loaded exclusively from INTERVIEWPREP_LLM_OPENROUTER_API_KEY.
	APIKey string `mapstructure:"-"`
	// Model is the model identifier to request.
	Model string `mapstructure:"model"`
	// BaseURL is the OpenAI-compatible API base URL.
	BaseURL string `mapstructure:"base_url"`
}

// UploadConfig holds resume upload validation settings.
type UploadConfig struct {
	// MaxSizeBytes is the maximum accepted resume size.
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	// AllowedExtensions is the accepted file extension allowlist.
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	// Dir is the directory uploaded resumes are staged in.
	Dir string `mapstructure:"dir"`
}

// KafkaConfig holds the optional terminal-event publisher settings.
type KafkaConfig struct {
	// Enabled controls whether terminal events are mirrored to Kafka.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the topic terminal events are published to.
	Topic string `mapstructure:"topic"`
	// BatchTimeout is the maximum time to wait for a batch to fill.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("INTERVIEWPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/interview-prep-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets are loaded exclusively from environment variables. These
	// fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.LLM.Gemini.APIKey = os.Getenv("INTERVIEWPREP_LLM_GEMINI_API_KEY")
	cfg.LLM.OpenRouter.APIKey = os.Getenv("INTERVIEWPREP_LLM_OPENROUTER_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.client_rps", 5.0)
	v.SetDefault("server.client_burst", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "interviewprep")

	// Pipeline defaults
	v.SetDefault("pipeline.skill_count", 10)
	v.SetDefault("pipeline.batch_size", 3)
	v.SetDefault("pipeline.max_concurrent_batches", 3)
	v.SetDefault("pipeline.safe_token_limit", 6000)
	v.SetDefault("pipeline.token_estimate_divisor", 4)
	v.SetDefault("pipeline.global_timeout", "10m")
	v.SetDefault("pipeline.batch_stagger_delay", "500ms")

	// Retry defaults
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_delay", "30s")
	v.SetDefault("retry.attempt_timeout", "120s")

	// Per-service rate limit defaults. Discovery mirrors Gemini free-tier
	// limits; zero daily limit means unlimited.
	v.SetDefault("services.extraction.rpm", 30)
	v.SetDefault("services.extraction.daily_limit", 0)
	v.SetDefault("services.discovery.rpm", 10)
	v.SetDefault("services.discovery.daily_limit", 1500)
	v.SetDefault("services.generation.rpm", 20)
	v.SetDefault("services.generation.daily_limit", 0)

	// LLM defaults. API keys are loaded exclusively from environment
	// variables (see loadSecrets).
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.gemini.model", "gemini-2.0-flash")
	v.SetDefault("llm.gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("llm.openrouter.model", "deepseek/deepseek-chat")
	v.SetDefault("llm.openrouter.base_url", "https://openrouter.ai/api/v1")

	// Upload defaults
	v.SetDefault("upload.max_size_bytes", 5<<20)
	v.SetDefault("upload.allowed_extensions", []string{".txt", ".md", ".pdf"})
	v.SetDefault("upload.dir", os.TempDir())

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.interview_prep.runs")
	v.SetDefault("kafka.batch_timeout", "10ms")
}

// Validate validates the configuration. Invalid values fail fast, before any
// run is accepted.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Pipeline.SkillCount <= 0 {
		return fmt.Errorf("pipeline skill_count must be positive")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("pipeline batch_size must be positive")
	}
	if c.Pipeline.MaxConcurrentBatches <= 0 {
		return fmt.Errorf("pipeline max_concurrent_batches must be positive")
	}
	if c.Pipeline.SafeTokenLimit <= 0 {
		return fmt.Errorf("pipeline safe_token_limit must be positive")
	}
	if c.Pipeline.TokenEstimateDivisor <= 0 {
		return fmt.Errorf("pipeline token_estimate_divisor must be positive")
	}
	if c.Pipeline.GlobalTimeout <= 0 {
		return fmt.Errorf("pipeline global_timeout must be positive")
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry max_retries must not be negative")
	}
	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry delays invalid: base %s, max %s", c.Retry.BaseDelay, c.Retry.MaxDelay)
	}

	for name, svc := range map[string]ServiceLimitConfig{
		"extraction": c.Services.Extraction,
		"discovery":  c.Services.Discovery,
		"generation": c.Services.Generation,
	} {
		if svc.RPM <= 0 {
			return fmt.Errorf("services.%s.rpm must be positive", name)
		}
		if svc.DailyLimit < 0 {
			return fmt.Errorf("services.%s.daily_limit must not be negative", name)
		}
	}

	if c.Upload.MaxSizeBytes <= 0 {
		return fmt.Errorf("upload max_size_bytes must be positive")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	return nil
}
