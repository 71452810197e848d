package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()

	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return &cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.HTTPAddress())
	assert.Equal(t, time.Duration(0), cfg.Server.WriteTimeout, "SSE requires an unbounded write timeout")

	assert.Equal(t, 10, cfg.Pipeline.SkillCount)
	assert.Equal(t, 3, cfg.Pipeline.BatchSize)
	assert.Equal(t, 3, cfg.Pipeline.MaxConcurrentBatches)
	assert.Equal(t, 4, cfg.Pipeline.TokenEstimateDivisor)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.GlobalTimeout)

	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay)

	assert.Equal(t, 10, cfg.Services.Discovery.RPM)
	assert.Equal(t, 1500, cfg.Services.Discovery.DailyLimit)
	assert.Equal(t, 0, cfg.Services.Generation.DailyLimit)

	assert.False(t, cfg.Kafka.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			mutate:  func(cfg *Config) { cfg.Server.HTTPPort = -1 },
			wantErr: "invalid HTTP port",
		},
		{
			name:    "invalid log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "zero batch size",
			mutate:  func(cfg *Config) { cfg.Pipeline.BatchSize = 0 },
			wantErr: "batch_size must be positive",
		},
		{
			name:    "negative batch size",
			mutate:  func(cfg *Config) { cfg.Pipeline.BatchSize = -2 },
			wantErr: "batch_size must be positive",
		},
		{
			name:    "zero concurrency",
			mutate:  func(cfg *Config) { cfg.Pipeline.MaxConcurrentBatches = 0 },
			wantErr: "max_concurrent_batches must be positive",
		},
		{
			name:    "zero token divisor",
			mutate:  func(cfg *Config) { cfg.Pipeline.TokenEstimateDivisor = 0 },
			wantErr: "token_estimate_divisor must be positive",
		},
		{
			name:    "zero global timeout",
			mutate:  func(cfg *Config) { cfg.Pipeline.GlobalTimeout = 0 },
			wantErr: "global_timeout must be positive",
		},
		{
			name:    "negative retries",
			mutate:  func(cfg *Config) { cfg.Retry.MaxRetries = -1 },
			wantErr: "max_retries must not be negative",
		},
		{
			name: "max delay below base delay",
			mutate: func(cfg *Config) {
				cfg.Retry.BaseDelay = time.Minute
				cfg.Retry.MaxDelay = time.Second
			},
			wantErr: "retry delays invalid",
		},
		{
			name:    "zero service rpm",
			mutate:  func(cfg *Config) { cfg.Services.Discovery.RPM = 0 },
			wantErr: "services.discovery.rpm must be positive",
		},
		{
			name:    "negative daily limit",
			mutate:  func(cfg *Config) { cfg.Services.Generation.DailyLimit = -5 },
			wantErr: "services.generation.daily_limit must not be negative",
		},
		{
			name: "kafka enabled without brokers",
			mutate: func(cfg *Config) {
				cfg.Kafka.Enabled = true
				cfg.Kafka.Brokers = nil
			},
			wantErr: "kafka brokers are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv("INTERVIEWPREP_LLM_GEMINI_API_KEY", "gm-key")
	t.Setenv("INTERVIEWPREP_LLM_OPENROUTER_API_KEY", "or-key")

	cfg := defaultConfig(t)
	loadSecrets(cfg)

	assert.Equal(t, "gm-key", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, "or-key", cfg.LLM.OpenRouter.APIKey)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("INTERVIEWPREP_PIPELINE_BATCH_SIZE", "5")
	t.Setenv("INTERVIEWPREP_SERVICES_DISCOVERY_RPM", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Pipeline.BatchSize)
	assert.Equal(t, 2, cfg.Services.Discovery.RPM)
}
