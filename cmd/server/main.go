// Package main provides the entry point for the interview prep service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/config"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/events"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/extract"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/llm"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/observability"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/pipeline"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/ratelimit"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/retry"
	httpserver "github.com/Rahma-78/ai-interview-prep-sub000/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("interview-prep-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	// Provider clients. Gemini handles the search-grounded stages
	// (extraction, discovery); OpenRouter handles question generation.
	geminiClient, err := llm.NewClient(llm.FactoryConfig{
		Provider: "gemini",
		Timeout:  cfg.Retry.AttemptTimeout,
		Gemini: llm.GeminiConfig{
			APIKey:  cfg.LLM.Gemini.APIKey,
			Model:   cfg.LLM.Gemini.Model,
			BaseURL: cfg.LLM.Gemini.BaseURL,
		},
	})
	if err != nil {
		return fmt.Errorf("create gemini client: %w", err)
	}

	generationClient, err := llm.NewClient(llm.FactoryConfig{
		Provider: "openrouter",
		Timeout:  cfg.Retry.AttemptTimeout,
		OpenRouter: llm.OpenRouterConfig{
			APIKey:  cfg.LLM.OpenRouter.APIKey,
			Model:   cfg.LLM.OpenRouter.Model,
			BaseURL: cfg.LLM.OpenRouter.BaseURL,
		},
	})
	if err != nil {
		return fmt.Errorf("create openrouter client: %w", err)
	}

	// One limiter shared by every stage, so concurrent batches contend for
	// the same per-service windows.
	limiter := ratelimit.New(map[string]ratelimit.Limit{
		domain.ServiceExtraction: {RPM: cfg.Services.Extraction.RPM, Daily: cfg.Services.Extraction.DailyLimit},
		domain.ServiceDiscovery:  {RPM: cfg.Services.Discovery.RPM, Daily: cfg.Services.Discovery.DailyLimit},
		domain.ServiceGeneration: {RPM: cfg.Services.Generation.RPM, Daily: cfg.Services.Generation.DailyLimit},
	})

	executor := retry.NewExecutor(limiter, metrics, logger, retry.Config{
		MaxRetries:     cfg.Retry.MaxRetries,
		BaseDelay:      cfg.Retry.BaseDelay,
		MaxDelay:       cfg.Retry.MaxDelay,
		AttemptTimeout: cfg.Retry.AttemptTimeout,
	})

	extractor := extract.NewLLMExtractor(geminiClient, executor, logger)
	discoverer := pipeline.NewLLMDiscoverer(geminiClient, executor, logger)
	generator := pipeline.NewLLMGenerator(generationClient, executor, logger, cfg.LLM.Temperature)

	// Optional Kafka mirror of terminal events.
	var publisher pipeline.TerminalPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewPublisher(events.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, logger)
		defer func() {
			if closeErr := kafkaPublisher.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close kafka publisher")
			}
		}()
		publisher = kafkaPublisher
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}

	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		SkillCount:           cfg.Pipeline.SkillCount,
		BatchSize:            cfg.Pipeline.BatchSize,
		MaxConcurrentBatches: cfg.Pipeline.MaxConcurrentBatches,
		SafeTokenLimit:       cfg.Pipeline.SafeTokenLimit,
		TokenDivisor:         cfg.Pipeline.TokenEstimateDivisor,
		GlobalTimeout:        cfg.Pipeline.GlobalTimeout,
		BatchStaggerDelay:    cfg.Pipeline.BatchStaggerDelay,
	}, extractor, discoverer, generator, publisher, metrics, logger)

	resumeValidator := extract.NewValidator(cfg.Upload.MaxSizeBytes, cfg.Upload.AllowedExtensions)
	fetcher := extract.NewFetcher(extract.FetcherConfig{
		Timeout: 30 * time.Second,
		MaxSize: cfg.Upload.MaxSizeBytes,
	})

	httpSrv := httpserver.NewServer(httpserver.Config{
		Address:        cfg.Server.HTTPAddress(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    2 * time.Minute,
		ClientRPS:      cfg.Server.ClientRPS,
		ClientBurst:    cfg.Server.ClientBurst,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
	}, runner, resumeValidator, fetcher, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().Str("http_address", cfg.Server.HTTPAddress()).Msg("interview-prep-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("interview-prep-service shutdown complete")
	return nil
}
