package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"qmoney/internal/amqp"
	"qmoney/internal/backend"
	"qmoney/internal/cli"
	"qmoney/internal/config"
	apphttp "qmoney/internal/http"
	applog "qmoney/internal/log"
	"qmoney/internal/parser"
	"qmoney/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting qmoney",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"parser", cfg.ParserBackend)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Slog()).CreateBackend(startupCtx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var (
		publisher  services.Publisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// events are best effort, the ledger works without them
			logger.Warn("AMQP unavailable, ledger events disabled", "error", err)
		} else {
			publisher = amqpClient
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	p, err := newParser(startupCtx, cfg)
	if err != nil {
		logger.Error("Failed to initialize parser", "error", err, "parser", cfg.ParserBackend)
		os.Exit(1)
	}
	p = parser.NewResilient(p, cfg.ParseTimeout, cfg.ParseRetries,
		logger.WithComponent(applog.ComponentParser).Slog().With(applog.FieldParser, cfg.ParserBackend))

	tracker := services.NewTracker(result.Store, publisher, services.TrackerConfig{
		TransactionsKey: cfg.TransactionsKey,
		GoalsKey:        cfg.GoalsKey,
		RecentCount:     cfg.RecentCount,
		StatsDays:       cfg.StatsDays,
	}, logger)
	if err := tracker.Load(startupCtx); err != nil {
		// seed data stays in memory and is persisted on the first mutation
		logger.Error("Failed to load ledger, starting from seed data", "error", err)
	}
	assistant := services.NewAssistant(p, tracker, logger)

	srv := apphttp.NewServer(":"+cfg.Port, tracker, assistant, logger, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxyCIDRs(),
	})

	ctx, done := cli.GracefulShutdown(logger.Slog(), cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Failed to close backend", "error", err)
			}
		}
	})

	logger.Info("HTTP server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

func newParser(ctx context.Context, cfg *config.Config) (parser.Parser, error) {
	switch cfg.ParserBackend {
	case "rules":
		return parser.NewRules(nil), nil
	case "gemini":
		return parser.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
	case "openai":
		return parser.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	default:
		return nil, fmt.Errorf("unsupported parser backend: %s", cfg.ParserBackend)
	}
}
