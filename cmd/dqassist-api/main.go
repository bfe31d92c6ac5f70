package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dqassist/dqassist/internal/api"
	"github.com/dqassist/dqassist/internal/chat"
	"github.com/dqassist/dqassist/internal/config"
	"github.com/dqassist/dqassist/internal/dbconn"
	"github.com/dqassist/dqassist/internal/llm"
	"github.com/dqassist/dqassist/internal/observability"
	"github.com/dqassist/dqassist/internal/schema"
	"github.com/dqassist/dqassist/internal/session"
	"github.com/dqassist/dqassist/internal/sqlrun"
)

func main() {
	cfg, err := config.LoadFromEnv("dqassist-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	factory, err := dbconn.NewFactory(cfg.Database)
	if err != nil {
		logger.Error("failed to configure database connections", slog.Any("error", err))
		os.Exit(1)
	}

	// A nil client keeps the service running in degraded mode: turns
	// get the connection-failure reply instead of a model answer.
	var client llm.Client
	if cfg.AI.Enabled {
		openAI, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			TopP:        cfg.AI.TopP,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize model client", slog.Any("error", err))
			os.Exit(1)
		}
		client = openAI
	} else {
		logger.Warn("model client disabled, serving degraded replies")
	}

	executor := sqlrun.NewExecutor(factory, logger)
	introspector := schema.NewIntrospector(factory, logger)
	chatService := chat.NewService(client, executor, introspector, logger)

	deps := api.Dependencies{
		Logger:            logger,
		Sessions:          session.NewManager(cfg.Session.TTL),
		Chat:              chatService,
		Databases:         factory,
		Readiness:         api.CheckDatabaseCatalog(factory),
		DependencyTimeout: time.Second,
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
