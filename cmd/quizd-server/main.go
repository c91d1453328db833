package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizd/internal/agent"
	"quizd/internal/assistant"
	"quizd/internal/config"
	"quizd/internal/httpclient"
	"quizd/internal/logging"
	"quizd/internal/observability"
	"quizd/internal/server"
	"quizd/internal/tools"
)

func main() {
	logger := logging.NewComponentLogger("Main")
	logger.Info("Starting quizd server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Info("=== Server Configuration ===")
	logger.Info("App: %s (%s)", cfg.AppName, cfg.Environment)
	logger.Info("Model: %s", cfg.Model)
	logger.Info("Agent base URL: %s", cfg.AgentBaseURL)
	logger.Info("Listen address: %s", cfg.Addr())
	logger.Info("===========================")

	metrics, err := observability.NewMetricsCollector(true)
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	assistantClient := assistant.NewClient(assistant.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.AgentBaseURL,
		FileBaseURL: cfg.OpenAIBaseURL,
		Logger:      logging.NewComponentLogger("Assistant"),
	})

	toolClient := httpclient.New(60*time.Second, logging.NewComponentLogger("Tools"))
	registry := tools.NewRegistry(cfg.ToolMaxConcurrent, logging.NewComponentLogger("Tools"))
	registry.SetMetrics(metrics)
	registry.Register(tools.NewWebScraper(toolClient))
	registry.Register(tools.NewDownloader(toolClient, 0))
	registry.Register(tools.NewTranscriber(toolClient, 0))
	registry.Register(tools.NewAPIRequest(toolClient))

	runner := agent.NewRunner(agent.Config{
		Client:       assistantClient,
		Registry:     registry,
		Model:        cfg.Model,
		PollInterval: cfg.RunPollInterval,
		RunTimeout:   cfg.RunTimeout,
		Logger:       logging.NewComponentLogger("Agent"),
	})

	srv := server.New(server.Config{
		Addr:    cfg.Addr(),
		AppName: cfg.AppName,
		Secret:  cfg.UserSecret,
		Debug:   cfg.Environment == "development",
	}, runner, metrics, logging.NewComponentLogger("HTTP"))

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
