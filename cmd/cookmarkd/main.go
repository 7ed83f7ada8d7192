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

	"github.com/m-nakagawa/cookmark/internal/ai"
	"github.com/m-nakagawa/cookmark/internal/ai/gemini"
	"github.com/m-nakagawa/cookmark/internal/ai/openai"
	"github.com/m-nakagawa/cookmark/internal/auth"
	"github.com/m-nakagawa/cookmark/internal/config"
	"github.com/m-nakagawa/cookmark/internal/export"
	"github.com/m-nakagawa/cookmark/internal/extract"
	"github.com/m-nakagawa/cookmark/internal/repository"
	"github.com/m-nakagawa/cookmark/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		HealthTimeout:   cfg.Database.HealthTimeout,
	}, logger)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)

	if err := repository.HealthCheck(ctx, db, cfg.Database.HealthTimeout, logger); err != nil {
		logger.Error("database health failed", "error", err)
		os.Exit(1)
	}

	recipes := repository.NewRecipeRepository(db, logger)
	categories := repository.NewCategoryRepository(db, logger)
	tags := repository.NewTagRepository(db, logger)
	sessions := repository.NewSessionRepository(db, logger)

	gate := auth.NewGate(sessions, cfg.Auth.AllowedEmails, logger)

	providers := []ai.Generator{
		gemini.NewClient(gemini.Config{
			APIKey:  cfg.Gemini.APIKey,
			BaseURL: cfg.Gemini.BaseURL,
			Model:   cfg.Gemini.Model,
			Timeout: cfg.Gemini.Timeout,
		}, logger),
		openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Timeout: cfg.OpenAI.Timeout,
		}, logger),
	}
	gateway := ai.NewGateway(providers, logger)

	extractor := extract.NewService(gateway, categories, extract.Config{
		UserAgent:    cfg.Extract.UserAgent,
		FetchTimeout: cfg.Extract.FetchTimeout,
	}, logger)

	router := server.NewRouter(server.Deps{
		Extractor:  extractor,
		Recipes:    recipes,
		Categories: categories,
		Tags:       tags,
		Exporter:   export.NewService(recipes, logger),
		Gate:       gate,
		Logger:     logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http.serving", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	logger.Info("stopped")
}
