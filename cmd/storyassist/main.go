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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meikuraledutech/storyassist"
	"github.com/meikuraledutech/storyassist/api"
	"github.com/meikuraledutech/storyassist/engine"
	"github.com/meikuraledutech/storyassist/gemini"
	"github.com/meikuraledutech/storyassist/jira"
	"github.com/meikuraledutech/storyassist/memory"
	"github.com/meikuraledutech/storyassist/ollama"
	"github.com/meikuraledutech/storyassist/postgres"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "storyassist",
	Short: "User story refinement assistant",
	Long: `storyassist serves an HTTP API that walks a software user story through
refinement, corner-case identification, testing-strategy proposal and
finalization, backed by an Ollama or Gemini model.

Configuration comes from environment variables (MODEL_TYPE, MODEL_NAME,
OLLAMA_BASE_URL, GEMINI_API, DATABASE_URL, JIRA_URL, ...) with an optional
YAML overlay named by STORYASSIST_CONFIG.`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := storyassist.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	logger.Info("provider configured",
		zap.String("model_type", cfg.ModelType),
		zap.String("model_name", cfg.ModelName))

	eng := engine.New(store, provider, logger)
	defer eng.Close()

	var jiraClient *jira.Client
	if cfg.JiraURL != "" {
		jiraClient = jira.New(cfg.JiraURL, cfg.JiraToken)
		logger.Info("jira integration enabled", zap.String("url", cfg.JiraURL))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort),
		Handler: api.New(eng, jiraClient, logger).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		config.Level = zap.NewAtomicLevelAt(parsed)
	}
	return config.Build()
}

// buildStore returns a postgres-backed store when DATABASE_URL is set and the
// in-memory store otherwise.
func buildStore(ctx context.Context, cfg storyassist.Config, logger *zap.Logger) (storyassist.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory session store")
		return memory.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	store := postgres.New(pool)
	if err := store.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("create schema: %w", err)
	}
	logger.Info("using postgres session store")
	return store, pool.Close, nil
}

func buildProvider(cfg storyassist.Config) (storyassist.Provider, error) {
	switch cfg.ModelType {
	case "ollama":
		return ollama.New(cfg.OllamaBaseURL, cfg.ModelName, cfg.Temperature, cfg.MaxLength), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API must be set when MODEL_TYPE is gemini")
		}
		return gemini.New(cfg.GeminiAPIKey, cfg.ModelName, cfg.MaxLength), nil
	default:
		return nil, fmt.Errorf("unknown model type %q", cfg.ModelType)
	}
}
