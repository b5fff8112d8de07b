// Package app assembles the dependencies shared by the server and the CLI:
// logging, tracing, the database, the AI provider chain, history and the
// classifier. Handles are built once here and injected everywhere else.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/aconic-ni/customsclass-r/internal/ai"
	"github.com/aconic-ni/customsclass-r/internal/auth"
	"github.com/aconic-ni/customsclass-r/internal/classifier"
	"github.com/aconic-ni/customsclass-r/internal/config"
	"github.com/aconic-ni/customsclass-r/internal/history"
	"github.com/aconic-ni/customsclass-r/internal/hscode"
	"github.com/aconic-ni/customsclass-r/internal/store"
	"github.com/aconic-ni/customsclass-r/internal/telemetry"
)

// App holds the core systems required by every entry point.
type App struct {
	Config     *config.Config
	DB         *store.Database
	Provider   ai.Provider
	History    history.Store
	Classifier *classifier.Service

	shutdownTracer func(context.Context) error
}

// Options selects which systems New builds.
type Options struct {
	// SkipProvider builds an App without an AI provider or classifier, for
	// commands that only touch history.
	SkipProvider bool
}

// New builds an App from cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := ConfigureLogging(cfg.Log); err != nil {
		return nil, err
	}
	a := &App{Config: cfg}

	if cfg.Telemetry.Tracing {
		shutdown, err := telemetry.InitTracer(cfg.Telemetry.ServiceName, nil)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		a.shutdownTracer = shutdown
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := store.Open(cfg.Database.Path, cfg.Database.Silent)
	if err != nil {
		return nil, err
	}
	a.DB = db

	repo := history.NewRepository(db, history.Options{
		ClearBatchSize: cfg.History.ClearBatchSize,
		ListLimit:      cfg.History.ListLimit,
	})
	a.History = history.NewCached(repo, cfg.History.CacheSize, cfg.History.CacheTTL)

	if opts.SkipProvider {
		return a, nil
	}

	provider, err := NewProvider(ctx, cfg.AI)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.Provider = provider

	svc, err := classifier.NewService(
		hscode.NewPredictor(provider),
		hscode.NewExplainer(provider),
		a.History,
		classifier.Options{RequireUser: cfg.History.RequireUser},
	)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.Classifier = svc

	logrus.WithFields(logrus.Fields{
		"provider":     provider.Name(),
		"db":           cfg.Database.Path,
		"require_user": cfg.History.RequireUser,
	}).Info("application ready")
	return a, nil
}

// Close releases the database and flushes pending spans.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	return errors.Join(errs...)
}

// NewAuthenticator builds the configured Authenticator.
func NewAuthenticator(ctx context.Context, cfg config.AuthConfig) (auth.Authenticator, error) {
	return auth.New(ctx, auth.Config{
		Mode:     cfg.Mode,
		Header:   cfg.Header,
		Issuer:   cfg.Issuer,
		ClientID: cfg.ClientID,
	})
}

// NewProvider builds the configured provider, chained with the fallback when
// one is configured. A primary without credentials is only accepted when the
// fallback has them.
func NewProvider(ctx context.Context, cfg config.AIConfig) (ai.Provider, error) {
	primary, err := buildProvider(ctx, cfg.Provider, cfg)
	if err != nil && !errors.Is(err, ai.ErrDisabled) {
		return nil, err
	}
	if strings.TrimSpace(cfg.Fallback) == "" {
		if primary == nil {
			return nil, fmt.Errorf("ai provider %s: configure its api key", cfg.Provider)
		}
		return primary, nil
	}

	fallback, err := buildProvider(ctx, cfg.Fallback, cfg)
	if err != nil && !errors.Is(err, ai.ErrDisabled) {
		return nil, err
	}
	if primary == nil && fallback == nil {
		return nil, fmt.Errorf("ai providers %s and %s: configure an api key", cfg.Provider, cfg.Fallback)
	}
	if primary == nil {
		logrus.WithField("provider", cfg.Provider).Warn("primary ai provider has no api key, using fallback only")
	}
	return ai.WithFallback(primary, fallback), nil
}

func buildProvider(ctx context.Context, name string, cfg config.AIConfig) (ai.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		client, err := ai.NewClient(ai.Config{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			BaseURL:     cfg.OpenAI.BaseURL,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Timeout:     cfg.OpenAI.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		client, err := ai.NewGeminiClient(ctx, ai.GeminiConfig{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			BaseURL:     cfg.Gemini.BaseURL,
			Temperature: cfg.Gemini.Temperature,
			MaxTokens:   cfg.Gemini.MaxTokens,
			Timeout:     cfg.Gemini.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", name)
	}
}

// ConfigureLogging applies the level and formatter to the standard logrus logger.
func ConfigureLogging(cfg config.LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logrus.SetLevel(level)
	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
