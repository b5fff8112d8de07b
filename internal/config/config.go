// Package config loads the service configuration from config.yaml and
// HSCLASS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"
)

// EnvPrefix prefixes every environment override. Nested keys use "__", so
// HSCLASS_AI__OPENAI__MODEL sets ai.openai.model.
const EnvPrefix = "HSCLASS_"

// DefaultPath is read when no explicit path is given.
const DefaultPath = "config.yaml"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	AI        AIConfig        `koanf:"ai"`
	History   HistoryConfig   `koanf:"history"`
	Auth      AuthConfig      `koanf:"auth"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path   string `koanf:"path"`
	Silent bool   `koanf:"silent"`
}

type AIConfig struct {
	Provider string         `koanf:"provider"` // openai or gemini
	Fallback string         `koanf:"fallback"` // optional second provider
	OpenAI   ProviderConfig `koanf:"openai"`
	Gemini   ProviderConfig `koanf:"gemini"`
}

type ProviderConfig struct {
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url"`
	Temperature float64       `koanf:"temperature"`
	MaxTokens   int           `koanf:"max_tokens"`
	Timeout     time.Duration `koanf:"timeout"`
}

type HistoryConfig struct {
	RequireUser    bool          `koanf:"require_user"`
	CacheSize      int           `koanf:"cache_size"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
	ClearBatchSize int           `koanf:"clear_batch_size"`
	ListLimit      int           `koanf:"list_limit"`
}

type AuthConfig struct {
	Mode     string `koanf:"mode"` // none, header or oidc
	Header   string `koanf:"header"`
	Issuer   string `koanf:"issuer"`
	ClientID string `koanf:"client_id"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text or json
}

type TelemetryConfig struct {
	Tracing     bool   `koanf:"tracing"`
	ServiceName string `koanf:"service_name"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// listKeys are read from the environment as comma-separated lists.
var listKeys = map[string]struct{}{
	"server.allowed_origins": {},
}

// Default returns the configuration used for keys absent from file and env.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            2000,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Path: "data/customsclass.db", Silent: true},
		AI: AIConfig{
			Provider: "openai",
			OpenAI: ProviderConfig{
				APIKey:      "${OPENAI_API_KEY}",
				Model:       "gpt-4.1-mini",
				Temperature: 0.2,
				MaxTokens:   800,
				Timeout:     60 * time.Second,
			},
			Gemini: ProviderConfig{
				APIKey:      "${GEMINI_API_KEY}",
				Model:       "gemini-2.0-flash",
				Temperature: 0.2,
				MaxTokens:   800,
				Timeout:     60 * time.Second,
			},
		},
		History: HistoryConfig{
			CacheSize:      256,
			CacheTTL:       5 * time.Minute,
			ClearBatchSize: 500,
		},
		Auth:      AuthConfig{Mode: "header", Header: "X-User-ID"},
		Log:       LogConfig{Level: "info", Format: "text"},
		Telemetry: TelemetryConfig{ServiceName: "customsclass-r"},
	}
}

// Load reads path (DefaultPath when empty), applies HSCLASS_* overrides on
// top and expands ${VAR} references in API keys. A missing file is fine.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		logrus.WithField("path", path).Debug("config file not found, using defaults and environment")
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKeyValue), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && !k.Exists("server.port") {
		if _, err := fmt.Sscanf(port, "%d", &cfg.Server.Port); err != nil {
			return nil, fmt.Errorf("invalid PORT %q", port)
		}
	}
	cfg.AI.OpenAI.APIKey = substituteEnvVars(cfg.AI.OpenAI.APIKey)
	cfg.AI.Gemini.APIKey = substituteEnvVars(cfg.AI.Gemini.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if !knownProvider(c.AI.Provider) {
		errs = append(errs, fmt.Errorf("ai.provider %q is not openai or gemini", c.AI.Provider))
	}
	if c.AI.Fallback != "" {
		if !knownProvider(c.AI.Fallback) {
			errs = append(errs, fmt.Errorf("ai.fallback %q is not openai or gemini", c.AI.Fallback))
		} else if strings.EqualFold(c.AI.Fallback, c.AI.Provider) {
			errs = append(errs, errors.New("ai.fallback must differ from ai.provider"))
		}
	}
	switch strings.ToLower(c.Auth.Mode) {
	case "none":
		if c.History.RequireUser {
			errs = append(errs, errors.New("history.require_user needs auth.mode header or oidc"))
		}
	case "header":
	case "oidc":
		if c.Auth.Issuer == "" || c.Auth.ClientID == "" {
			errs = append(errs, errors.New("auth.mode oidc needs auth.issuer and auth.client_id"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.mode %q is not none, header or oidc", c.Auth.Mode))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// envKeyValue maps HSCLASS_SERVER__ALLOWED_ORIGINS to server.allowed_origins
// and splits list values on commas.
func envKeyValue(key, value string) (string, interface{}) {
	key = strings.Replace(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__", ".", -1)
	if _, ok := listKeys[key]; !ok {
		return key, value
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return key, items
}

func knownProvider(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai", "gemini":
		return true
	}
	return false
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
