// Package config loads application configuration and initializes logging.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// AnthropicConfig holds generation API settings.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Model             string  `yaml:"model" mapstructure:"model"`
	SummaryModel      string  `yaml:"summary_model" mapstructure:"summary_model"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	SummaryMaxTokens  int64   `yaml:"summary_max_tokens" mapstructure:"summary_max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// FirecrawlConfig holds extraction API settings. An empty key disables it.
type FirecrawlConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// JinaConfig holds Jina reader settings for the secondary extractor.
type JinaConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NotionConfig holds the Notion credentials for the template registry.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	TemplateDB string `yaml:"template_db" mapstructure:"template_db"`
}

// PipelineConfig configures report generation.
type PipelineConfig struct {
	MinContentChars int `yaml:"min_content_chars" mapstructure:"min_content_chars"`
	MaxContentChars int `yaml:"max_content_chars" mapstructure:"max_content_chars"`
	ProviderLimit   int `yaml:"provider_limit" mapstructure:"provider_limit"`
	MatchLimit      int `yaml:"match_limit" mapstructure:"match_limit"`
	TimeoutSecs     int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ResilienceConfig configures retries and circuit breakers for upstream APIs.
type ResilienceConfig struct {
	MaxAttempts         int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs    int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs        int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	BreakerThreshold    int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional config.yaml in the working
// directory and from ENTRY_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets have no default but must be known keys for env-only values to
	// survive Unmarshal.
	for _, k := range []string{
		"store.database_url", "anthropic.key", "anthropic.base_url",
		"firecrawl.key", "jina.key", "notion.token", "notion.template_db",
	} {
		v.SetDefault(k, "")
	}

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.summary_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.summary_max_tokens", 1024)
	v.SetDefault("anthropic.requests_per_second", 2.0)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("firecrawl.timeout_secs", 30)
	v.SetDefault("jina.enabled", true)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("pipeline.min_content_chars", 200)
	v.SetDefault("pipeline.max_content_chars", 12000)
	v.SetDefault("pipeline.provider_limit", 10)
	v.SetDefault("pipeline.match_limit", 5)
	v.SetDefault("pipeline.timeout_secs", 300)
	v.SetDefault("resilience.max_attempts", 2)
	v.SetDefault("resilience.initial_backoff_ms", 750)
	v.SetDefault("resilience.max_backoff_ms", 8000)
	v.SetDefault("resilience.breaker_threshold", 5)
	v.SetDefault("resilience.breaker_cooldown_secs", 60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "serve", "generate", "migrate" and "templates".
func (c *Config) Validate(mode string) error {
	var errs []string
	req := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	switch mode {
	case "serve", "generate":
		req(c.Store.DatabaseURL != "", "store.database_url is required")
		req(c.Anthropic.Key != "", "anthropic.key is required")
		req(c.Anthropic.Model != "", "anthropic.model is required")
		if mode == "serve" {
			req(c.Server.Port > 0 && c.Server.Port < 65536, "server.port must be between 1 and 65535")
		}
	case "migrate", "templates":
		req(c.Store.DatabaseURL != "", "store.database_url is required")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	req(c.Store.Driver == "postgres" || c.Store.Driver == "sqlite",
		fmt.Sprintf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
	req(c.Pipeline.MinContentChars >= 0, "pipeline.min_content_chars must be >= 0")
	req(c.Pipeline.MaxContentChars > c.Pipeline.MinContentChars,
		"pipeline.max_content_chars must be greater than min_content_chars")
	req(c.Pipeline.ProviderLimit >= 1 && c.Pipeline.ProviderLimit <= 100, "pipeline.provider_limit must be between 1 and 100")
	req(c.Pipeline.MatchLimit >= 1 && c.Pipeline.MatchLimit <= 100, "pipeline.match_limit must be between 1 and 100")
	req(c.Resilience.MaxAttempts >= 1 && c.Resilience.MaxAttempts <= 10, "resilience.max_attempts must be between 1 and 10")
	req(c.Anthropic.RequestsPerSecond >= 0, "anthropic.requests_per_second must be >= 0")

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
