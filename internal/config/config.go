package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ForteScarlet/codex-kkp/internal/apperror"
)

const (
	envPrefix   = "CODEXKKP_"
	envFile     = "CODEXKKP_CONFIG"
	defaultFile = "codex-kkp.yaml"
)

type Config struct {
	Codex   CodexConfig   `koanf:"codex"`
	Parser  ParserConfig  `koanf:"parser"`
	Logging LoggingConfig `koanf:"logging"`
	Metrics MetricsConfig `koanf:"metrics"`
	Tracing TracingConfig `koanf:"tracing"`
	Redis   RedisConfig   `koanf:"redis"`
	Webhook WebhookConfig `koanf:"webhook"`
}

type CodexConfig struct {
	Binary      string `koanf:"binary"`
	CheckBinary bool   `koanf:"check_binary"`
	MergeStderr bool   `koanf:"merge_stderr"`
}

type ParserConfig struct {
	Repair bool `koanf:"repair"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// Output is "discard", "stderr" or a file path. Never stdout.
	Output string `koanf:"output"`
}

type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

type TracingConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"`
	SamplingRate float64 `koanf:"sampling_rate"`
}

type RedisConfig struct {
	URL        string `koanf:"url"`
	Prefix     string `koanf:"prefix"`
	HistoryTTL int    `koanf:"history_ttl"`
}

type WebhookConfig struct {
	URL         string `koanf:"url"`
	Secret      string `koanf:"secret"`
	MaxRetries  int    `koanf:"max_retries"`
	BaseDelayMS int    `koanf:"base_delay_ms"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Codex: CodexConfig{
			Binary:      "codex",
			CheckBinary: true,
		},
		Parser: ParserConfig{
			Repair: true,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
			Output: "discard",
		},
		Tracing: TracingConfig{
			SamplingRate: 1,
		},
		Redis: RedisConfig{
			Prefix:     "codexkkp:",
			HistoryTTL: 86400,
		},
		Webhook: WebhookConfig{
			MaxRetries:  2,
			BaseDelayMS: 1000,
		},
	}
}

// Load reads configuration from YAML file + environment variables.
// Loading order: defaults → YAML file → env vars (later overrides earlier).
// An empty configPath falls back to $CODEXKKP_CONFIG, then to an optional
// codex-kkp.yaml in the working directory.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	cfg := Defaults()

	if configPath == "" {
		configPath = os.Getenv(envFile)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: loading config file %s: %v", apperror.ErrInvalidConfig, configPath, err)
		}
	} else {
		// Try default path, ignore if not found
		_ = k.Load(file.Provider(defaultFile), yaml.Parser())
	}

	// CODEXKKP_CODEX__CHECK_BINARY → codex.check_binary
	// Double underscore (__) separates nesting levels.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: loading env vars: %v", apperror.ErrInvalidConfig, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling config: %v", apperror.ErrInvalidConfig, err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Codex.Binary) == "" {
		return apperror.InvalidConfig("config: codex.binary must not be empty (set CODEXKKP_CODEX__BINARY)")
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		return apperror.InvalidConfig("config: logging.format must be text or json, got %q", cfg.Logging.Format)
	}
	if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
		return apperror.InvalidConfig("config: tracing.sampling_rate must be within [0, 1], got %v", cfg.Tracing.SamplingRate)
	}
	if cfg.Redis.HistoryTTL < 0 {
		return apperror.InvalidConfig("config: redis.history_ttl must not be negative")
	}
	if u := cfg.Webhook.URL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return apperror.InvalidConfig("config: webhook.url must be an http(s) URL, got %q", u)
	}
	if cfg.Webhook.MaxRetries < 0 || cfg.Webhook.BaseDelayMS < 0 {
		return apperror.InvalidConfig("config: webhook.max_retries and webhook.base_delay_ms must not be negative")
	}
	return nil
}
