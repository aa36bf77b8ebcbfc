package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// redis (sessions, rate limiting, prefs)
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// prometheus metrics listener
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	LoginRateLimitAllowedPerMin int `toml:"login_rate_limit_allowed_per_min"`

	// entry stats cache
	StatsCacheTTLSeconds int `toml:"stats_cache_ttl_seconds"`

	// form check pipeline
	FormCheckTempDir     string `toml:"form_check_temp_dir"`
	FormCheckMaxUploadMB int64  `toml:"form_check_max_upload_mb"`
	FormCheckClipSeconds int    `toml:"form_check_clip_seconds"`
	FormCheckScaleWidth  int    `toml:"form_check_scale_width"`
	FormCheckCRF         int    `toml:"form_check_crf"`
	FormCheckPreset      string `toml:"form_check_preset"`
	FfmpegPath           string `toml:"ffmpeg_path"`
	GeminiModel          string `toml:"gemini_model"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	var cfgToml Toml
	if _, err := toml.DecodeFile(path, &cfgToml); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	cfg, err := cfgToml.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section for env %s missing", env)
	}

	cfg.Environment = env
	return cfg, nil
}
