// Package config provides centralized configuration management for
// PersonaLens: YAML file, PERSONALENS_* environment overrides, and a
// local .env for provider credentials.
package config

import (
	"time"

	"github.com/personalens/personalens/internal/core/engine"
)

// Config is the complete application configuration.
type Config struct {
	Services map[string]ServiceConfig `mapstructure:"services" yaml:"services"`
	Scraper  ScraperConfig            `mapstructure:"scraper" yaml:"scraper"`
	Analyzer AnalyzerConfig           `mapstructure:"analyzer" yaml:"analyzer"`
	Browser  BrowserConfig            `mapstructure:"browser" yaml:"browser"`
	Report   ReportConfig             `mapstructure:"report" yaml:"report"`
	Store    StoreConfig              `mapstructure:"store" yaml:"store"`
	Logging  LoggingConfig            `mapstructure:"logging" yaml:"logging"`
	Server   ServerConfig             `mapstructure:"server" yaml:"server"`
}

// ServiceConfig holds the rate-limit and retry settings for one
// external service identity.
type ServiceConfig struct {
	MinuteLimit       int           `mapstructure:"minute_limit" yaml:"minute_limit"`
	HourLimit         int           `mapstructure:"hour_limit" yaml:"hour_limit"`
	DayLimit          int           `mapstructure:"day_limit" yaml:"day_limit"`
	BackoffBase       time.Duration `mapstructure:"backoff_base" yaml:"backoff_base"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier" yaml:"backoff_multiplier"`
	BackoffMax        time.Duration `mapstructure:"backoff_max" yaml:"backoff_max"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// Settings converts to the engine's per-service shape.
func (s ServiceConfig) Settings() engine.ServiceSettings {
	return engine.ServiceSettings{
		Limits: engine.Limits{
			Minute: s.MinuteLimit,
			Hour:   s.HourLimit,
			Day:    s.DayLimit,
		},
		Backoff: engine.BackoffPolicy{
			Base:       s.BackoffBase,
			Multiplier: s.BackoffMultiplier,
			Max:        s.BackoffMax,
		},
		MaxRetries: s.MaxRetries,
	}
}

// EngineSettings converts every configured service for registry
// construction.
func (c *Config) EngineSettings() map[string]engine.ServiceSettings {
	settings := make(map[string]engine.ServiceSettings, len(c.Services))
	for name, svc := range c.Services {
		settings[name] = svc.Settings()
	}
	return settings
}

// ScraperConfig contains tweet-collection settings (Apify actor).
type ScraperConfig struct {
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	ActorID   string        `mapstructure:"actor_id" yaml:"actor_id"`
	APIToken  string        `mapstructure:"api_token" yaml:"api_token"`
	MaxTweets int           `mapstructure:"max_tweets" yaml:"max_tweets"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AnalyzerConfig contains MBTI analysis settings (Gemini).
type AnalyzerConfig struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	Model      string        `mapstructure:"model" yaml:"model"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	MinTweets  int           `mapstructure:"min_tweets" yaml:"min_tweets"`
	SampleSize int           `mapstructure:"sample_size" yaml:"sample_size"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// BrowserConfig contains scoped browser-handle settings.
type BrowserConfig struct {
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" yaml:"acquire_timeout"`
	ExecPath       string        `mapstructure:"exec_path" yaml:"exec_path"`
	ViewportWidth  int           `mapstructure:"viewport_width" yaml:"viewport_width"`
}

// ReportConfig contains report rendering settings.
type ReportConfig struct {
	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir"`
	ThumbnailSize int    `mapstructure:"thumbnail_size" yaml:"thumbnail_size"`
}

// StoreConfig contains database configuration for libsql/Turso.
type StoreConfig struct {
	Driver    string `mapstructure:"driver" yaml:"driver"`
	Path      string `mapstructure:"path" yaml:"path"`
	URL       string `mapstructure:"url" yaml:"url"`
	AuthToken string `mapstructure:"auth_token" yaml:"auth_token"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level: trace, debug, info, warn,
	// error.
	Level string `mapstructure:"level" yaml:"level"`
}

// ServerConfig contains the optional HTTP observability surface.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}
