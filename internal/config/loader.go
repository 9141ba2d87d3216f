package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Service identities with built-in defaults.
const (
	ServiceApify  = "apify"
	ServiceGemini = "gemini"
)

// Load reads configuration in three layers: built-in defaults, an
// optional YAML file (explicit path or discovered), then PERSONALENS_*
// environment variables. Provider credentials additionally honor the
// conventional APIFY_API_TOKEN / GEMINI_API_KEY names, loaded from a
// local .env when present.
func Load(cfgFile string) (*Config, error) {
	// Best-effort: a missing .env is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if strings.TrimSpace(cfgFile) != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "personalens"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("PERSONALENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	decode := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decode); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if strings.TrimSpace(cfg.Scraper.APIToken) == "" {
		cfg.Scraper.APIToken = strings.TrimSpace(os.Getenv("APIFY_API_TOKEN"))
	}
	if strings.TrimSpace(cfg.Analyzer.APIKey) == "" {
		cfg.Analyzer.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Rate-limit ceilings and backoff per service.
	v.SetDefault("services.apify.minute_limit", 60)
	v.SetDefault("services.apify.hour_limit", 1000)
	v.SetDefault("services.apify.day_limit", 10000)
	v.SetDefault("services.apify.backoff_base", time.Second)
	v.SetDefault("services.apify.backoff_multiplier", 2.0)
	v.SetDefault("services.apify.backoff_max", time.Minute)
	v.SetDefault("services.apify.max_retries", 3)

	v.SetDefault("services.gemini.minute_limit", 60)
	v.SetDefault("services.gemini.hour_limit", 1000)
	v.SetDefault("services.gemini.day_limit", 1500)
	v.SetDefault("services.gemini.backoff_base", time.Second)
	v.SetDefault("services.gemini.backoff_multiplier", 2.0)
	v.SetDefault("services.gemini.backoff_max", 10*time.Minute)
	v.SetDefault("services.gemini.max_retries", 3)

	v.SetDefault("scraper.base_url", "https://api.apify.com")
	v.SetDefault("scraper.actor_id", "apidojo~tweet-scraper")
	v.SetDefault("scraper.max_tweets", 100)
	v.SetDefault("scraper.timeout", 2*time.Minute)

	v.SetDefault("analyzer.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("analyzer.model", "gemini-2.5-flash")
	v.SetDefault("analyzer.min_tweets", 10)
	v.SetDefault("analyzer.sample_size", 30)
	v.SetDefault("analyzer.timeout", 90*time.Second)

	v.SetDefault("browser.acquire_timeout", 30*time.Second)
	v.SetDefault("browser.viewport_width", 900)

	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("report.thumbnail_size", 256)

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", defaultStorePath())

	v.SetDefault("logging.level", "info")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8473)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
}

func defaultStorePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "personalens.db"
	}
	return filepath.Join(dir, "personalens", "personalens.db")
}
