// Package config loads settings from defaults, an optional YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "PICK"

type Config struct {
	DataDir      string        `mapstructure:"data_dir"`
	DataFile     string        `mapstructure:"data_file"`
	Port         int           `mapstructure:"port"`
	WikiAPIURL   string        `mapstructure:"wiki_api_url"`
	SummaryURL   string        `mapstructure:"wiki_summary_url"`
	UserAgent    string        `mapstructure:"user_agent"`
	SuggestLimit int           `mapstructure:"suggest_limit"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	RedisURL     string        `mapstructure:"redis_url"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	Retries      uint64        `mapstructure:"autofill_retries"`
	LogLevel     string        `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"data_dir":         "data",
	"data_file":        "election.json",
	"port":             8990,
	"wiki_api_url":     "https://en.wikipedia.org/w/api.php",
	"wiki_summary_url": "https://en.wikipedia.org/api/rest_v1/page/summary/",
	"user_agent":       "pick/1.0 (https://github.com/aryannaik/pick)",
	"suggest_limit":    5,
	"http_timeout":     "30s",
	"redis_url":        "",
	"cache_ttl":        "1h",
	"autofill_retries": 2,
	"log_level":        "info",
}

// Unprefixed names kept for existing deployments.
var legacyEnv = map[string]string{
	"port":      "PORT",
	"data_dir":  "DATA_DIR",
	"redis_url": "REDIS_URL",
	"log_level": "LOG_LEVEL",
}

// Load reads configuration. path names a YAML file; when empty, config.yaml
// is looked up in the working directory and ./config, and its absence is not
// an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(key), env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.DataFile == "" {
		errs = append(errs, errors.New("data_file is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.SuggestLimit < 0 {
		errs = append(errs, fmt.Errorf("suggest_limit %d is negative", c.SuggestLimit))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("http_timeout must be positive"))
	}
	for _, f := range []struct{ key, raw string }{
		{"wiki_api_url", c.WikiAPIURL},
		{"wiki_summary_url", c.SummaryURL},
	} {
		if u, err := url.Parse(f.raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s %q is not an absolute URL", f.key, f.raw))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
