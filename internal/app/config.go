package app

import (
	"errors"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	DirectorySourceURL    string        `envconfig:"DIRECTORY_SOURCE_URL" default:"https://jsonplaceholder.typicode.com/users"`
	DirectoryFetchTimeout time.Duration `envconfig:"DIRECTORY_FETCH_TIMEOUT" default:"10s"`
	DirectoryPageSize     int           `envconfig:"DIRECTORY_PAGE_SIZE" default:"6"`
	DirectoryCacheTTL     time.Duration `envconfig:"DIRECTORY_CACHE_TTL" default:"1h"`
	DirectoryRefreshCron  string        `envconfig:"DIRECTORY_REFRESH_CRON" default:"@every 1h"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"2"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.DirectorySourceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("directory source url must be an absolute url")
	}
	if c.DirectoryPageSize <= 0 {
		return errors.New("directory page size must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("rate limit must be positive")
	}
	if c.WorkerConcurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
