package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	GitHub GitHubConfig `yaml:"github"`
	Cache  CacheConfig  `yaml:"cache"`
	Batch  BatchConfig  `yaml:"batch"`
}

type ServerConfig struct {
	Address            string   `yaml:"address"`
	CORSAllowedOrigins []string `yaml:"corsAllowedOrigins"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type GitHubConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	// Shards is the number of lock shards; 0 uses the cache default.
	Shards  int           `yaml:"shards"`
}

type BatchConfig struct {
	// Concurrency caps repositories resolved at once; 0 means unbounded.
	Concurrency int `yaml:"concurrency"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Address: "0.0.0.0:8080"},
		Log:    LogConfig{Level: "info"},
		GitHub: GitHubConfig{
			BaseURL: "https://api.github.com/",
			Timeout: 30 * time.Second,
		},
		Cache: CacheConfig{Enabled: true, TTL: time.Hour},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("BIND_ADDRESS"); ok && v != "" {
		cfg.Server.Address = v
	}
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSAllowedOrigins = origins
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup("GITHUB_API_URL"); ok && v != "" {
		cfg.GitHub.BaseURL = v
	}
	if v, ok := lookup("GITHUB_TOKEN"); ok && v != "" {
		cfg.GitHub.Token = v
	}
	if v, ok := lookup("CACHE_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing CACHE_ENABLED: %w", err)
		}
		cfg.Cache.Enabled = enabled
	}
	if v, ok := lookup("CACHE_TTL_SECONDS"); ok && v != "" {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing CACHE_TTL_SECONDS: %w", err)
		}
		cfg.Cache.TTL = time.Duration(secs) * time.Second
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address is required")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	u, err := url.Parse(c.GitHub.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid github base URL %q", c.GitHub.BaseURL)
	}
	if c.GitHub.Timeout < 0 {
		return fmt.Errorf("github timeout must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	if c.Cache.Shards < 0 {
		return fmt.Errorf("cache shards must not be negative")
	}
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("batch concurrency must not be negative")
	}
	return nil
}
