package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port     string `yaml:"port"`
		BaseURL  string `yaml:"base_url"`
		UseHTTPS bool   `yaml:"use_https"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Auth struct {
		Domain       string `yaml:"domain"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		CallbackURL  string `yaml:"callback_url"`
	} `yaml:"auth"`
	Exports struct {
		SigningKey    string        `yaml:"signing_key"`
		Workers       int           `yaml:"workers"`
		LinkTTL       time.Duration `yaml:"link_ttl"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
	} `yaml:"exports"`
	Webhooks struct {
		Timeout       time.Duration `yaml:"timeout"`
		MaxAttempts   int           `yaml:"max_attempts"`
		RetryInterval time.Duration `yaml:"retry_interval"`
	} `yaml:"webhooks"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE (if set), then
// applies environment overrides and defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// loadFile reads configuration from the specified YAML file.
func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.BaseURL, "BASE_URL")
	setString(&c.Database.Path, "DATABASE_PATH")
	setString(&c.Auth.Domain, "OIDC_DOMAIN")
	setString(&c.Auth.ClientID, "OIDC_CLIENT_ID")
	setString(&c.Auth.ClientSecret, "OIDC_CLIENT_SECRET")
	setString(&c.Auth.CallbackURL, "OIDC_CALLBACK_URL")
	setString(&c.Exports.SigningKey, "DOWNLOAD_SIGNING_KEY")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("USE_HTTPS"); v != "" {
		c.Server.UseHTTPS = v == "true"
	}
	if v := os.Getenv("LOG_DEVELOPMENT"); v != "" {
		c.Log.Development = v == "true"
	}

	for _, item := range []struct {
		key string
		dst *int
	}{
		{"JOB_WORKERS", &c.Exports.Workers},
		{"WEBHOOK_MAX_ATTEMPTS", &c.Webhooks.MaxAttempts},
	} {
		if v := os.Getenv(item.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", item.key, err)
			}
			*item.dst = n
		}
	}

	for _, item := range []struct {
		key string
		dst *time.Duration
	}{
		{"DOWNLOAD_LINK_TTL", &c.Exports.LinkTTL},
		{"EXPORT_SWEEP_INTERVAL", &c.Exports.SweepInterval},
		{"WEBHOOK_TIMEOUT", &c.Webhooks.Timeout},
		{"WEBHOOK_RETRY_INTERVAL", &c.Webhooks.RetryInterval},
	} {
		if v := os.Getenv(item.key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", item.key, err)
			}
			*item.dst = d
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:" + c.Server.Port
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.Database.Path == "" {
		c.Database.Path = "promptforge.db"
	}
	if c.Exports.Workers <= 0 {
		c.Exports.Workers = 2
	}
	if c.Exports.LinkTTL <= 0 {
		c.Exports.LinkTTL = 15 * time.Minute
	}
	if c.Exports.SweepInterval <= 0 {
		c.Exports.SweepInterval = time.Hour
	}
	if c.Webhooks.Timeout <= 0 {
		c.Webhooks.Timeout = 10 * time.Second
	}
	if c.Webhooks.MaxAttempts <= 0 {
		c.Webhooks.MaxAttempts = 5
	}
	if c.Webhooks.RetryInterval <= 0 {
		c.Webhooks.RetryInterval = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks required values
func (c *Config) Validate() error {
	var missing []string
	if c.Exports.SigningKey == "" {
		missing = append(missing, "DOWNLOAD_SIGNING_KEY")
	}
	if c.Auth.Domain == "" {
		missing = append(missing, "OIDC_DOMAIN")
	}
	if c.Auth.ClientID == "" {
		missing = append(missing, "OIDC_CLIENT_ID")
	}
	if c.Auth.ClientSecret == "" {
		missing = append(missing, "OIDC_CLIENT_SECRET")
	}
	if c.Auth.CallbackURL == "" {
		missing = append(missing, "OIDC_CALLBACK_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
