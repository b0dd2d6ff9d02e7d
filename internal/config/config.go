package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Env             string        `yaml:"env"`
	Port            string        `yaml:"port"`
	DBDriver        string        `yaml:"db_driver"`
	DBDSN           string        `yaml:"db_dsn"`
	SessionSecret   string        `yaml:"session_secret"`
	SessionMaxAge   int           `yaml:"session_max_age"`
	ConnectRetries  int           `yaml:"connect_retries"`
	ConnectInterval time.Duration `yaml:"connect_interval"`
}

// devSessionSecret is only accepted outside production.
const devSessionSecret = "wiki-development-session-secret!"

func Default() *Config {
	return &Config{
		Env:             "development",
		Port:            "3000",
		DBDriver:        "sqlite3",
		DBDSN:           "wiki_dev.db",
		SessionMaxAge:   7 * 24 * 60 * 60,
		ConnectRetries:  10,
		ConnectInterval: 5 * time.Second,
	}
}

// Load reads filename over the defaults. A missing file is not an error.
func Load(filename string) (*Config, error) {
	config := Default()
	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return config, nil
}

// ApplyEnv overrides fields from ENV, PORT, DB_DRIVER, DB_DSN,
// SESSION_SECRET and DB_CONNECT_RETRIES.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Env, "ENV")
	set(&c.Port, "PORT")
	set(&c.DBDriver, "DB_DRIVER")
	set(&c.DBDSN, "DB_DSN")
	set(&c.SessionSecret, "SESSION_SECRET")
	if v := getenv("DB_CONNECT_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DB_CONNECT_RETRIES: %w", err)
		}
		c.ConnectRetries = n
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported db_driver %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("db_dsn is required")
	}
	if c.ConnectRetries < 0 {
		return fmt.Errorf("connect_retries must not be negative")
	}
	if c.Production() && len(c.SessionSecret) < 32 {
		return fmt.Errorf("session_secret of at least 32 bytes is required in production")
	}
	return nil
}

func (c *Config) Production() bool { return c.Env == "production" }

// Secret returns the session signing key, falling back to a fixed key
// outside production.
func (c *Config) Secret() []byte {
	if c.SessionSecret == "" && !c.Production() {
		return []byte(devSessionSecret)
	}
	return []byte(c.SessionSecret)
}
