package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Store struct {
		Driver string `yaml:"driver"`
	} `yaml:"store"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Questions struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"questions"`
	Auth struct {
		Issuer               string   `yaml:"issuer"`
		Secret               string   `yaml:"secret"`
		TokenTTL             string   `yaml:"token_ttl"`
		AdminSessionTTL      string   `yaml:"admin_session_ttl"`
		AdminEmails          []string `yaml:"admin_emails"`
		DefaultAdminPassword string   `yaml:"default_admin_password"`
	} `yaml:"auth"`
}

// Load reads YAML config from path and applies defaults and environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	if secret := os.Getenv("SURVEY_AUTH_SECRET"); secret != "" {
		cfg.Auth.Secret = secret
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "survey"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "survey-service"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports settings that would leave the service unusable.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverMongo:
		if c.Mongo.URI == "" {
			return errors.New("mongo uri not configured")
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return errors.New("postgres url not configured")
		}
	default:
		return errors.New("unknown store driver " + c.Store.Driver)
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth secret not configured (set auth.secret or SURVEY_AUTH_SECRET)")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
