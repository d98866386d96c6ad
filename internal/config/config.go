package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

var backends = []string{BackendFile, BackendSQLite, BackendMongo, BackendMemory}

type Config struct {
	DiscordToken   string `env:"DISCORD_TOKEN" yaml:"discord_token"`
	CommandPrefix  string `env:"COMMAND_PREFIX" yaml:"command_prefix"`
	MacroPrefix    string `env:"MACRO_PREFIX" yaml:"macro_prefix"`
	PrivilegedRole string `env:"PRIVILEGED_ROLE" yaml:"privileged_role"`
	DeveloperID    string `env:"DEVELOPER_ID" yaml:"developer_id"`
	DMAcknowledge  bool   `env:"DM_ACKNOWLEDGE" yaml:"dm_acknowledge"`

	StoreBackend  string `env:"STORE_BACKEND" yaml:"store_backend"`
	StorePath     string `env:"STORE_PATH" yaml:"store_path"`
	MongoURI      string `env:"MONGO_URI" yaml:"mongo_uri"`
	MongoDatabase string `env:"MONGO_DATABASE" yaml:"mongo_database"`

	InaraAppName string        `env:"INARA_APP_NAME" yaml:"inara_app_name"`
	InaraAPIKey  string        `env:"INARA_API_KEY" yaml:"inara_api_key"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" yaml:"http_timeout"`
	// CommandTimeout bounds one command execution.
	CommandTimeout time.Duration `env:"COMMAND_TIMEOUT" yaml:"command_timeout"`

	Log LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL" yaml:"level"`
	File       string `env:"LOG_FILE" yaml:"file"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" yaml:"max_size_mb"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" yaml:"max_backups"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" yaml:"max_age_days"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		CommandPrefix:  "/",
		MacroPrefix:    ";",
		PrivilegedRole: "podrole",
		DMAcknowledge:  true,
		StoreBackend:   BackendFile,
		StorePath:      "data",
		MongoDatabase:  "orcabot",
		HTTPTimeout:    30 * time.Second,
		CommandTimeout: 2 * time.Minute,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load reads .env when present, then the YAML file named by CONFIG_FILE,
// then the environment. Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings every binary needs.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.CommandPrefix) == "" {
		errs = append(errs, errors.New("COMMAND_PREFIX is empty"))
	}
	if !slices.Contains(backends, c.StoreBackend) {
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not one of %s", c.StoreBackend, strings.Join(backends, ", ")))
	}
	if c.StoreBackend == BackendMongo && c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI is required for the mongo backend"))
	}
	if (c.StoreBackend == BackendFile || c.StoreBackend == BackendSQLite) && c.StorePath == "" {
		errs = append(errs, errors.New("STORE_PATH is empty"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateBot also requires the Discord credentials.
func (c *Config) ValidateBot() error {
	err := c.Validate()
	if c.DiscordToken == "" {
		err = errors.Join(err, errors.New("DISCORD_TOKEN is not set"))
	}
	return err
}

// IsDeveloper reports whether userID is the configured developer.
func (c *Config) IsDeveloper(userID string) bool {
	return c.DeveloperID != "" && c.DeveloperID == userID
}
