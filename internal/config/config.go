// Package config loads pocket-meta settings from config.yaml, .env files and
// POCKET_META_* environment variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/models"
)

const (
	// DirEnv overrides the library directory
	DirEnv = "POCKET_META_DIR"

	envPrefix = "POCKET_META"
	fileName  = "config.yaml"
)

// Config is the full application configuration
type Config struct {
	API        models.APIConfig `mapstructure:"api"`
	Generation GenerationConfig `mapstructure:"generation"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`

	// Dir is the library directory the configuration was loaded from
	Dir string `mapstructure:"-"`
}

// GenerationConfig controls single-document generation
type GenerationConfig struct {
	AutoSelectTemplate bool   `mapstructure:"auto_select_template"`
	ReplaceExisting    bool   `mapstructure:"replace_existing"`
	StrictYAML         bool   `mapstructure:"strict_yaml"`
	DefaultTemplate    string `mapstructure:"default_template"`
}

// BatchConfig controls batch runs
type BatchConfig struct {
	MaxConcurrent int  `mapstructure:"max_concurrent"`
	SkipUnchanged bool `mapstructure:"skip_unchanged"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig controls the console logger
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig toggles Prometheus collection
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultDir returns $POCKET_META_DIR or ~/.pocket-meta
func DefaultDir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".pocket-meta"), nil
}

// Load reads configuration in order of increasing priority: defaults,
// <dir>/config.yaml, then environment variables. .env files in the working
// directory and in dir are loaded first without overriding the real
// environment. An empty dir uses DefaultDir.
func Load(dir string) (*Config, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load()
	if envFile := filepath.Join(dir, ".env"); fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := newViper()
	path := filepath.Join(dir, fileName)
	if fileExists(path) {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Dir = dir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteDefault writes a config.yaml with default values into dir. An
// existing file is left alone and reported as not written.
func WriteDefault(dir string) (string, bool, error) {
	path := filepath.Join(dir, fileName)
	if fileExists(path) {
		return path, false, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	if err := v.WriteConfigAs(path); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return path, true, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var problems []string
	if c.API.Temperature < 0 || c.API.Temperature > 2 {
		problems = append(problems, "api.temperature must be between 0 and 2")
	}
	if c.API.MaxTokens <= 0 {
		problems = append(problems, "api.max_tokens must be positive")
	}
	if c.API.TimeoutMs <= 0 {
		problems = append(problems, "api.timeout_ms must be positive")
	}
	if c.Batch.MaxConcurrent <= 0 {
		problems = append(problems, "batch.max_concurrent must be positive")
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		problems = append(problems, "api.base_url is required")
	}
	if len(problems) > 0 {
		return errors.ValidationError("invalid configuration").WithDetails(strings.Join(problems, "; "))
	}
	return nil
}

// Path returns the location of a file inside the library directory
func (c *Config) Path(elem ...string) string {
	return filepath.Join(append([]string{c.Dir}, elem...)...)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The conventional OpenAI variable works too
	_ = v.BindEnv("api.api_key", envPrefix+"_API_API_KEY", "OPENAI_API_KEY")
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.provider", "openai")
	v.SetDefault("api.api_key", "")
	v.SetDefault("api.base_url", "https://api.openai.com/v1")
	v.SetDefault("api.model", "gpt-3.5-turbo")
	v.SetDefault("api.temperature", 0.3)
	v.SetDefault("api.max_tokens", 1000)
	v.SetDefault("api.timeout_ms", 30000)

	v.SetDefault("generation.auto_select_template", true)
	v.SetDefault("generation.replace_existing", false)
	v.SetDefault("generation.strict_yaml", false)
	v.SetDefault("generation.default_template", "general-note")

	v.SetDefault("batch.max_concurrent", 3)
	v.SetDefault("batch.skip_unchanged", false)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.enabled", true)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
