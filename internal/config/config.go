package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"

	"github.com/ramonehamilton/deckforge/internal/llm"
	"github.com/ramonehamilton/deckforge/internal/mtga/combos"
	"github.com/ramonehamilton/deckforge/internal/mtga/deckbuilder"
	"github.com/ramonehamilton/deckforge/internal/scryfall"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DECKFORGE_"

// Config represents the application configuration.
type Config struct {
	Log      LogConfig          `toml:"log"`
	Engine   combos.Config      `toml:"engine"` // Combo discovery thresholds
	Deck     deckbuilder.Config `toml:"deck"`   // Quotas and land base
	LLM      LLMConfig          `toml:"llm"`
	Storage  StorageConfig      `toml:"storage"`
	Cache    CacheConfig        `toml:"cache"`
	Scryfall ScryfallConfig     `toml:"scryfall"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json or console
}

// LLMConfig contains the generative combo suggester settings.
type LLMConfig struct {
	Enabled           bool    `toml:"enabled"`
	BaseURL           string  `toml:"base_url"`
	Model             string  `toml:"model"`
	RequestTimeout    string  `toml:"request_timeout"`   // e.g. "30s"
	InferenceTimeout  string  `toml:"inference_timeout"` // e.g. "2m"
	RequestsPerMinute int     `toml:"requests_per_minute"`
	Temperature       float64 `toml:"temperature"`
}

// StorageConfig contains the card database settings.
type StorageConfig struct {
	Path        string `toml:"path"` // Empty means ~/.deckforge/cards.db
	AutoMigrate bool   `toml:"auto_migrate"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	ParserSize int `toml:"parser_size"` // Oracle analyses kept in memory
}

// ScryfallConfig contains the card download settings used by import.
type ScryfallConfig struct {
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	BulkType          string  `toml:"bulk_type"` // oracle_cards has one record per card
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Engine: combos.DefaultConfig(),
		Deck:   deckbuilder.DefaultConfig(),
		LLM: LLMConfig{
			Enabled:           false,
			BaseURL:           "http://localhost:11434",
			Model:             "qwen3:8b",
			RequestTimeout:    "30s",
			InferenceTimeout:  "2m",
			RequestsPerMinute: 10,
			Temperature:       llm.DefaultTemperature,
		},
		Storage: StorageConfig{
			AutoMigrate: true,
		},
		Cache: CacheConfig{
			ParserSize: 4096,
		},
		Scryfall: ScryfallConfig{
			BaseURL:           "https://api.scryfall.com",
			RequestsPerSecond: 10,
			BulkType:          "oracle_cards",
		},
	}
}

// configDir returns ~/.deckforge, creating it when missing.
func configDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".deckforge")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return dir, nil
}

// Path returns the path to the default configuration file.
func Path() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default path, then applies
// environment overrides. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads the configuration from path over the defaults, then
// applies environment overrides. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the configuration as TOML to path.
func (c *Config) SaveFile(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from DECKFORGE_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	if v, ok := get("LLM_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sLLM_ENABLED %q: %w", EnvPrefix, v, err)
		}
		c.LLM.Enabled = enabled
	}
	if v, ok := get("LLM_URL"); ok {
		c.LLM.BaseURL = v
	}
	if v, ok := get("LLM_MODEL"); ok {
		c.LLM.Model = v
	}
	if v, ok := get("DB_PATH"); ok {
		c.Storage.Path = v
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format %q: want json or console", c.Log.Format)
	}

	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Deck.Validate(); err != nil {
		return fmt.Errorf("deck: %w", err)
	}

	if _, err := time.ParseDuration(c.LLM.RequestTimeout); err != nil {
		return fmt.Errorf("invalid llm request timeout %q: %w", c.LLM.RequestTimeout, err)
	}
	if _, err := time.ParseDuration(c.LLM.InferenceTimeout); err != nil {
		return fmt.Errorf("invalid llm inference timeout %q: %w", c.LLM.InferenceTimeout, err)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm requests per minute cannot be negative: %d", c.LLM.RequestsPerMinute)
	}
	if c.LLM.Enabled && (c.LLM.BaseURL == "" || c.LLM.Model == "") {
		return fmt.Errorf("llm base_url and model are required when llm is enabled")
	}

	if c.Cache.ParserSize < 0 {
		return fmt.Errorf("parser cache size cannot be negative: %d", c.Cache.ParserSize)
	}

	if c.Scryfall.BaseURL == "" {
		return fmt.Errorf("scryfall base_url is required")
	}
	if c.Scryfall.RequestsPerSecond < 0 || c.Scryfall.RequestsPerSecond > 10 {
		return fmt.Errorf("scryfall requests per second must be between 0 and 10, got %g", c.Scryfall.RequestsPerSecond)
	}
	return nil
}

// OllamaConfig converts the LLM section into client settings.
func (c *Config) OllamaConfig() (*llm.OllamaConfig, error) {
	requestTimeout, err := time.ParseDuration(c.LLM.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid llm request timeout: %w", err)
	}
	inferenceTimeout, err := time.ParseDuration(c.LLM.InferenceTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid llm inference timeout: %w", err)
	}

	ollama := llm.DefaultOllamaConfig()
	ollama.BaseURL = strings.TrimRight(c.LLM.BaseURL, "/")
	ollama.Model = c.LLM.Model
	ollama.RequestTimeout = requestTimeout
	ollama.InferenceTimeout = inferenceTimeout
	return ollama, nil
}

// ScryfallConfig converts the Scryfall section into client settings.
func (c *Config) ScryfallConfig() *scryfall.Config {
	config := scryfall.DefaultConfig()
	config.BaseURL = strings.TrimRight(c.Scryfall.BaseURL, "/")
	config.RequestsPerSec = c.Scryfall.RequestsPerSecond
	return config
}

// DatabasePath returns the configured database path, defaulting to
// ~/.deckforge/cards.db.
func (c *Config) DatabasePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cards.db"), nil
}
