// Package config loads and validates the application configuration.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/sfedu-digital/campus-assistant/internal/logger"
)

// Validation errors returned by Load and Validate.
var (
	ErrMissingAPIKey     = errors.New("assistant API key is required (set GPT_TOKEN or assistant.api_key)")
	ErrNoCategories      = errors.New("at least one seats category is required")
	ErrInvalidStartID    = errors.New("news start id must be positive")
	ErrInvalidMaxHistory = errors.New("dialog max history must be positive")
)

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// ExtractConfig holds page extraction settings.
type ExtractConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// NewsConfig holds the sequential news crawler settings.
type NewsConfig struct {
	StartID         int           `mapstructure:"start_id"`
	URLTemplate     string        `mapstructure:"url_template"`
	TitleSelector   string        `mapstructure:"title_selector"`
	ContentSelector string        `mapstructure:"content_selector"`
	NotFoundText    string        `mapstructure:"not_found_text"`
	Interval        time.Duration `mapstructure:"interval"`
	File            string        `mapstructure:"file"`
	ForwardURL      string        `mapstructure:"forward_url"`
}

// SeatSelectors holds the per-category cell selectors for the seats table.
type SeatSelectors struct {
	Name       string   `mapstructure:"name"`
	FreePlaces []string `mapstructure:"free_places"`
	City       string   `mapstructure:"city"`
}

// SeatCategory is one admissions level to scrape.
type SeatCategory struct {
	Name      string        `mapstructure:"name"`
	URL       string        `mapstructure:"url"`
	Selectors SeatSelectors `mapstructure:"selectors"`
}

// SeatsConfig holds the free-seats snapshot scraper settings.
type SeatsConfig struct {
	RowSelector   string         `mapstructure:"row_selector"`
	TargetCity    string         `mapstructure:"target_city"`
	Separator     string         `mapstructure:"separator"`
	CategoryPause time.Duration  `mapstructure:"category_pause"`
	Schedule      string         `mapstructure:"schedule"`
	File          string         `mapstructure:"file"`
	ForwardURL    string         `mapstructure:"forward_url"`
	Categories    []SeatCategory `mapstructure:"categories"`
}

// SinkConfig holds ingestion sink settings shared by both loops.
type SinkConfig struct {
	ForwardTimeout time.Duration `mapstructure:"forward_timeout"`
}

// DialogConfig holds the dialog context store settings.
type DialogConfig struct {
	File       string `mapstructure:"file"`
	MaxHistory int    `mapstructure:"max_history"`
}

// AssistantConfig holds chat-completion backend settings.
type AssistantConfig struct {
	APIURL       string        `mapstructure:"api_url"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float64       `mapstructure:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SystemPrompt string        `mapstructure:"system_prompt"`
}

// Config is the root application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    logger.Config   `mapstructure:"logger"`
	Server    ServerConfig    `mapstructure:"server"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	News      NewsConfig      `mapstructure:"news"`
	Seats     SeatsConfig     `mapstructure:"seats"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Dialog    DialogConfig    `mapstructure:"dialog"`
	Assistant AssistantConfig `mapstructure:"assistant"`
}

// Load decodes the full configuration from Viper.
// Viper must already be initialized (config file, env bindings, defaults).
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Viper lowercases map keys inside nested slices, which mangles the
	// Cyrillic category names. Decode the category list from the raw value
	// instead.
	categories, err := decodeCategories(viper.Get("seats.categories"))
	if err != nil {
		return nil, fmt.Errorf("decode seats categories: %w", err)
	}
	cfg.Seats.Categories = categories

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, validateErr
	}

	return &cfg, nil
}

// decodeCategories decodes the raw seats.categories value into typed entries.
func decodeCategories(raw any) ([]SeatCategory, error) {
	if raw == nil {
		return nil, nil
	}

	var categories []SeatCategory
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &categories,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if decodeErr := decoder.Decode(raw); decodeErr != nil {
		return nil, decodeErr
	}

	return categories, nil
}

// Validate checks the invariants every command depends on.
// The assistant API key is checked separately because only the serve
// command requires it.
func (c *Config) Validate() error {
	if c.News.StartID <= 0 {
		return ErrInvalidStartID
	}
	if c.Dialog.MaxHistory <= 0 {
		return ErrInvalidMaxHistory
	}
	return nil
}

// ValidateAssistant checks the settings the serve command cannot run without.
func (c *Config) ValidateAssistant() error {
	if c.Assistant.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// ValidateSeats checks the settings the seats command cannot run without.
func (c *Config) ValidateSeats() error {
	if len(c.Seats.Categories) == 0 {
		return ErrNoCategories
	}
	return nil
}
