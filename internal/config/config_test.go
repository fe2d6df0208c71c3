package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfedu-digital/campus-assistant/internal/config"
)

// setValidBase resets Viper and sets the minimum the validators require.
func setValidBase(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("news.start_id", 77181)
	viper.Set("dialog.max_history", 100)
}

func TestLoadDecodesTypedConfig(t *testing.T) {
	setValidBase(t)
	viper.Set("server.address", ":7270")
	viper.Set("news.interval", "1m")
	viper.Set("assistant.temperature", 0.7)

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, ":7270", cfg.Server.Address)
	assert.Equal(t, 77181, cfg.News.StartID)
	assert.Equal(t, time.Minute, cfg.News.Interval)
	assert.Equal(t, 100, cfg.Dialog.MaxHistory)
	assert.InDelta(t, 0.7, cfg.Assistant.Temperature, 0.001)
}

func TestLoadDecodesCategoriesWithCyrillicNames(t *testing.T) {
	setValidBase(t)
	viper.Set("seats.categories", []map[string]any{
		{
			"name": "Бакалавриат",
			"url":  "https://example.org/bachelor",
			"selectors": map[string]any{
				"name":        "td.name",
				"free_places": []string{"td.a", "td.b"},
				"city":        "td.city",
			},
		},
	})

	cfg, err := config.Load()

	require.NoError(t, err)
	require.Len(t, cfg.Seats.Categories, 1)
	category := cfg.Seats.Categories[0]
	assert.Equal(t, "Бакалавриат", category.Name)
	assert.Equal(t, "https://example.org/bachelor", category.URL)
	assert.Equal(t, "td.name", category.Selectors.Name)
	assert.Equal(t, []string{"td.a", "td.b"}, category.Selectors.FreePlaces)
	assert.Equal(t, "td.city", category.Selectors.City)
}

func TestLoadRejectsInvalidStartID(t *testing.T) {
	setValidBase(t)
	viper.Set("news.start_id", 0)

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrInvalidStartID)
}

func TestLoadRejectsInvalidMaxHistory(t *testing.T) {
	setValidBase(t)
	viper.Set("dialog.max_history", -1)

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrInvalidMaxHistory)
}

func TestValidateAssistantRequiresAPIKey(t *testing.T) {
	setValidBase(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.ValidateAssistant(), config.ErrMissingAPIKey)

	cfg.Assistant.APIKey = "token"
	assert.NoError(t, cfg.ValidateAssistant())
}

func TestValidateSeatsRequiresCategories(t *testing.T) {
	setValidBase(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.ValidateSeats(), config.ErrNoCategories)
}
