package cmd

import (
	"fmt"

	"github.com/sfedu-digital/campus-assistant/internal/config"
	"github.com/sfedu-digital/campus-assistant/internal/extract"
	"github.com/sfedu-digital/campus-assistant/internal/logger"
	"github.com/sfedu-digital/campus-assistant/internal/seats"
	"github.com/sfedu-digital/campus-assistant/internal/sink"
)

// commandDeps holds the dependencies every command starts from.
type commandDeps struct {
	Config *config.Config
	Logger logger.Interface
}

// newCommandDeps loads the configuration and creates the logger.
func newCommandDeps() (*commandDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &commandDeps{Config: cfg, Logger: log}, nil
}

// newExtractor builds the page extractor from config.
func newExtractor(cfg *config.Config) *extract.PageExtractor {
	return extract.New(extract.Config{
		RequestTimeout: cfg.Extract.RequestTimeout,
		UserAgent:      cfg.Extract.UserAgent,
	})
}

// newNewsSink builds the sink for news crawl payloads.
func newNewsSink(cfg *config.Config, log logger.Interface) *sink.Sink {
	return sink.New(sink.Config{
		FilePath:       cfg.News.File,
		ForwardURL:     cfg.News.ForwardURL,
		ForwardTimeout: cfg.Sink.ForwardTimeout,
	}, log)
}

// newSeatsSink builds the sink for free-seats snapshots.
func newSeatsSink(cfg *config.Config, log logger.Interface) *sink.Sink {
	return sink.New(sink.Config{
		FilePath:       cfg.Seats.File,
		ForwardURL:     cfg.Seats.ForwardURL,
		ForwardTimeout: cfg.Sink.ForwardTimeout,
	}, log)
}

// seatCategories converts the configured categories into scraper categories.
func seatCategories(cfg *config.Config) []seats.Category {
	categories := make([]seats.Category, 0, len(cfg.Seats.Categories))
	for _, c := range cfg.Seats.Categories {
		categories = append(categories, seats.Category{
			Name: c.Name,
			URL:  c.URL,
			Selectors: seats.Selectors{
				Name:       c.Selectors.Name,
				FreePlaces: c.Selectors.FreePlaces,
				City:       c.Selectors.City,
			},
		})
	}
	return categories
}
