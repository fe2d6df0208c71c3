// Package seats implements the free-seats snapshot scraper covering the
// configured admissions categories.
package seats

import (
	"context"
	"strings"
	"time"

	"github.com/sfedu-digital/campus-assistant/internal/clock"
	"github.com/sfedu-digital/campus-assistant/internal/extract"
	"github.com/sfedu-digital/campus-assistant/internal/logger"
)

// Default configuration values.
const (
	defaultRowSelector   = `tbody[itemprop="priemKolTarget"] tr`
	defaultTargetCity    = "Ростов-на-Дону"
	defaultSeparator     = " / "
	defaultCategoryPause = 5 * time.Second
)

// Row skip reasons reported in the run summary.
const (
	reasonEmptyCity    = "empty_city"
	reasonCityMismatch = "city_mismatch"
)

// SeatRecord is one program row retained in a snapshot.
type SeatRecord struct {
	Category   string `json:"category"`
	Name       string `json:"name"`
	FreePlaces string `json:"free_places"`
	City       string `json:"city"`
}

// Selectors holds the per-category cell selectors.
type Selectors struct {
	Name       string
	FreePlaces []string
	City       string
}

// Category is one admissions level to scrape.
type Category struct {
	Name      string
	URL       string
	Selectors Selectors
}

// SkippedRow describes a row excluded from a snapshot.
type SkippedRow struct {
	Index  int
	Reason string
}

// CategoryResult is the typed outcome of scraping one category: either the
// page failed as a whole (Err set, zero records) or each row was kept or
// skipped for a reason.
type CategoryResult struct {
	Category string
	Records  []SeatRecord
	Skipped  []SkippedRow
	Err      error
}

// RunSummary aggregates the per-category results of one full pass.
type RunSummary struct {
	Categories []CategoryResult
}

// Snapshot flattens the summary into the record collection handed to the
// sink as one atomic unit.
func (r RunSummary) Snapshot() []SeatRecord {
	records := make([]SeatRecord, 0)
	for _, cat := range r.Categories {
		records = append(records, cat.Records...)
	}
	return records
}

// SnapshotSink receives the full snapshot of one run.
type SnapshotSink interface {
	PersistAndForward(ctx context.Context, payload any) error
}

// Config holds scraper configuration.
type Config struct {
	RowSelector   string
	TargetCity    string
	Separator     string
	CategoryPause time.Duration
	Categories    []Category
}

// WithDefaults returns a copy of the config with default values applied
// for zero-value fields.
func (c Config) WithDefaults() Config {
	if c.RowSelector == "" {
		c.RowSelector = defaultRowSelector
	}
	if c.TargetCity == "" {
		c.TargetCity = defaultTargetCity
	}
	if c.Separator == "" {
		c.Separator = defaultSeparator
	}
	if c.CategoryPause <= 0 {
		c.CategoryPause = defaultCategoryPause
	}
	return c
}

// Scraper produces one full snapshot per run across all configured
// categories. It keeps no state between runs.
type Scraper struct {
	extractor extract.Extractor
	sink      SnapshotSink
	clk       clock.Clock
	log       logger.Interface
	cfg       Config
}

// NewScraper creates a snapshot scraper.
func NewScraper(
	extractor extract.Extractor,
	snk SnapshotSink,
	clk clock.Clock,
	log logger.Interface,
	cfg Config,
) *Scraper {
	return &Scraper{
		extractor: extractor,
		sink:      snk,
		clk:       clk,
		log:       log,
		cfg:       cfg.WithDefaults(),
	}
}

// RunOnce scrapes every category in its fixed order and hands the full
// snapshot to the sink. Category failures are isolated: a failed page
// yields zero records for that category, never a run-wide abort. The
// returned error comes from the sink only.
func (s *Scraper) RunOnce(ctx context.Context) (RunSummary, error) {
	summary := RunSummary{Categories: make([]CategoryResult, 0, len(s.cfg.Categories))}

	for i, category := range s.cfg.Categories {
		result := s.scrapeCategory(ctx, category)
		summary.Categories = append(summary.Categories, result)

		if result.Err != nil {
			s.log.Error("Category page failed, skipping",
				"category", category.Name,
				"url", category.URL,
				"error", result.Err.Error(),
			)
		} else {
			s.log.Info("Category scraped",
				"category", category.Name,
				"records", len(result.Records),
				"skipped", len(result.Skipped),
			)
		}

		// Pacing between category pages; the last category goes straight
		// to the sink.
		if i < len(s.cfg.Categories)-1 {
			if !s.clk.Sleep(ctx, s.cfg.CategoryPause) {
				return summary, ctx.Err()
			}
		}
	}

	snapshot := summary.Snapshot()
	if err := s.sink.PersistAndForward(ctx, snapshot); err != nil {
		return summary, err
	}

	s.log.Info("Snapshot complete", "records", len(snapshot))
	return summary, nil
}

// scrapeCategory fetches one category page and classifies every row.
func (s *Scraper) scrapeCategory(ctx context.Context, category Category) CategoryResult {
	result := CategoryResult{Category: category.Name}

	cellSelectors := make([]string, 0, len(category.Selectors.FreePlaces)+2)
	cellSelectors = append(cellSelectors, category.Selectors.City, category.Selectors.Name)
	cellSelectors = append(cellSelectors, category.Selectors.FreePlaces...)

	rows, err := s.extractor.Rows(ctx, category.URL, s.cfg.RowSelector, cellSelectors)
	if err != nil {
		result.Err = err
		return result
	}

	for i, cells := range rows {
		record, skipReason := s.buildRecord(category.Name, cells)
		if skipReason != "" {
			result.Skipped = append(result.Skipped, SkippedRow{Index: i, Reason: skipReason})
			continue
		}
		result.Records = append(result.Records, record)
	}

	return result
}

// buildRecord turns one row's cells into a SeatRecord, or returns the
// reason the row is excluded. The city match is the only inclusion
// criterion; other cells may be empty. Cell order matches scrapeCategory:
// city, name, then the free-place columns.
func (s *Scraper) buildRecord(category string, cells []string) (SeatRecord, string) {
	city := cells[0]
	if city == "" {
		return SeatRecord{}, reasonEmptyCity
	}
	if !strings.Contains(strings.ToLower(city), strings.ToLower(s.cfg.TargetCity)) {
		return SeatRecord{}, reasonCityMismatch
	}

	name := cells[1]

	places := make([]string, 0, len(cells)-2)
	for _, cell := range cells[2:] {
		if cell != "" {
			places = append(places, cell)
		}
	}

	return SeatRecord{
		Category:   category,
		Name:       name,
		FreePlaces: strings.Join(places, s.cfg.Separator),
		City:       city,
	}, ""
}
