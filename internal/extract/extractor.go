// Package extract fetches pages and resolves text fields by CSS selector.
// It is the boundary the polling loops use to read the external sources.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	colly "github.com/gocolly/colly/v2"
)

// Default configuration values.
const (
	defaultRequestTimeout = 30 * time.Second
	defaultUserAgent      = "CampusAssistant/1.0"
)

// Extractor resolves text fields on remote pages.
type Extractor interface {
	// Fields fetches pageURL and returns the trimmed text of the first node
	// matching each selector, in order. A selector with no match yields "".
	// A non-nil error means the page itself could not be loaded.
	Fields(ctx context.Context, pageURL string, selectors []string) ([]string, error)

	// Rows fetches pageURL and returns one entry per node matching
	// rowSelector, with each cell selector resolved inside that row.
	// Missing cells yield "".
	Rows(ctx context.Context, pageURL, rowSelector string, cellSelectors []string) ([][]string, error)
}

// Config holds extractor configuration.
type Config struct {
	RequestTimeout time.Duration
	UserAgent      string
}

// WithDefaults returns a copy of the config with default values applied
// for zero-value fields.
func (c Config) WithDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	return c
}

// PageExtractor implements Extractor using colly with goquery selections.
type PageExtractor struct {
	cfg Config
}

// New creates a new page extractor.
func New(cfg Config) *PageExtractor {
	return &PageExtractor{cfg: cfg.WithDefaults()}
}

// newCollector builds a single-use collector bound to ctx.
// Collectors are cheap; one per call keeps context propagation simple.
func (e *PageExtractor) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(e.cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(e.cfg.RequestTimeout)
	return c
}

// Fields implements Extractor.
func (e *PageExtractor) Fields(ctx context.Context, pageURL string, selectors []string) ([]string, error) {
	values := make([]string, len(selectors))

	c := e.newCollector(ctx)
	c.OnHTML("html", func(el *colly.HTMLElement) {
		for i, sel := range selectors {
			values[i] = firstText(el.DOM, sel)
		}
	})

	var fetchErr error
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", pageURL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, fetchErr)
	}

	return values, nil
}

// Rows implements Extractor.
func (e *PageExtractor) Rows(
	ctx context.Context,
	pageURL, rowSelector string,
	cellSelectors []string,
) ([][]string, error) {
	var rows [][]string

	c := e.newCollector(ctx)
	c.OnHTML(rowSelector, func(el *colly.HTMLElement) {
		cells := make([]string, len(cellSelectors))
		for i, sel := range cellSelectors {
			cells[i] = firstText(el.DOM, sel)
		}
		rows = append(rows, cells)
	})

	var fetchErr error
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", pageURL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, fetchErr)
	}

	return rows, nil
}

// firstText returns the trimmed text of the first node matching sel,
// or "" when nothing matches.
func firstText(dom *goquery.Selection, sel string) string {
	return strings.TrimSpace(dom.Find(sel).First().Text())
}
