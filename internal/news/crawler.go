// Package news implements the sequential-ID press-release crawler.
package news

import (
	"context"
	"fmt"
	"time"

	"github.com/sfedu-digital/campus-assistant/internal/clock"
	"github.com/sfedu-digital/campus-assistant/internal/extract"
	"github.com/sfedu-digital/campus-assistant/internal/logger"
)

// Classification is the outcome of one crawl attempt.
type Classification string

const (
	// ClassFound means the article content was present.
	ClassFound Classification = "found"
	// ClassNotFound means the page loaded but the article is not published
	// yet (or the id is a gap in the numbering; the two are
	// indistinguishable).
	ClassNotFound Classification = "not_found"
	// ClassLoadError means the page itself could not be loaded.
	ClassLoadError Classification = "load_error"
)

// Default configuration values.
const (
	defaultStartID      = 77181
	defaultURLTemplate  = "https://sfedu.ru/press-center/news/%d"
	defaultTitleSel     = "h1"
	defaultContentSel   = ".content"
	defaultNotFoundText = "Содержимое не найдено."
	defaultInterval     = time.Minute
)

// Article is one press-release article identified by its numeric id.
type Article struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Payload is the snapshot written and forwarded for each crawl attempt.
// Exactly one of ActualNews or Error is set.
type Payload struct {
	ActualNews *Article `json:"actual_news,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// ArticleSink persists crawl payloads and forwards found articles downstream.
type ArticleSink interface {
	Persist(payload any) error
	PersistAndForward(ctx context.Context, payload any) error
}

// Config holds crawler configuration.
type Config struct {
	StartID         int
	URLTemplate     string
	TitleSelector   string
	ContentSelector string
	NotFoundText    string
	Interval        time.Duration
}

// WithDefaults returns a copy of the config with default values applied
// for zero-value fields.
func (c Config) WithDefaults() Config {
	if c.StartID <= 0 {
		c.StartID = defaultStartID
	}
	if c.URLTemplate == "" {
		c.URLTemplate = defaultURLTemplate
	}
	if c.TitleSelector == "" {
		c.TitleSelector = defaultTitleSel
	}
	if c.ContentSelector == "" {
		c.ContentSelector = defaultContentSel
	}
	if c.NotFoundText == "" {
		c.NotFoundText = defaultNotFoundText
	}
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	return c
}

// Crawler advances through the numeric article id space one id at a time.
// The cursor only moves forward on a found classification; not-yet-published
// ids are retried indefinitely.
type Crawler struct {
	extractor extract.Extractor
	sink      ArticleSink
	clk       clock.Clock
	log       logger.Interface
	cfg       Config

	nextID    int
	lastClass Classification
}

// NewCrawler creates a crawler with its cursor at the configured start id.
func NewCrawler(
	extractor extract.Extractor,
	snk ArticleSink,
	clk clock.Clock,
	log logger.Interface,
	cfg Config,
) *Crawler {
	cfg = cfg.WithDefaults()
	return &Crawler{
		extractor: extractor,
		sink:      snk,
		clk:       clk,
		log:       log,
		cfg:       cfg,
		nextID:    cfg.StartID,
	}
}

// NextID returns the id the crawler will attempt next.
func (c *Crawler) NextID() int {
	return c.nextID
}

// LastClassification returns the outcome of the most recent attempt.
func (c *Crawler) LastClassification() Classification {
	return c.lastClass
}

// Run polls until ctx is cancelled, pacing every iteration with the
// configured interval regardless of outcome.
func (c *Crawler) Run(ctx context.Context) error {
	c.log.Info("Starting news crawler",
		"start_id", c.nextID,
		"interval", c.cfg.Interval.String(),
	)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("News crawler stopping", "next_id", c.nextID)
			return ctx.Err()
		default:
		}

		// ProcessNext advances the cursor on found, so the attempted id is
		// captured first for the failure log.
		attemptID := c.nextID
		classification, err := c.ProcessNext(ctx)
		if err != nil {
			c.log.Error("Persist failed",
				"id", attemptID,
				"classification", string(classification),
				"error", err.Error(),
			)
		}

		if !c.clk.Sleep(ctx, c.cfg.Interval) {
			c.log.Info("News crawler stopping", "next_id", c.nextID)
			return ctx.Err()
		}
	}
}

// ProcessNext performs one crawl attempt at the current cursor.
// The cursor advances only on a found classification; any returned error
// comes from the sink, never from the source.
func (c *Crawler) ProcessNext(ctx context.Context) (Classification, error) {
	pageURL := fmt.Sprintf(c.cfg.URLTemplate, c.nextID)

	fields, err := c.extractor.Fields(ctx, pageURL, []string{
		c.cfg.TitleSelector,
		c.cfg.ContentSelector,
	})
	if err != nil {
		return c.handleLoadError(pageURL, err)
	}

	title, content := fields[0], fields[1]
	if content == "" {
		content = c.cfg.NotFoundText
	}

	article := &Article{ID: c.nextID, Title: title, Content: content}
	if content == c.cfg.NotFoundText {
		return c.handleNotFound(article)
	}

	return c.handleFound(ctx, article)
}

// handleLoadError records a transient page failure without advancing.
func (c *Crawler) handleLoadError(pageURL string, err error) (Classification, error) {
	c.lastClass = ClassLoadError
	c.log.Warn("News page load failed",
		"id", c.nextID,
		"url", pageURL,
		"error", err.Error(),
	)

	payload := Payload{Error: fmt.Sprintf("page load failed for id %d: %v", c.nextID, err)}
	return ClassLoadError, c.sink.Persist(payload)
}

// handleNotFound records a not-yet-published article without advancing.
func (c *Crawler) handleNotFound(article *Article) (Classification, error) {
	c.lastClass = ClassNotFound
	c.log.Info("News article not found yet, will retry", "id", article.ID)

	return ClassNotFound, c.sink.Persist(Payload{ActualNews: article})
}

// handleFound persists and forwards the article, then advances the cursor.
func (c *Crawler) handleFound(ctx context.Context, article *Article) (Classification, error) {
	c.lastClass = ClassFound
	c.log.Info("News article found",
		"id", article.ID,
		"title", article.Title,
	)

	err := c.sink.PersistAndForward(ctx, Payload{ActualNews: article})
	c.nextID++
	return ClassFound, err
}
