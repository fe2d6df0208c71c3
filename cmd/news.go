package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sfedu-digital/campus-assistant/internal/clock"
	"github.com/sfedu-digital/campus-assistant/internal/news"
)

// newNewsCommand creates the news command running the press-release crawler.
func newNewsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "news",
		Short: "Run the sequential press-release crawler",
		Long: `Run the press-release crawler. It walks the numeric article id space one
id per interval, persisting every attempt and forwarding found articles to
the ingestion endpoint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNews(cmd.Context())
		},
	}
}

// runNews runs the crawler loop until interrupted.
func runNews(ctx context.Context) error {
	deps, err := newCommandDeps()
	if err != nil {
		return err
	}
	cfg, log := deps.Config, deps.Logger.WithComponent("news")

	crawler := news.NewCrawler(
		newExtractor(cfg),
		newNewsSink(cfg, log),
		clock.New(),
		log,
		news.Config{
			StartID:         cfg.News.StartID,
			URLTemplate:     cfg.News.URLTemplate,
			TitleSelector:   cfg.News.TitleSelector,
			ContentSelector: cfg.News.ContentSelector,
			NotFoundText:    cfg.News.NotFoundText,
			Interval:        cfg.News.Interval,
		},
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if runErr := crawler.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
