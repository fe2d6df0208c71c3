package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/sfedu-digital/campus-assistant/internal/clock"
	"github.com/sfedu-digital/campus-assistant/internal/logger"
	"github.com/sfedu-digital/campus-assistant/internal/seats"
)

var seatsOnce bool

// newSeatsCommand creates the seats command running the free-seats scraper.
func newSeatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seats",
		Short: "Run the free-seats snapshot scraper",
		Long: `Run the free-seats scraper. It takes a full snapshot across all
configured admissions categories immediately, then repeats on the
configured schedule.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeats(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&seatsOnce, "once", false, "take one snapshot and exit")
	return cmd
}

// runSeats takes an immediate snapshot, then repeats on the cron schedule
// until interrupted.
func runSeats(ctx context.Context) error {
	deps, err := newCommandDeps()
	if err != nil {
		return err
	}
	cfg, log := deps.Config, deps.Logger.WithComponent("seats")

	if validateErr := cfg.ValidateSeats(); validateErr != nil {
		return validateErr
	}

	scraper := seats.NewScraper(
		newExtractor(cfg),
		newSeatsSink(cfg, log),
		clock.New(),
		log,
		seats.Config{
			RowSelector:   cfg.Seats.RowSelector,
			TargetCity:    cfg.Seats.TargetCity,
			Separator:     cfg.Seats.Separator,
			CategoryPause: cfg.Seats.CategoryPause,
			Categories:    seatCategories(cfg),
		},
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The first snapshot runs immediately; the schedule covers the rest.
	runSnapshot(ctx, log, scraper)
	if seatsOnce {
		return nil
	}

	scheduler := cron.New()
	if _, addErr := scheduler.AddFunc(cfg.Seats.Schedule, func() {
		runSnapshot(ctx, log, scraper)
	}); addErr != nil {
		return addErr
	}

	log.Info("Seats scraper scheduled", "schedule", cfg.Seats.Schedule)
	scheduler.Start()

	<-ctx.Done()
	log.Info("Seats scraper stopping")
	<-scheduler.Stop().Done()
	return nil
}

// runSnapshot performs one full snapshot run and logs the outcome.
func runSnapshot(ctx context.Context, log logger.Interface, scraper *seats.Scraper) {
	summary, err := scraper.RunOnce(ctx)
	if err != nil {
		log.Error("Snapshot run failed", "error", err.Error())
		return
	}
	log.Info("Snapshot run finished", "records", len(summary.Snapshot()))
}
