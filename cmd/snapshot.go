package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sfedu-digital/campus-assistant/internal/news"
	"github.com/sfedu-digital/campus-assistant/internal/seats"
)

// newSnapshotCommand creates the snapshot command printing the current
// snapshot files in a readable form.
func newSnapshotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the current news and free-seats snapshots",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSnapshotPrint()
		},
	}
}

// runSnapshotPrint renders both snapshot files to stdout.
func runSnapshotPrint() error {
	deps, err := newCommandDeps()
	if err != nil {
		return err
	}
	cfg := deps.Config

	if newsErr := printNewsSnapshot(cfg.News.File); newsErr != nil {
		return newsErr
	}
	fmt.Println()
	return printSeatsSnapshot(cfg.Seats.File)
}

// printNewsSnapshot prints the last crawl payload.
func printNewsSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Printf("No news snapshot yet (%s)\n", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read news snapshot: %w", err)
	}

	var payload news.Payload
	if unmarshalErr := json.Unmarshal(data, &payload); unmarshalErr != nil {
		return fmt.Errorf("parse news snapshot: %w", unmarshalErr)
	}

	switch {
	case payload.Error != "":
		fmt.Printf("Last crawl attempt failed: %s\n", payload.Error)
	case payload.ActualNews != nil:
		fmt.Printf("Latest article #%d: %s\n", payload.ActualNews.ID, payload.ActualNews.Title)
	default:
		fmt.Printf("News snapshot is empty (%s)\n", path)
	}
	return nil
}

// printSeatsSnapshot renders the free-seats records as a table grouped by
// category, preserving the file's category order.
func printSeatsSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Printf("No free-seats snapshot yet (%s)\n", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seats snapshot: %w", err)
	}

	var records []seats.SeatRecord
	if unmarshalErr := json.Unmarshal(data, &records); unmarshalErr != nil {
		return fmt.Errorf("parse seats snapshot: %w", unmarshalErr)
	}

	if len(records) == 0 {
		fmt.Printf("Free-seats snapshot is empty (%s)\n", path)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Category", "Program", "Free places", "City"})

	lastCategory := ""
	for _, record := range records {
		if lastCategory != "" && record.Category != lastCategory {
			t.AppendSeparator()
		}
		lastCategory = record.Category
		t.AppendRow(table.Row{record.Category, record.Name, record.FreePlaces, record.City})
	}

	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}
