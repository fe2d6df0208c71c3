// Package cmd implements the command-line interface for the campus
// assistant service and its ingestion loops.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// rootCmd represents the root command.
	rootCmd = &cobra.Command{
		Use:   "campus-assistant",
		Short: "University assistant API and admissions data ingestion",
		Long: `Campus assistant runs the student-facing assistant API together with
the ingestion loops that keep its news and free-seats snapshots fresh.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so GPT_TOKEN is visible when Viper binds it.
	_ = godotenv.Load()

	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml)",
	)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("campus-assistant version %s\n", version)
		},
	})

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newNewsCommand())
	rootCmd.AddCommand(newSeatsCommand())
	rootCmd.AddCommand(newSnapshotCommand())
}

// initConfig reads in the config file and environment variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	// Config file is optional: defaults plus environment cover a full run.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config file not found: %v (using defaults)\n", err)
	}

	if err := viper.BindEnv("assistant.api_key", "GPT_TOKEN"); err != nil {
		return fmt.Errorf("failed to bind GPT_TOKEN: %w", err)
	}

	return nil
}

// setDefaults sets default configuration values. The category defaults
// carry the admissions pages and their table cell selectors; each page
// styles its columns differently, so the selectors are per category.
func setDefaults() {
	// Application defaults
	viper.SetDefault("app.name", "campus-assistant")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.development", false)
	viper.SetDefault("logger.encoding", "console")

	// HTTP server defaults
	viper.SetDefault("server.address", ":7270")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)

	// Page extraction defaults
	viper.SetDefault("extract.request_timeout", 30*time.Second)
	viper.SetDefault("extract.user_agent", "CampusAssistant/1.0")

	// News crawler defaults
	viper.SetDefault("news.start_id", 77181)
	viper.SetDefault("news.url_template", "https://sfedu.ru/press-center/news/%d")
	viper.SetDefault("news.title_selector", "h1")
	viper.SetDefault("news.content_selector", ".content")
	viper.SetDefault("news.not_found_text", "Содержимое не найдено.")
	viper.SetDefault("news.interval", time.Minute)
	viper.SetDefault("news.file", "parsed_news.json")
	viper.SetDefault("news.forward_url", "http://127.0.0.1:7270/parsed-news")

	// Free-seats scraper defaults
	viper.SetDefault("seats.row_selector", `tbody[itemprop="priemKolTarget"] tr`)
	viper.SetDefault("seats.target_city", "Ростов-на-Дону")
	viper.SetDefault("seats.separator", " / ")
	viper.SetDefault("seats.category_pause", 5*time.Second)
	viper.SetDefault("seats.schedule", "@every 48h")
	viper.SetDefault("seats.file", "free_places.json")
	viper.SetDefault("seats.forward_url", "http://127.0.0.1:7270/free-places")
	viper.SetDefault("seats.categories", []map[string]any{
		{
			"name": "Бакалавриат",
			"url":  "https://sfedu.ru/www/stat_pages22.show?p=ABT/N8206/P",
			"selectors": map[string]any{
				"name":        "td.column0.style18.s",
				"free_places": []string{"td.column3.style10.n", "td.column7.style10.n"},
				"city":        "td.column11.style18.s",
			},
		},
		{
			"name": "Магистратура",
			"url":  "https://sfedu.ru/www/stat_pages22.show?p=ABT/N8207/P",
			"selectors": map[string]any{
				"name":        "td.column0.style8.s",
				"free_places": []string{"td.column3.style9.n", "td.column5.style11.n"},
				"city":        "td.column8.style8.s",
			},
		},
		{
			"name": "Аспирантура",
			"url":  "https://sfedu.ru/www/stat_pages22.show?p=ABT/N8210/P",
			"selectors": map[string]any{
				"name":        "td.column0.style1.s",
				"free_places": []string{"td.column3.style3.n", "td.column5.style4.n"},
				"city":        "td.column8.style2.s",
			},
		},
		{
			"name": "СПО",
			"url":  "https://sfedu.ru/www/stat_pages22.show?p=ABT/N8209/P",
			"selectors": map[string]any{
				"name":        "td.column1.style4.s",
				"free_places": []string{"td.column4.style5.n", "td.column5.style5.n"},
				"city":        "td.column8.style5.s",
			},
		},
	})

	// Sink defaults
	viper.SetDefault("sink.forward_timeout", 10*time.Second)

	// Dialog store defaults
	viper.SetDefault("dialog.file", "dialog_history.json")
	viper.SetDefault("dialog.max_history", 100)

	// Assistant backend defaults
	viper.SetDefault("assistant.api_url", "https://api.openai.com/v1")
	viper.SetDefault("assistant.model", "gpt-4")
	viper.SetDefault("assistant.max_tokens", 200)
	viper.SetDefault("assistant.temperature", 0.7)
	viper.SetDefault("assistant.timeout", 30*time.Second)
	viper.SetDefault("assistant.system_prompt",
		"Ты Умный ассистент Южного федерального университета. в твои задачи входит "+
			"полная поддержка студентов в процессе освоения. Отвечай кратко, но емко. "+
			"в твою базу знаний входит информация с открытых источников и материалы, "+
			"которые могут быть полезны студентам.")
}
