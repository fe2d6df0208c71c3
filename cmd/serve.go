package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sfedu-digital/campus-assistant/internal/api"
	"github.com/sfedu-digital/campus-assistant/internal/assistant"
	"github.com/sfedu-digital/campus-assistant/internal/dialog"
	"github.com/sfedu-digital/campus-assistant/internal/logger"
	"github.com/sfedu-digital/campus-assistant/internal/sink"
)

// === Constants ===

const (
	signalChannelBufferSize = 1
	errorChannelBufferSize  = 1
	defaultShutdownTimeout  = 30 * time.Second
)

// === Command ===

// newServeCommand creates the serve command running the assistant API.
func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant HTTP API",
		Long: `Run the assistant HTTP API: the student question endpoint backed by the
dialog history, plus the ingestion endpoints the crawler loops forward to.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe()
		},
	}
}

// runServe starts the HTTP server and runs until interrupted.
func runServe() error {
	// Phase 1: Load config and logger
	deps, err := newCommandDeps()
	if err != nil {
		return err
	}
	cfg, log := deps.Config, deps.Logger.WithComponent("serve")

	// Fail fast: the assistant endpoint is useless without a backend key.
	if validateErr := cfg.ValidateAssistant(); validateErr != nil {
		return validateErr
	}

	// Phase 2: Load dialog history
	store := dialog.NewStore(cfg.Dialog.File, cfg.Dialog.MaxHistory, log)
	if loadErr := store.Load(); loadErr != nil {
		return fmt.Errorf("load dialog history: %w", loadErr)
	}
	log.Info("Dialog history loaded", "path", cfg.Dialog.File)

	// Phase 3: Build handlers
	completer := assistant.NewClient(assistant.Config{
		APIURL:      cfg.Assistant.APIURL,
		APIKey:      cfg.Assistant.APIKey,
		Model:       cfg.Assistant.Model,
		MaxTokens:   cfg.Assistant.MaxTokens,
		Temperature: cfg.Assistant.Temperature,
		Timeout:     cfg.Assistant.Timeout,
	})
	assistantHandler := api.NewAssistantHandler(store, completer, cfg.Assistant.SystemPrompt, log)

	// The ingestion endpoints persist locally only; forwarding from here
	// would loop the payload back to this same server.
	newsWriter := sink.New(sink.Config{FilePath: cfg.News.File}, log)
	seatsWriter := sink.New(sink.Config{FilePath: cfg.Seats.File}, log)
	ingestHandler := api.NewIngestHandler(newsWriter, seatsWriter, log)

	// Phase 4: Start HTTP server
	server := api.StartHTTPServer(log, api.ServerConfig{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, assistantHandler, ingestHandler)

	errChan := make(chan error, errorChannelBufferSize)
	go func() {
		log.Info("Starting HTTP server", "address", cfg.Server.Address)
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	// Phase 5: Run until interrupted
	return runServerUntilInterrupt(log, server, errChan)
}

// === Shutdown ===

// runServerUntilInterrupt blocks until a shutdown signal or server error,
// then drains in-flight requests before returning.
func runServerUntilInterrupt(log logger.Interface, server *http.Server, errChan chan error) error {
	sigChan := make(chan os.Signal, signalChannelBufferSize)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("Server stopped gracefully")
	return nil
}
