// Package sink persists ingested payloads to a JSON snapshot file and
// forwards them to the downstream ingestion endpoint.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sfedu-digital/campus-assistant/internal/logger"
)

// defaultForwardTimeout bounds the downstream POST so a slow endpoint
// cannot stall the polling loop.
const defaultForwardTimeout = 10 * time.Second

// fileMode is the permission for snapshot files.
const fileMode = 0o644

// Config holds sink configuration for one data source.
type Config struct {
	// FilePath is the fixed path of the JSON snapshot file.
	FilePath string
	// ForwardURL is the downstream ingestion endpoint. Empty disables forwarding.
	ForwardURL string
	// ForwardTimeout bounds the forward POST.
	ForwardTimeout time.Duration
}

// WithDefaults returns a copy of the config with default values applied
// for zero-value fields.
func (c Config) WithDefaults() Config {
	if c.ForwardTimeout <= 0 {
		c.ForwardTimeout = defaultForwardTimeout
	}
	return c
}

// Sink writes snapshots locally and forwards them downstream.
// Local persistence is the durability guarantee; forwarding is best-effort.
type Sink struct {
	cfg    Config
	client *http.Client
	log    logger.Interface
}

// New creates a new sink.
func New(cfg Config, log logger.Interface) *Sink {
	cfg = cfg.WithDefaults()
	return &Sink{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.ForwardTimeout},
		log:    log,
	}
}

// Persist serializes payload to the snapshot file, fully overwriting prior
// content. Identical payloads produce byte-identical files.
func (s *Sink) Persist(payload any) error {
	data, err := marshalStable(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// Write through a temp file so a crash mid-write never leaves a
	// truncated snapshot behind.
	dir := filepath.Dir(s.cfg.FilePath)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.cfg.FilePath)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, writeErr := tmp.Write(data); writeErr != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", closeErr)
	}
	if chmodErr := os.Chmod(tmp.Name(), fileMode); chmodErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod snapshot: %w", chmodErr)
	}
	if renameErr := os.Rename(tmp.Name(), s.cfg.FilePath); renameErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot: %w", renameErr)
	}

	return nil
}

// Forward POSTs payload to the downstream endpoint with a bounded timeout.
// A non-2xx response is an error.
func (s *Sink) Forward(ctx context.Context, payload any) error {
	if s.cfg.ForwardURL == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ForwardURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("forward to %s: %w", s.cfg.ForwardURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("forward to %s: unexpected status %d", s.cfg.ForwardURL, resp.StatusCode)
	}

	return nil
}

// PersistAndForward writes the snapshot file, then forwards the payload.
// The two steps fail independently: a persist failure is returned, a forward
// failure is logged and swallowed because the local write already succeeded.
func (s *Sink) PersistAndForward(ctx context.Context, payload any) error {
	if err := s.Persist(payload); err != nil {
		return err
	}

	if err := s.Forward(ctx, payload); err != nil {
		s.log.Warn("Forward failed, snapshot persisted locally",
			"url", s.cfg.ForwardURL,
			"error", err.Error(),
		)
	}

	return nil
}

// FilePath returns the snapshot file path.
func (s *Sink) FilePath() string {
	return s.cfg.FilePath
}

// marshalStable encodes payload with four-space indentation and HTML
// escaping off, matching the snapshot file format. Encoding is
// deterministic: struct fields keep declaration order and map keys sort.
func marshalStable(payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
