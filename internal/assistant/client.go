// Package assistant calls the chat-completion backend that answers
// student questions.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default configuration values.
const (
	defaultAPIURL      = "https://api.openai.com/v1"
	defaultModel       = "gpt-4"
	defaultMaxTokens   = 200
	defaultTemperature = 0.7
	defaultTimeout     = 30 * time.Second
)

// Completer produces a reply for a prompt. Implemented by Client; mocked
// in handler tests.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Config holds chat-completion client configuration.
type Config struct {
	APIURL      string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// WithDefaults returns a copy of the config with default values applied
// for zero-value fields.
func (c Config) WithDefaults() Config {
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = defaultTemperature
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// message is one chat message in the completion request.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a chat-completions client over the OpenAI-compatible HTTP API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a chat-completion client with a bounded request timeout.
func NewClient(cfg Config) *Client {
	cfg = cfg.WithDefaults()
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Complete sends the system instruction and user prompt to the backend and
// returns the reply text.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	reqBody := map[string]any{
		"model": c.cfg.Model,
		"messages": []message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.APIURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// BuildPrompt assembles the user prompt from the rendered dialog context
// and the new question.
func BuildPrompt(context, question string) string {
	return fmt.Sprintf(
		"Контекст предыдущих сообщений:\n%s\nВопрос пользователя: %s",
		context, question,
	)
}
