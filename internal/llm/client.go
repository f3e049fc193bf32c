// Package llm is a small client for a Messages-style LLM HTTP API.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultVersion   = "2023-06-01"
	DefaultMaxTokens = 8000
	DefaultTimeout   = 5 * time.Minute
)

// ErrMissingKey is returned by New when no API key is configured.
var ErrMissingKey = errors.New("llm: missing api key")

// ErrEmptyResponse is returned when the reply has no text block.
var ErrEmptyResponse = errors.New("llm: response has no text content")

// Config holds connection settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Version   string
	MaxTokens int
	Timeout   time.Duration
}

// Request is one single-turn completion.
type Request struct {
	System string
	User   string
	// MaxTokens overrides Config.MaxTokens when positive.
	MaxTokens int
}

// APIError is a non-2xx reply.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("llm: status %d: %s: %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("llm: status %d: %s", e.Status, e.Message)
}

// Client calls the messages endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// New validates cfg, fills defaults and returns a client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type body struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

// Complete sends one user message and returns the first text block of the reply.
func (c *Client) Complete(ctx context.Context, r Request) (string, error) {
	maxTokens := c.cfg.MaxTokens
	if r.MaxTokens > 0 {
		maxTokens = r.MaxTokens
	}
	payload, err := sonic.Marshal(body{
		Model:     c.cfg.Model,
		MaxTokens: maxTokens,
		System:    r.System,
		Messages:  []message{{Role: "user", Content: r.User}},
	})
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", c.cfg.Version)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if gjson.ValidBytes(raw) {
			apiErr.Type = gjson.GetBytes(raw, "error.type").String()
			apiErr.Message = gjson.GetBytes(raw, "error.message").String()
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return "", apiErr
	}

	text := gjson.GetBytes(raw, `content.#(type=="text").text`)
	if !text.Exists() {
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}
