package shortio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.short.io"

// Client defines the interface for interacting with Short.io API
type Client interface {
	CreateShortLink(ctx context.Context, originalURL string) (string, error)
}

type clientImpl struct {
	apiKey     string
	domain     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type ClientOptionFunc func(*clientImpl)

// WithBaseURL points the client at a different API host
func WithBaseURL(baseURL string) ClientOptionFunc {
	return func(c *clientImpl) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient specifies the HTTP client used for API calls
func WithHTTPClient(httpClient *http.Client) ClientOptionFunc {
	return func(c *clientImpl) {
		c.httpClient = httpClient
	}
}

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) ClientOptionFunc {
	return func(c *clientImpl) {
		c.logger = logger
	}
}

// NewClient creates a new Short.io client
func NewClient(apiKey, domain string, opts ...ClientOptionFunc) Client {
	c := &clientImpl{
		apiKey:     apiKey,
		domain:     domain,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return c
}

func (c *clientImpl) CreateShortLink(ctx context.Context, originalURL string) (string, error) {
	payload := map[string]any{
		"originalURL": originalURL,
		"domain":      c.domain,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error creating payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/links", bytes.NewBuffer(jsonPayload))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	// Add authentication headers
	req.Header.Add("Authorization", c.apiKey)
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error creating short link: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("error from Short.io API: status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		ShortURL string `json:"shortURL"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if response.ShortURL == "" {
		return "", fmt.Errorf("error from Short.io API: response has no shortURL")
	}

	c.logger.Debug(
		fmt.Sprintf("created short link: %s -> %s", originalURL, response.ShortURL),
		"component", "shortio",
	)
	return response.ShortURL, nil
}
