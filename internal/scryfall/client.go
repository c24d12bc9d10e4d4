// Package scryfall fetches card data from the Scryfall API for the card
// database. It is only used by the import command; deck building never
// touches the network.
package scryfall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ramonehamilton/deckforge/internal/mtga/cards"
)

// MaxBatchSize is the largest identifier list /cards/collection accepts.
const MaxBatchSize = 75

// Config holds client settings.
type Config struct {
	BaseURL        string
	UserAgent      string
	RequestTimeout time.Duration
	RequestsPerSec float64 // Scryfall asks for at most 10
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns the settings for the public API.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://api.scryfall.com",
		UserAgent:      "deckforge/1.0",
		RequestTimeout: 30 * time.Second,
		RequestsPerSec: 10,
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     16 * time.Second,
	}
}

// NotFoundError is returned for a 404 response.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.URL)
}

// APIError is the error object Scryfall returns with non-2xx responses.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Details string `json:"details"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scryfall %d %s: %s", e.Status, e.Code, e.Details)
}

// Client is a rate-limited Scryfall client. It is safe for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client. A nil config uses DefaultConfig.
func NewClient(config *Config, opts ...Option) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	limit := rate.Limit(config.RequestsPerSec)
	if config.RequestsPerSec <= 0 {
		limit = rate.Inf
	}

	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cardIdentifier struct {
	Name string `json:"name"`
}

type collectionRequest struct {
	Identifiers []cardIdentifier `json:"identifiers"`
}

type collectionResponse struct {
	NotFound []cardIdentifier     `json:"not_found"`
	Data     []cards.ScryfallCard `json:"data"`
}

// CardsByName looks up cards by exact name through /cards/collection,
// batching MaxBatchSize names per request. Names Scryfall does not know are
// returned in notFound.
func (c *Client) CardsByName(ctx context.Context, names []string) (found []*cards.Card, notFound []string, err error) {
	for start := 0; start < len(names); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(names))

		body := collectionRequest{Identifiers: make([]cardIdentifier, 0, end-start)}
		for _, name := range names[start:end] {
			body.Identifiers = append(body.Identifiers, cardIdentifier{Name: name})
		}

		var resp collectionResponse
		if err := c.doJSON(ctx, http.MethodPost, "/cards/collection", body, &resp); err != nil {
			return nil, nil, fmt.Errorf("fetch batch %d-%d: %w", start, end, err)
		}
		for i := range resp.Data {
			found = append(found, resp.Data[i].ToCard())
		}
		for _, id := range resp.NotFound {
			notFound = append(notFound, id.Name)
		}
	}
	return found, notFound, nil
}

// BulkData describes one downloadable bulk file.
type BulkData struct {
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	DownloadURI string    `json:"download_uri"`
	UpdatedAt   time.Time `json:"updated_at"`
	Size        int64     `json:"size"`
}

type bulkDataList struct {
	Data []BulkData `json:"data"`
}

// BulkDataByType returns the bulk file of the given type, e.g. "oracle_cards".
func (c *Client) BulkDataByType(ctx context.Context, kind string) (*BulkData, error) {
	var list bulkDataList
	if err := c.doJSON(ctx, http.MethodGet, "/bulk-data", nil, &list); err != nil {
		return nil, fmt.Errorf("list bulk data: %w", err)
	}
	for i := range list.Data {
		if list.Data[i].Type == kind {
			return &list.Data[i], nil
		}
	}
	return nil, fmt.Errorf("no bulk data of type %q", kind)
}

// DownloadBulk streams a bulk JSON file and decodes it into cards.
func (c *Client) DownloadBulk(ctx context.Context, uri string) ([]*cards.Card, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	// Bulk files are large; the request timeout does not apply to them
	download := *c.httpClient
	download.Timeout = 0

	resp, err := download.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download bulk data: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download bulk data: status %d", resp.StatusCode)
	}

	start := time.Now()
	loaded, err := cards.LoadScryfallJSON(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Downloaded bulk data",
		zap.Int("cards", len(loaded)),
		zap.Duration("took", time.Since(start)))
	return loaded, nil
}

// doJSON sends a request with rate limiting, retrying network errors, 429s
// and 5xx responses with exponential backoff.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + path
	backoff := c.config.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = min(backoff*2, c.config.MaxBackoff)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for rate limit: %w", err)
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		retry, wait, err := c.handleResponse(resp, url, out)
		if !retry {
			return err
		}
		lastErr = err
		if wait > backoff {
			backoff = wait
		}
		c.logger.Debug("Retrying Scryfall request",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// handleResponse decodes a response. retry reports whether the request may
// be repeated, and wait is the server's Retry-After hint.
func (c *Client) handleResponse(resp *http.Response, url string, out any) (retry bool, wait time.Duration, err error) {
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, 0, fmt.Errorf("parse response: %w", err)
		}
		return false, 0, nil

	case resp.StatusCode == http.StatusNotFound:
		return false, 0, &NotFoundError{URL: url}

	case resp.StatusCode == http.StatusTooManyRequests:
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			wait = time.Duration(seconds) * time.Second
		}
		return true, wait, fmt.Errorf("rate limited (HTTP 429)")

	case resp.StatusCode >= 500:
		return true, 0, fmt.Errorf("server error (HTTP %d)", resp.StatusCode)
	}

	data, _ := io.ReadAll(resp.Body)
	var apiErr APIError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Details != "" {
		return false, 0, &apiErr
	}
	return false, 0, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(data))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
