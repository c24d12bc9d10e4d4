package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrUnavailable is returned when Ollama or its model cannot be reached.
var ErrUnavailable = errors.New("ollama not available")

// OllamaConfig configures the Ollama client.
type OllamaConfig struct {
	// BaseURL is the Ollama API endpoint.
	BaseURL string

	// Model is the model name to use.
	Model string

	// RequestTimeout is the timeout for status requests.
	RequestTimeout time.Duration

	// InferenceTimeout is the timeout for generation requests.
	InferenceTimeout time.Duration

	// RecheckInterval is how long an unavailable status is trusted before
	// the next request checks again.
	RecheckInterval time.Duration
}

// DefaultOllamaConfig returns sensible defaults.
func DefaultOllamaConfig() *OllamaConfig {
	return &OllamaConfig{
		BaseURL:          "http://localhost:11434",
		Model:            "qwen3:8b",
		RequestTimeout:   30 * time.Second,
		InferenceTimeout: 120 * time.Second,
		RecheckInterval:  time.Minute,
	}
}

// OllamaClient provides access to the Ollama API.
type OllamaClient struct {
	config     *OllamaConfig
	httpClient *http.Client
	available  bool
	modelReady bool
	lastCheck  time.Time
	lastError  string
	mu         sync.RWMutex
}

// OllamaStatus represents the status of Ollama.
type OllamaStatus struct {
	Available    bool     `json:"available"`
	Version      string   `json:"version,omitempty"`
	ModelReady   bool     `json:"model_ready"`
	ModelName    string   `json:"model_name"`
	ModelsLoaded []string `json:"models_loaded,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// GenerateRequest is the request body for generation. Model is filled in by
// the client.
type GenerateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	System  string           `json:"system,omitempty"`
	Format  string           `json:"format,omitempty"` // "json" constrains output to JSON
	Stream  bool             `json:"stream"`
	Options *GenerateOptions `json:"options,omitempty"`
}

// GenerateOptions are optional parameters for generation.
type GenerateOptions struct {
	Temperature float64  `json:"temperature,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// GenerateResponse is the response from generation.
type GenerateResponse struct {
	Model         string `json:"model"`
	CreatedAt     string `json:"created_at"`
	Response      string `json:"response"`
	Done          bool   `json:"done"`
	TotalDuration int64  `json:"total_duration,omitempty"`
	EvalCount     int    `json:"eval_count,omitempty"`
}

// VersionResponse is the response from the version endpoint.
type VersionResponse struct {
	Version string `json:"version"`
}

// ListModelsResponse is the response from listing models.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelInfo describes a model.
type ModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(config *OllamaConfig) *OllamaClient {
	if config == nil {
		config = DefaultOllamaConfig()
	}

	return &OllamaClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}
}

// CheckAvailability checks if Ollama is running and the model is installed.
func (c *OllamaClient) CheckAvailability(ctx context.Context) *OllamaStatus {
	status := &OllamaStatus{
		ModelName: c.config.Model,
	}

	version, err := c.getVersion(ctx)
	if err != nil {
		status.Error = fmt.Sprintf("Ollama not available: %v", err)
		c.setAvailability(false, false, status.Error)
		return status
	}

	status.Available = true
	status.Version = version

	models, err := c.listModels(ctx)
	if err != nil {
		status.Error = fmt.Sprintf("Failed to list models: %v", err)
		c.setAvailability(true, false, status.Error)
		return status
	}

	status.ModelsLoaded = make([]string, 0, len(models))
	for _, m := range models {
		status.ModelsLoaded = append(status.ModelsLoaded, m.Name)
		if modelMatches(m.Name, c.config.Model) {
			status.ModelReady = true
		}
	}
	if !status.ModelReady {
		status.Error = fmt.Sprintf("Model %s not installed", c.config.Model)
	}

	c.setAvailability(status.Available, status.ModelReady, status.Error)
	return status
}

// modelMatches reports whether an installed model satisfies the configured
// name. "qwen3" matches any tag, "qwen3:8b" only that tag.
func modelMatches(installed, want string) bool {
	if installed == want {
		return true
	}
	if !strings.Contains(want, ":") {
		return strings.HasPrefix(installed, want+":")
	}
	return false
}

// IsAvailable returns whether Ollama is currently available.
func (c *OllamaClient) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available && c.modelReady
}

// ensureAvailable rechecks the server unless a recent check already failed.
func (c *OllamaClient) ensureAvailable(ctx context.Context) error {
	if c.IsAvailable() {
		return nil
	}

	c.mu.RLock()
	recent := !c.lastCheck.IsZero() && time.Since(c.lastCheck) < c.config.RecheckInterval
	lastError := c.lastError
	c.mu.RUnlock()
	if recent {
		return fmt.Errorf("%w: %s", ErrUnavailable, lastError)
	}

	status := c.CheckAvailability(ctx)
	if !status.Available || !status.ModelReady {
		return fmt.Errorf("%w: %s", ErrUnavailable, status.Error)
	}
	return nil
}

// Generate runs a non-streaming generation with the configured model.
func (c *OllamaClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if err := c.ensureAvailable(ctx); err != nil {
		return nil, err
	}

	body := *req
	body.Model = c.config.Model
	body.Stream = false

	return c.doGenerate(ctx, &body)
}

// doGenerate performs the generate API call.
func (c *OllamaClient) doGenerate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	url := c.config.BaseURL + "/api/generate"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// Generation gets the longer inference timeout
	client := &http.Client{Timeout: c.config.InferenceTimeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("generate failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var genResp GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &genResp, nil
}

// getVersion gets the Ollama version.
func (c *OllamaClient) getVersion(ctx context.Context) (string, error) {
	var version VersionResponse
	if err := c.getJSON(ctx, "/api/version", &version); err != nil {
		return "", err
	}
	return version.Version, nil
}

// listModels lists installed models.
func (c *OllamaClient) listModels(ctx context.Context) ([]ModelInfo, error) {
	var models ListModelsResponse
	if err := c.getJSON(ctx, "/api/tags", &models); err != nil {
		return nil, err
	}
	return models.Models, nil
}

func (c *OllamaClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s failed with status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// setAvailability updates the availability status.
func (c *OllamaClient) setAvailability(available, modelReady bool, lastError string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available = available
	c.modelReady = modelReady
	c.lastError = lastError
	c.lastCheck = time.Now()
}

// GetModel returns the configured model name.
func (c *OllamaClient) GetModel() string {
	return c.config.Model
}
