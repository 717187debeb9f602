package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/prompt"
)

const (
	ProviderName   = "gemini"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"

	// placeholderKey is the unconfigured key shipped in sample deployments.
	placeholderKey = "YOUR_GEMINI_API_KEY_HERE"
)

var (
	// ErrMissingAPIKey is returned when neither a configured token nor an
	// override key is available.
	ErrMissingAPIKey = errors.New("gemini API key is not configured")
	// ErrUpstreamRateLimited is returned for HTTP 429.
	ErrUpstreamRateLimited = errors.New("gemini API rate limit exceeded")
	// ErrMalformedResponse is returned when the reply carries no text.
	ErrMalformedResponse = errors.New("malformed gemini response")
)

// APIError is returned for non-2xx responses other than 429.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API error (HTTP %d): %s", e.StatusCode, e.Body)
}

// Supported models for Gemini (fallback list)
var supportedModels = []finanzas.ModelInfo{
	{ID: "gemini-2.0-flash", Description: "Fast and efficient Gemini 2.0", IsDefault: true},
	{ID: "gemini-2.0-flash-lite", Description: "Cost efficient Gemini 2.0", IsDefault: false},
	{ID: "gemini-1.5-pro", Description: "Previous generation pro model", IsDefault: false},
	{ID: "gemini-1.5-flash", Description: "Previous generation flash model", IsDefault: false},
}

// SupportedModels returns the built-in model list used when the API cannot be queried.
func SupportedModels() []finanzas.ModelInfo {
	return append([]finanzas.ModelInfo(nil), supportedModels...)
}

// ModelsAPIResponse represents the response from Gemini's models endpoint
type ModelsAPIResponse struct {
	Models []GeminiModelData `json:"models"`
}

// GeminiModelData represents a single model in the API response
type GeminiModelData struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	Description                string   `json:"description"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// GeminiRequest represents the request body for Gemini's generate content API
type GeminiRequest struct {
	Contents         []GeminiContent  `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// GeminiContent represents a content item in the Gemini request format
type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart represents a part of the content in the Gemini request format
type GeminiPart struct {
	Text string `json:"text"`
}

// GenerationConfig holds the sampling parameters
type GenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float32 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// DefaultGenerationConfig returns temperature 0.7, topK 40, topP 0.95 and 1024 output tokens
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{Temperature: 0.7, TopK: 40, TopP: 0.95, MaxOutputTokens: 1024}
}

// GeminiResponse represents the full response from Gemini API
type GeminiResponse struct {
	Candidates []GeminiCandidate `json:"candidates"`
}

// GeminiCandidate represents a candidate response
type GeminiCandidate struct {
	Content GeminiResponseContent `json:"content"`
}

// GeminiResponseContent represents the content of a response
type GeminiResponseContent struct {
	Parts []GeminiPart `json:"parts"`
}

// Options configures the provider
type Options struct {
	Model      string // Model name without provider prefix
	BaseURL    string
	Token      string // Configured API key, may be empty when users supply an override
	Generation GenerationConfig
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Provider implements the finanzas.Provider interface for Gemini
type Provider struct {
	model      string
	baseURL    string
	token      string
	generation GenerationConfig
	client     *http.Client
	logger     *slog.Logger
}

// NewProvider creates a new Gemini provider instance
func NewProvider(opts Options) *Provider {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Generation == (GenerationConfig{}) {
		opts.Generation = DefaultGenerationConfig()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Provider{
		model:      opts.Model,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.Token,
		generation: opts.Generation,
		client:     opts.HTTPClient,
		logger:     opts.Logger.With("component", "gemini"),
	}
}

// Name implements finanzas.Provider
func (p *Provider) Name() string { return ProviderName }

// apiKey picks the override key when present, else the configured token
func (p *Provider) apiKey(override string) (string, error) {
	key := strings.TrimSpace(override)
	if key == "" {
		key = p.token
	}
	if key == "" || key == placeholderKey {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// Reply sends the preamble and question as a single text part and returns
// the first candidate's first part
func (p *Provider) Reply(ctx context.Context, r finanzas.Request) (string, error) {
	key, err := p.apiKey(r.APIKey)
	if err != nil {
		return "", err
	}

	reqBody := GeminiRequest{
		Contents: []GeminiContent{
			{Parts: []GeminiPart{{Text: prompt.Compose(r.System, r.Text)}}},
		},
		GenerationConfig: p.generation,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, url.PathEscape(p.model), url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := p.do(req)
	if err != nil {
		return "", err
	}

	var result GeminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}
	parts := result.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return "", fmt.Errorf("%w: no text part", ErrMalformedResponse)
	}
	return parts[0].Text, nil
}

// ListModels returns the models supporting generateContent, sorted by ID descending
func (p *Provider) ListModels(ctx context.Context) ([]finanzas.ModelInfo, error) {
	key, err := p.apiKey("")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models?key="+url.QueryEscape(key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := p.do(req)
	if err != nil {
		return nil, err
	}

	var result ModelsAPIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	models := make([]finanzas.ModelInfo, 0, len(result.Models))
	for _, model := range result.Models {
		if !contains(model.SupportedGenerationMethods, "generateContent") {
			continue
		}
		id := strings.TrimPrefix(model.Name, "models/")
		description := model.Description
		if description == "" {
			description = model.DisplayName
		}
		models = append(models, finanzas.ModelInfo{
			ID:          id,
			Description: description,
			IsDefault:   id == DefaultModel,
		})
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].ID > models[j].ID
	})
	return models, nil
}

// do sends req and returns the body of a 2xx response
func (p *Provider) do(req *http.Request) ([]byte, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	p.logger.Debug("gemini response", "status", resp.StatusCode, "bytes", len(body))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrUpstreamRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// contains checks if a string slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
