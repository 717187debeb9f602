// Package ark answers questions through a Volcengine Ark endpoint using the
// eino chat model abstraction.
package ark

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	arkmodel "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/longkey1/finanzas/internal/finanzas"
)

const (
	ProviderName   = "ark"
	DefaultBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	DefaultRegion  = "cn-beijing"
)

// ErrMissingAPIKey is returned when no API key is configured or supplied.
var ErrMissingAPIKey = errors.New("ark API key is not configured")

// Options configures the Ark chat model.
type Options struct {
	Model       string // Endpoint or model ID
	BaseURL     string
	Region      string
	APIKey      string
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// ModelFactory builds a chat model for an API key.
type ModelFactory func(ctx context.Context, apiKey string) (model.BaseChatModel, error)

// Provider implements finanzas.Provider on top of an eino chat model.
type Provider struct {
	apiKey   string
	newModel ModelFactory

	mu    sync.Mutex
	model model.BaseChatModel
}

// NewProvider returns a provider talking to Ark.
func NewProvider(opts Options) (*Provider, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("ark: model (endpoint ID) is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Region == "" {
		opts.Region = DefaultRegion
	}
	factory := func(ctx context.Context, apiKey string) (model.BaseChatModel, error) {
		cfg := &arkmodel.ChatModelConfig{
			BaseURL: opts.BaseURL,
			Region:  opts.Region,
			APIKey:  apiKey,
			Model:   opts.Model,
		}
		if opts.Temperature > 0 {
			temperature := opts.Temperature
			cfg.Temperature = &temperature
		}
		if opts.TopP > 0 {
			topP := opts.TopP
			cfg.TopP = &topP
		}
		if opts.MaxTokens > 0 {
			maxTokens := opts.MaxTokens
			cfg.MaxTokens = &maxTokens
		}
		return arkmodel.NewChatModel(ctx, cfg)
	}
	return NewProviderWithFactory(opts.APIKey, factory), nil
}

// NewProviderWithFactory returns a provider building its models with factory.
func NewProviderWithFactory(apiKey string, factory ModelFactory) *Provider {
	return &Provider{apiKey: apiKey, newModel: factory}
}

// Name implements finanzas.Provider.
func (p *Provider) Name() string { return ProviderName }

// Reply sends the preamble as the system message and the question as the user message.
func (p *Provider) Reply(ctx context.Context, req finanzas.Request) (string, error) {
	chatModel, err := p.modelFor(ctx, strings.TrimSpace(req.APIKey))
	if err != nil {
		return "", err
	}

	messages := []*schema.Message{}
	if req.System != "" {
		messages = append(messages, schema.SystemMessage(req.System))
	}
	messages = append(messages, schema.UserMessage(req.Text))

	resp, err := chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("ark generation failed: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", errors.New("ark returned an empty reply")
	}
	return resp.Content, nil
}

// modelFor returns the shared model, or a fresh one for an override key.
func (p *Provider) modelFor(ctx context.Context, override string) (model.BaseChatModel, error) {
	if override != "" {
		m, err := p.newModel(ctx, override)
		if err != nil {
			return nil, fmt.Errorf("failed to create ark chat model: %w", err)
		}
		return m, nil
	}
	if p.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model == nil {
		m, err := p.newModel(ctx, p.apiKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create ark chat model: %w", err)
		}
		p.model = m
	}
	return p.model, nil
}
