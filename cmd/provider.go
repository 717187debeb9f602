package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/longkey1/finanzas/internal/ark"
	"github.com/longkey1/finanzas/internal/canned"
	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/config"
	"github.com/longkey1/finanzas/internal/gemini"
)

// newProvider creates a new provider instance based on the configuration.
// A missing token is not an error here: users may supply their own key
// through the API key override setting.
func newProvider(cfg *config.Config) (finanzas.Provider, error) {
	providerName, modelName, err := finanzas.ParseModelString(cfg.Model)
	if err != nil {
		return nil, err
	}

	switch providerName {
	case gemini.ProviderName:
		baseURL, err := cfg.GetBaseURL(providerName)
		if err != nil {
			return nil, err
		}
		timeout, _ := cfg.ReplyTimeout()
		return gemini.NewProvider(gemini.Options{
			Model:   modelName,
			BaseURL: baseURL,
			Token:   tokenOrEmpty(cfg, providerName),
			Generation: gemini.GenerationConfig{
				Temperature:     cfg.Temperature,
				TopK:            cfg.TopK,
				TopP:            cfg.TopP,
				MaxOutputTokens: cfg.MaxOutputTokens,
			},
			HTTPClient: &http.Client{Timeout: timeout + 5*time.Second},
			Logger:     logger,
		}), nil
	case ark.ProviderName:
		baseURL, err := cfg.GetBaseURL(providerName)
		if err != nil {
			return nil, err
		}
		return ark.NewProvider(ark.Options{
			Model:       modelName,
			BaseURL:     baseURL,
			Region:      cfg.ArkRegion,
			APIKey:      tokenOrEmpty(cfg, providerName),
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.MaxOutputTokens,
		})
	case canned.ProviderName:
		return canned.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}

func tokenOrEmpty(cfg *config.Config, provider string) string {
	token, err := cfg.GetToken(provider)
	if err != nil {
		logger.Debug("no configured token", "provider", provider, "error", err)
		return ""
	}
	return token
}
