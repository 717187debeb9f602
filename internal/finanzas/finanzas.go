// Package finanzas provides the core abstractions shared by the chat pipeline,
// the reply providers (gemini, ark, canned) and the front ends.
package finanzas

import (
	"context"
	"fmt"
	"strings"
)

// ModelInfo represents information about an available model from a provider.
type ModelInfo struct {
	ID          string // Model identifier (e.g., "gemini-2.0-flash")
	Description string // Human-readable description of the model
	IsDefault   bool   // Whether this is the default model for the provider
}

// Request carries everything a provider needs to produce one reply.
type Request struct {
	Language Language // Reply language
	System   string   // Fixed system preamble, already localized
	Text     string   // The user's question
	APIKey   string   // Per-session key override; empty means use the configured token
}

// Provider defines the interface for reply providers.
// Implementations: gemini (hosted completion API), ark (Volcengine via eino), canned (offline).
//
// Example usage:
//
//	provider := gemini.NewProvider(cfg)
//	reply, err := provider.Reply(ctx, finanzas.Request{Language: finanzas.English, Text: "What is a SIP?"})
type Provider interface {
	// Name returns the provider name used in model strings and metrics.
	Name() string

	// Reply returns the assistant text for the request.
	// It must honour ctx cancellation and deadlines.
	Reply(ctx context.Context, req Request) (string, error)
}

// ParseModelString parses a model string in "provider:model" format.
// Returns (provider, model, error).
//
// Example:
//
//	provider, model, err := ParseModelString("gemini:gemini-2.0-flash")
//	// provider = "gemini", model = "gemini-2.0-flash"
func ParseModelString(modelStr string) (string, string, error) {
	parts := strings.SplitN(modelStr, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid model format: %s (expected format: provider:model, e.g., gemini:gemini-2.0-flash)", modelStr)
	}

	provider := strings.TrimSpace(parts[0])
	model := strings.TrimSpace(parts[1])

	if provider == "" || model == "" {
		return "", "", fmt.Errorf("provider and model cannot be empty")
	}

	return provider, model, nil
}

// FormatModelString formats provider and model into "provider:model" format.
func FormatModelString(provider, model string) string {
	return fmt.Sprintf("%s:%s", provider, model)
}
