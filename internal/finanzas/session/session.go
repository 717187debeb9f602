// Package session loads and persists the user's chat history, rate-limit
// counter and settings, one store key per value.
package session

import (
	"time"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/ratelimit"
)

// Store keys. Each value is persisted under its own key.
const (
	KeyLanguage             = "language"
	KeyTheme                = "theme"
	KeyChatHistory          = "chatHistory"
	KeyVoiceRate            = "voiceRate"
	KeyVoicePitch           = "voicePitch"
	KeyVoiceVolume          = "voiceVolume"
	KeyAPIKeyOverride       = "apiKeyOverride"
	KeyRateLimitCount       = "rateLimitCount"
	KeyRateLimitWindowStart = "rateLimitWindowStart"
)

// Keys lists every key the session reads or writes.
var Keys = []string{
	KeyLanguage, KeyTheme, KeyChatHistory,
	KeyVoiceRate, KeyVoicePitch, KeyVoiceVolume,
	KeyAPIKeyOverride, KeyRateLimitCount, KeyRateLimitWindowStart,
}

// State is the complete persisted session.
type State struct {
	Language       finanzas.Language
	Theme          finanzas.Theme
	Voice          finanzas.Voice
	APIKeyOverride string
	History        []finanzas.Message
	RateLimit      ratelimit.State
}

// DefaultState returns the state used when nothing has been saved yet.
func DefaultState() State {
	return State{
		Language: finanzas.English,
		Theme:    finanzas.Light,
		Voice:    finanzas.DefaultVoice(),
	}
}

// Settings is the user-editable subset of State.
type Settings struct {
	Language       finanzas.Language `json:"language"`
	Theme          finanzas.Theme    `json:"theme"`
	Voice          finanzas.Voice    `json:"voice"`
	APIKeyOverride string            `json:"apiKeyOverride,omitempty"`
}

// Settings returns the user-editable subset of the state.
func (s State) Settings() Settings {
	return Settings{
		Language:       s.Language,
		Theme:          s.Theme,
		Voice:          s.Voice,
		APIKeyOverride: s.APIKeyOverride,
	}
}

// unixMillis matches the epoch-millisecond encoding of window starts.
func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
