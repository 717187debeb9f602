package finanzas

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single entry of the chat history.
// Messages are never mutated after creation.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with the given time.
func NewMessage(role Role, content string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: at,
	}
}

// Language is the UI and reply language.
type Language string

const (
	English Language = "en"
	Hindi   Language = "hi"
)

// Languages lists every supported language.
var Languages = []Language{English, Hindi}

// ParseLanguage validates a language code.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case English, Hindi:
		return Language(s), nil
	default:
		return "", fmt.Errorf("unsupported language: %q (expected en or hi)", s)
	}
}

// DisplayName returns the English name of the language, used in the preamble.
func (l Language) DisplayName() string {
	if l == Hindi {
		return "Hindi"
	}
	return "English"
}

// Theme is the colour scheme preference.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case Light, Dark:
		return Theme(s), nil
	default:
		return "", fmt.Errorf("unsupported theme: %q (expected light or dark)", s)
	}
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Voice holds the speech synthesis parameters. Values are not range-checked.
type Voice struct {
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

// DefaultVoice returns unit rate, pitch and volume.
func DefaultVoice() Voice {
	return Voice{Rate: 1.0, Pitch: 1.0, Volume: 1.0}
}
