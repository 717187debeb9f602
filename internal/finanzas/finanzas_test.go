package finanzas

import (
	"testing"
	"time"
)

func TestParseModelString(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{
			name:         "valid gemini model",
			input:        "gemini:gemini-2.0-flash",
			wantProvider: "gemini",
			wantModel:    "gemini-2.0-flash",
		},
		{
			name:         "canned responder",
			input:        "canned:default",
			wantProvider: "canned",
			wantModel:    "default",
		},
		{
			name:         "model with colon",
			input:        "ark:ep-2024:latest",
			wantProvider: "ark",
			wantModel:    "ep-2024:latest",
		},
		{
			name:         "with whitespace",
			input:        " gemini : gemini-1.5-flash ",
			wantProvider: "gemini",
			wantModel:    "gemini-1.5-flash",
		},
		{
			name:    "missing colon",
			input:   "gemini-2.0-flash",
			wantErr: true,
		},
		{
			name:    "empty provider",
			input:   ":gemini-2.0-flash",
			wantErr: true,
		},
		{
			name:    "empty model",
			input:   "gemini:",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, model, err := ParseModelString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseModelString() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if provider != tt.wantProvider {
				t.Errorf("ParseModelString() provider = %v, want %v", provider, tt.wantProvider)
			}
			if model != tt.wantModel {
				t.Errorf("ParseModelString() model = %v, want %v", model, tt.wantModel)
			}
		})
	}
}

func TestFormatModelString(t *testing.T) {
	if got := FormatModelString("gemini", "gemini-2.0-flash"); got != "gemini:gemini-2.0-flash" {
		t.Errorf("FormatModelString() = %q", got)
	}
}

func TestParseLanguage(t *testing.T) {
	for _, in := range []string{"en", "hi"} {
		if _, err := ParseLanguage(in); err != nil {
			t.Errorf("ParseLanguage(%q) unexpected error: %v", in, err)
		}
	}
	for _, in := range []string{"", "EN", "fr"} {
		if _, err := ParseLanguage(in); err == nil {
			t.Errorf("ParseLanguage(%q) expected error", in)
		}
	}
}

func TestThemeToggle(t *testing.T) {
	if Light.Toggle() != Dark || Dark.Toggle() != Light {
		t.Error("Toggle() should swap light and dark")
	}
	if _, err := ParseTheme("sepia"); err == nil {
		t.Error("ParseTheme(sepia) expected error")
	}
}

func TestNewMessage(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewMessage(RoleUser, "hello", at)
	if m.ID == "" {
		t.Error("NewMessage() should assign an ID")
	}
	if !m.Timestamp.Equal(at) || m.Role != RoleUser || m.Content != "hello" {
		t.Errorf("NewMessage() = %+v", m)
	}
}
