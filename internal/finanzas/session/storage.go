package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/history"
	"github.com/longkey1/finanzas/internal/finanzas/ratelimit"
	"github.com/longkey1/finanzas/internal/finanzas/store"
)

// GetDataDir returns the directory where session state is stored.
// If a config file is used, state lives next to it.
// Otherwise, defaults to $HOME/.config/finanzas.
func GetDataDir(configFile string) (string, error) {
	if configFile != "" {
		configDir := filepath.Dir(configFile)

		if !filepath.IsAbs(configDir) {
			cwd, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("failed to get current working directory: %w", err)
			}
			configDir = filepath.Join(cwd, configDir)
		}
		return configDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "finanzas"), nil
}

// Session reads and writes State through a Store.
type Session struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a session over st.
func New(st store.Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{store: st, logger: logger.With("component", "session")}
}

// Load reads every key. Missing keys yield defaults. Corrupt values are
// logged and replaced by defaults. Only backend failures are returned.
func (s *Session) Load(ctx context.Context) (State, error) {
	state := DefaultState()

	get := func(key string) (string, bool, error) {
		v, err := s.store.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("failed to load %s: %w", key, err)
		}
		return v, true, nil
	}

	if v, ok, err := get(KeyLanguage); err != nil {
		return state, err
	} else if ok {
		if lang, err := finanzas.ParseLanguage(v); err == nil {
			state.Language = lang
		} else {
			s.logger.Warn("ignoring stored language", "value", v, "error", err)
		}
	}

	if v, ok, err := get(KeyTheme); err != nil {
		return state, err
	} else if ok {
		if theme, err := finanzas.ParseTheme(v); err == nil {
			state.Theme = theme
		} else {
			s.logger.Warn("ignoring stored theme", "value", v, "error", err)
		}
	}

	for _, f := range []struct {
		key string
		dst *float64
	}{
		{KeyVoiceRate, &state.Voice.Rate},
		{KeyVoicePitch, &state.Voice.Pitch},
		{KeyVoiceVolume, &state.Voice.Volume},
	} {
		v, ok, err := get(f.key)
		if err != nil {
			return state, err
		}
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.logger.Warn("ignoring stored voice setting", "key", f.key, "value", v, "error", err)
			continue
		}
		*f.dst = n
	}

	if v, ok, err := get(KeyAPIKeyOverride); err != nil {
		return state, err
	} else if ok {
		state.APIKeyOverride = v
	}

	if v, ok, err := get(KeyChatHistory); err != nil {
		return state, err
	} else if ok {
		var msgs []finanzas.Message
		if err := json.Unmarshal([]byte(v), &msgs); err != nil {
			s.logger.Warn("discarding corrupt chat history", "error", err)
		} else {
			state.History = history.New(msgs).Messages()
		}
	}

	var rl ratelimit.State
	if v, ok, err := get(KeyRateLimitCount); err != nil {
		return state, err
	} else if ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.logger.Warn("ignoring stored rate limit count", "value", v)
		} else {
			rl.Count = n
		}
	}
	if v, ok, err := get(KeyRateLimitWindowStart); err != nil {
		return state, err
	} else if ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.logger.Warn("ignoring stored rate limit window", "value", v, "error", err)
			rl.Count = 0
		} else {
			rl.WindowStart = fromUnixMillis(ms)
		}
	}
	state.RateLimit = rl

	return state, nil
}

// SaveLanguage persists the language.
func (s *Session) SaveLanguage(ctx context.Context, lang finanzas.Language) error {
	return s.set(ctx, KeyLanguage, string(lang))
}

// SaveTheme persists the theme.
func (s *Session) SaveTheme(ctx context.Context, theme finanzas.Theme) error {
	return s.set(ctx, KeyTheme, string(theme))
}

// SaveVoice persists rate, pitch and volume under their own keys.
func (s *Session) SaveVoice(ctx context.Context, v finanzas.Voice) error {
	format := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	if err := s.set(ctx, KeyVoiceRate, format(v.Rate)); err != nil {
		return err
	}
	if err := s.set(ctx, KeyVoicePitch, format(v.Pitch)); err != nil {
		return err
	}
	return s.set(ctx, KeyVoiceVolume, format(v.Volume))
}

// SaveAPIKeyOverride persists the key override. An empty key removes it.
func (s *Session) SaveAPIKeyOverride(ctx context.Context, key string) error {
	if key == "" {
		return s.delete(ctx, KeyAPIKeyOverride)
	}
	return s.set(ctx, KeyAPIKeyOverride, key)
}

// SaveHistory persists the full history as a JSON array.
func (s *Session) SaveHistory(ctx context.Context, msgs []finanzas.Message) error {
	if msgs == nil {
		msgs = []finanzas.Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("failed to marshal chat history: %w", err)
	}
	return s.set(ctx, KeyChatHistory, string(data))
}

// ClearHistory removes the stored history.
func (s *Session) ClearHistory(ctx context.Context) error {
	return s.delete(ctx, KeyChatHistory)
}

// SaveRateLimit persists the rate-limit counter and window start.
func (s *Session) SaveRateLimit(ctx context.Context, rl ratelimit.State) error {
	if err := s.set(ctx, KeyRateLimitCount, strconv.Itoa(rl.Count)); err != nil {
		return err
	}
	return s.set(ctx, KeyRateLimitWindowStart, strconv.FormatInt(unixMillis(rl.WindowStart), 10))
}

func (s *Session) set(ctx context.Context, key, value string) error {
	if err := s.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *Session) delete(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
