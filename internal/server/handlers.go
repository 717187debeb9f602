package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/chat"
	"github.com/longkey1/finanzas/internal/finanzas/i18n"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

type sendRequest struct {
	Text string `json:"text"`
}

type sendResponse struct {
	Message finanzas.Message `json:"message"`
	Error   string           `json:"error,omitempty"`
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs := s.pipeline.History()
	if msgs == nil {
		msgs = []finanzas.Message{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// A client that disconnects mid-reply must not turn the reply into an error message
	msg, err := s.pipeline.SendUserMessage(context.WithoutCancel(r.Context()), req.Text)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, sendResponse{Message: msg})
	case errors.Is(err, chat.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrBusy):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, chat.ErrRateLimited):
		status := s.pipeline.RateLimitStatus()
		retry := int(time.Until(status.ResetAt).Round(time.Second).Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		respondError(w, http.StatusTooManyRequests, s.pipeline.T(i18n.ErrorRateLimit))
	case errors.Is(err, chat.ErrReplyFailed):
		s.logger.Warn("reply failed", "error", err)
		respondJSON(w, http.StatusBadGateway, sendResponse{Message: msg, Error: err.Error()})
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	s.pipeline.ClearHistory(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"messages": s.pipeline.History()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.pipeline.Export(&buf); err != nil {
		respondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.pipeline.ExportFilename()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type settingsResponse struct {
	Language      finanzas.Language `json:"language"`
	Theme         finanzas.Theme    `json:"theme"`
	Voice         finanzas.Voice    `json:"voice"`
	HasAPIKey     bool              `json:"hasApiKeyOverride"`
	Speak         bool              `json:"speak"`
	Provider      string            `json:"provider"`
	SpeechCapable bool              `json:"speechRecognition"`
}

func (s *Server) settings() settingsResponse {
	st := s.pipeline.Settings()
	return settingsResponse{
		Language:      st.Language,
		Theme:         st.Theme,
		Voice:         st.Voice,
		HasAPIKey:     st.APIKeyOverride != "",
		Speak:         s.pipeline.Speaking(),
		Provider:      s.pipeline.ProviderName(),
		SpeechCapable: s.recognition.Supported(),
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.settings())
}

// settingsPatch carries optional fields; absent fields are left unchanged.
type settingsPatch struct {
	Language       *finanzas.Language `json:"language"`
	Theme          *finanzas.Theme    `json:"theme"`
	Voice          *voicePatch        `json:"voice"`
	APIKeyOverride *string            `json:"apiKeyOverride"`
	Speak          *bool              `json:"speak"`
}

type voicePatch struct {
	Rate   *float64 `json:"rate"`
	Pitch  *float64 `json:"pitch"`
	Volume *float64 `json:"volume"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	if patch.Language != nil {
		if err := s.pipeline.SetLanguage(ctx, *patch.Language); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if patch.Theme != nil {
		if err := s.pipeline.SetTheme(ctx, *patch.Theme); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if patch.Voice != nil {
		v := s.pipeline.Settings().Voice
		if patch.Voice.Rate != nil {
			v.Rate = *patch.Voice.Rate
		}
		if patch.Voice.Pitch != nil {
			v.Pitch = *patch.Voice.Pitch
		}
		if patch.Voice.Volume != nil {
			v.Volume = *patch.Voice.Volume
		}
		s.pipeline.SetVoice(ctx, v)
	}
	if patch.APIKeyOverride != nil {
		s.pipeline.SetAPIKeyOverride(ctx, *patch.APIKeyOverride)
	}
	if patch.Speak != nil {
		s.pipeline.SetSpeak(*patch.Speak)
	}

	respondJSON(w, http.StatusOK, s.settings())
}

func (s *Server) handleQuickReplies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"language":     s.pipeline.Language(),
		"quickReplies": s.pipeline.QuickReplies(),
	})
}

// requestLanguage picks ?lang, then Accept-Language, then the saved setting.
func (s *Server) requestLanguage(r *http.Request) (finanzas.Language, error) {
	if q := r.URL.Query().Get("lang"); q != "" {
		return finanzas.ParseLanguage(q)
	}
	if al := r.Header.Get("Accept-Language"); al != "" {
		return i18n.Negotiate(al), nil
	}
	return s.pipeline.Language(), nil
}

func (s *Server) handleTranslations(w http.ResponseWriter, r *http.Request) {
	lang, err := s.requestLanguage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"language":     lang,
		"locale":       i18n.Locale(lang).String(),
		"translations": i18n.Table(lang),
		"quickReplies": i18n.QuickReplies(lang),
	})
}

type rateLimitResponse struct {
	Limit         int       `json:"limit"`
	Remaining     int       `json:"remaining"`
	WindowSeconds float64   `json:"windowSeconds"`
	ResetAt       time.Time `json:"resetAt"`
	Label         string    `json:"label"`
}

func (s *Server) rateLimit() rateLimitResponse {
	st := s.pipeline.RateLimitStatus()
	return rateLimitResponse{
		Limit:         st.Limit,
		Remaining:     st.Remaining,
		WindowSeconds: st.Window.Seconds(),
		ResetAt:       st.ResetAt,
		Label:         s.pipeline.T(i18n.RateLimit),
	}
}

func (s *Server) handleRateLimit(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.rateLimit())
}

func (s *Server) handleResetRateLimit(w http.ResponseWriter, r *http.Request) {
	s.pipeline.ResetRateLimit(r.Context())
	respondJSON(w, http.StatusOK, s.rateLimit())
}
