package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/chat"
	"github.com/longkey1/finanzas/internal/finanzas/i18n"
	"github.com/longkey1/finanzas/internal/finanzas/session"
	"github.com/longkey1/finanzas/internal/finanzas/store"
	"github.com/longkey1/finanzas/internal/metrics"
	"github.com/longkey1/finanzas/internal/voice"
)

type stubProvider struct {
	err error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Reply(ctx context.Context, req finanzas.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.err != nil {
		return "", p.err
	}
	return "Answer to: " + req.Text, nil
}

type fixture struct {
	server      *Server
	handler     http.Handler
	pipeline    *chat.Pipeline
	hub         *Hub
	recognition *voice.Recognition
	provider    *stubProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess := session.New(store.NewMemory(), logger)
	hub := NewHub(logger)
	provider := &stubProvider{}
	m := metrics.New()

	var pipeline *chat.Pipeline
	lang := func() finanzas.Language { return pipeline.Language() }
	recognition := voice.NewRecognition(nil, i18n.Locale(finanzas.English), hub.RecognitionHandler(lang))

	pipeline, err := chat.New(chat.Options{
		Provider:   provider,
		Session:    sess,
		State:      session.DefaultState(),
		Limit:      3,
		Window:     10 * time.Second,
		Presenter:  hub,
		Recognizer: recognition,
		Metrics:    m,
		Logger:     logger,
	})
	require.NoError(t, err)

	srv, err := New(Options{
		Pipeline:    pipeline,
		Hub:         hub,
		Recognition: recognition,
		Metrics:     m,
		Logger:      logger,
	})
	require.NoError(t, err)

	return &fixture{
		server:      srv,
		handler:     srv.Handler(),
		pipeline:    pipeline,
		hub:         hub,
		recognition: recognition,
		provider:    provider,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v))
	return v
}

func TestNewValidation(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "ok")
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/messages", sendRequest{Text: "What is a SIP?"})
	require.Equal(t, http.StatusOK, resp.Code)
	got := decode[sendResponse](t, resp)
	require.Equal(t, finanzas.RoleAssistant, got.Message.Role)
	require.Equal(t, "Answer to: What is a SIP?", got.Message.Content)

	list := decode[struct {
		Messages []finanzas.Message `json:"messages"`
	}](t, f.do(t, http.MethodGet, "/api/messages", nil))
	require.Len(t, list.Messages, 2)
	require.Equal(t, finanzas.RoleUser, list.Messages[0].Role)
}

func TestSendMessageSurvivesClientDisconnect(t *testing.T) {
	f := newFixture(t)

	data, err := json.Marshal(sendRequest{Text: "What is a SIP?"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewReader(data)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	msgs := f.pipeline.History()
	require.Len(t, msgs, 2)
	require.Equal(t, "Answer to: What is a SIP?", msgs[1].Content)
}

func TestSendMessageErrors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		f := newFixture(t)
		resp := f.do(t, http.MethodPost, "/api/messages", sendRequest{Text: "   "})
		require.Equal(t, http.StatusBadRequest, resp.Code)
		require.Empty(t, f.pipeline.History())
	})

	t.Run("invalid body", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader("{"))
		resp := httptest.NewRecorder()
		f.handler.ServeHTTP(resp, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		f := newFixture(t)
		for i := 0; i < 3; i++ {
			resp := f.do(t, http.MethodPost, "/api/messages", sendRequest{Text: "hello"})
			require.Equal(t, http.StatusOK, resp.Code)
		}
		resp := f.do(t, http.MethodPost, "/api/messages", sendRequest{Text: "hello"})
		require.Equal(t, http.StatusTooManyRequests, resp.Code)
		require.NotEmpty(t, resp.Header().Get("Retry-After"))
		require.Contains(t, resp.Body.String(), i18n.T(finanzas.English, i18n.ErrorRateLimit))
		require.Len(t, f.pipeline.History(), 6)
	})

	t.Run("reply failed", func(t *testing.T) {
		f := newFixture(t)
		f.provider.err = errors.New("upstream down")
		resp := f.do(t, http.MethodPost, "/api/messages", sendRequest{Text: "hello"})
		require.Equal(t, http.StatusBadGateway, resp.Code)
		got := decode[sendResponse](t, resp)
		require.Equal(t, i18n.T(finanzas.English, i18n.ErrorAPI), got.Message.Content)
		require.Contains(t, got.Error, "upstream down")
	})
}

func TestClearAndExport(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/messages", sendRequest{Text: "hello"})

	resp := f.do(t, http.MethodGet, "/api/messages/export", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Header().Get("Content-Disposition"), "finanzas-chat-")
	var exported []finanzas.Message
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &exported))
	require.Len(t, exported, 2)

	resp = f.do(t, http.MethodDelete, "/api/messages", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	history := f.pipeline.History()
	require.Len(t, history, 1)
	require.Equal(t, i18n.T(finanzas.English, i18n.WelcomeMessage), history[0].Content)
}

func TestSettings(t *testing.T) {
	f := newFixture(t)

	got := decode[settingsResponse](t, f.do(t, http.MethodGet, "/api/settings", nil))
	require.Equal(t, finanzas.English, got.Language)
	require.Equal(t, "stub", got.Provider)
	require.False(t, got.SpeechCapable)

	resp := f.do(t, http.MethodPatch, "/api/settings", map[string]any{
		"language":       "hi",
		"theme":          "dark",
		"voice":          map[string]float64{"rate": 1.5},
		"apiKeyOverride": " key ",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	got = decode[settingsResponse](t, resp)
	require.Equal(t, finanzas.Hindi, got.Language)
	require.Equal(t, finanzas.Dark, got.Theme)
	require.Equal(t, 1.5, got.Voice.Rate)
	require.Equal(t, finanzas.DefaultVoice().Pitch, got.Voice.Pitch)
	require.True(t, got.HasAPIKey)
	require.Equal(t, i18n.Locale(finanzas.Hindi), f.recognition.Locale())

	resp = f.do(t, http.MethodPatch, "/api/settings", map[string]any{"language": "fr"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTranslations(t *testing.T) {
	f := newFixture(t)

	type translations struct {
		Language     finanzas.Language `json:"language"`
		Translations map[string]string `json:"translations"`
		QuickReplies []string          `json:"quickReplies"`
	}

	got := decode[translations](t, f.do(t, http.MethodGet, "/api/translations?lang=hi", nil))
	require.Equal(t, finanzas.Hindi, got.Language)
	require.Equal(t, i18n.T(finanzas.Hindi, i18n.Send), got.Translations["send"])
	require.Len(t, got.QuickReplies, 4)

	req := httptest.NewRequest(http.MethodGet, "/api/translations", nil)
	req.Header.Set("Accept-Language", "hi-IN,hi;q=0.9,en;q=0.5")
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	got = decode[translations](t, resp)
	require.Equal(t, finanzas.Hindi, got.Language)

	got = decode[translations](t, f.do(t, http.MethodGet, "/api/translations", nil))
	require.Equal(t, finanzas.English, got.Language)

	resp = f.do(t, http.MethodGet, "/api/translations?lang=xx", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRateLimitEndpoints(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/messages", sendRequest{Text: "hello"})

	got := decode[rateLimitResponse](t, f.do(t, http.MethodGet, "/api/rate-limit", nil))
	require.Equal(t, 3, got.Limit)
	require.Equal(t, 2, got.Remaining)
	require.Equal(t, 10.0, got.WindowSeconds)

	got = decode[rateLimitResponse](t, f.do(t, http.MethodPost, "/api/rate-limit/reset", nil))
	require.Equal(t, 3, got.Remaining)
}

func TestClientRateLimit(t *testing.T) {
	f := newFixture(t)
	f.server.limiters = newLimiterPool(1, 2)
	f.handler = f.server.Handler()

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/quick-replies", nil).Code)
	}
	resp := f.do(t, http.MethodGet, "/api/quick-replies", nil)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil).Code)
}

func TestStaticAndMetrics(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "<title>Finanzas</title>")

	resp = f.do(t, http.MethodGet, "/sw.js", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "finanzas-v1")

	f.do(t, http.MethodPost, "/api/messages", sendRequest{Text: "hello"})
	resp = f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `finanzas_messages_total{role="user"} 1`)
}

func readEvent(t *testing.T, conn *websocket.Conn, eventType string) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == eventType {
			return ev
		}
	}
}

func dial(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(f.handler)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return f.hub.Len() == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestWebSocketSend(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "send", "data": map[string]string{"text": "hello"}}))

	ev := readEvent(t, conn, EventMessage)
	require.Equal(t, "user", ev.Data.(map[string]any)["role"])
	ev = readEvent(t, conn, EventTyping)
	require.Equal(t, true, ev.Data.(map[string]any)["typing"])
	ev = readEvent(t, conn, EventMessage)
	require.Equal(t, "Answer to: hello", ev.Data.(map[string]any)["content"])
}

func TestWebSocketRecognition(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)
	require.Eventually(t, f.recognition.Supported, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "recognition.toggle"}))
	ev := readEvent(t, conn, EventRecognition)
	require.Equal(t, "start", ev.Data.(map[string]any)["action"])
	require.Equal(t, "en-IN", ev.Data.(map[string]any)["locale"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "recognition.start"}))
	readEvent(t, conn, EventListening)
	require.Eventually(t, f.recognition.Listening, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "recognition.result",
		"data": map[string]any{"segments": []string{"What is ", "a SIP?"}},
	}))
	ev = readEvent(t, conn, EventInput)
	require.Equal(t, "What is a SIP?", ev.Data.(map[string]any)["text"])
	require.Empty(t, f.pipeline.History())

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "recognition.error", "data": map[string]string{"error": "no-speech"}}))
	ev = readEvent(t, conn, EventToast)
	require.Equal(t, i18n.T(finanzas.English, i18n.SpeechError), ev.Data.(map[string]any)["text"])
	require.False(t, f.recognition.Listening())
}

func TestWebSocketConnectivityToasts(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "online"}))
	ev := readEvent(t, conn, EventToast)
	require.Equal(t, i18n.T(finanzas.English, i18n.BackOnline), ev.Data.(map[string]any)["text"])
	require.Equal(t, string(chat.ToastSuccess), ev.Data.(map[string]any)["kind"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "bogus"}))
	ev = readEvent(t, conn, EventError)
	require.Contains(t, ev.Data.(map[string]any)["message"], "bogus")
}

func TestHubEngineWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	require.ErrorIs(t, hub.Start(i18n.Locale(finanzas.Hindi)), voice.ErrRecognitionUnsupported)
	require.ErrorIs(t, hub.Stop(), voice.ErrRecognitionUnsupported)
}
