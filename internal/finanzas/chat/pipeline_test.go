package chat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/history"
	"github.com/longkey1/finanzas/internal/finanzas/i18n"
	"github.com/longkey1/finanzas/internal/finanzas/session"
	"github.com/longkey1/finanzas/internal/finanzas/store"
	"github.com/longkey1/finanzas/internal/voice"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeProvider struct {
	mu       sync.Mutex
	requests []finanzas.Request
	reply    func(ctx context.Context, req finanzas.Request) (string, error)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Reply(ctx context.Context, req finanzas.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply := f.reply
	f.mu.Unlock()
	if reply == nil {
		return "Answer to: " + req.Text, nil
	}
	return reply(ctx, req)
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type toast struct {
	text string
	kind ToastKind
}

type recorder struct {
	mu       sync.Mutex
	rendered []finanzas.Message
	typing   []bool
	toasts   []toast
	cleared  int
}

func (r *recorder) Render(m finanzas.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = append(r.rendered, m)
}

func (r *recorder) Typing(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typing = append(r.typing, on)
}

func (r *recorder) Toast(text string, kind ToastKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, toast{text, kind})
}

func (r *recorder) Cleared() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}

type fakeSpeaker struct {
	said    []voice.Utterance
	stopped int
}

func (f *fakeSpeaker) Say(u voice.Utterance) { f.said = append(f.said, u) }
func (f *fakeSpeaker) Stop()                 { f.stopped++ }

type fakeRecognizer struct {
	locale language.Tag
}

func (f *fakeRecognizer) SetLocale(tag language.Tag) { f.locale = tag }

type fixture struct {
	pipeline  *Pipeline
	provider  *fakeProvider
	presenter *recorder
	session   *session.Session
	clock     *clock
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	st := store.NewMemory()
	t.Cleanup(func() { st.Close() })

	f := &fixture{
		provider:  &fakeProvider{},
		presenter: &recorder{},
		session:   session.New(st, slog.New(slog.NewTextHandler(io.Discard, nil))),
		clock:     &clock{now: time.Date(2025, 8, 15, 9, 30, 0, 0, time.UTC)},
	}
	opts := Options{
		Provider:  f.provider,
		Session:   f.session,
		State:     session.DefaultState(),
		Limit:     3,
		Window:    10 * time.Second,
		Timeout:   time.Second,
		Presenter: f.presenter,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:       f.clock.Now,
	}
	if mutate != nil {
		mutate(&opts)
	}
	p, err := New(opts)
	require.NoError(t, err)
	f.pipeline = p
	return f
}

func TestSendUserMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	msg, err := f.pipeline.SendUserMessage(ctx, "  What is a SIP?  ")
	require.NoError(t, err)
	require.Equal(t, finanzas.RoleAssistant, msg.Role)
	require.Equal(t, "Answer to: What is a SIP?", msg.Content)

	msgs := f.pipeline.History()
	require.Len(t, msgs, 2)
	require.Equal(t, finanzas.RoleUser, msgs[0].Role)
	require.Equal(t, "What is a SIP?", msgs[0].Content)

	require.Equal(t, []bool{true, false}, f.presenter.typing)
	require.Len(t, f.presenter.rendered, 2)

	req := f.provider.requests[0]
	require.Equal(t, finanzas.English, req.Language)
	require.Contains(t, req.System, "Respond in English.")

	state, err := f.session.Load(ctx)
	require.NoError(t, err)
	require.Len(t, state.History, 2)
	require.Equal(t, 1, state.RateLimit.Count)
}

func TestSendEmptyMessage(t *testing.T) {
	f := newFixture(t, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := f.pipeline.SendUserMessage(context.Background(), text)
		require.ErrorIs(t, err, ErrEmptyMessage)
	}
	require.Empty(t, f.pipeline.History())
	require.Zero(t, f.provider.calls())
	require.Equal(t, 3, f.pipeline.RateLimitStatus().Remaining)
}

func TestSendRateLimited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	for i := 0; i < 3; i++ {
		_, err := f.pipeline.SendUserMessage(ctx, "question")
		require.NoError(t, err, "send %d", i+1)
	}

	_, err := f.pipeline.SendUserMessage(ctx, "one too many")
	require.ErrorIs(t, err, ErrRateLimited)
	require.Len(t, f.pipeline.History(), 6)
	require.Equal(t, 3, f.provider.calls())
	last := f.presenter.toasts[len(f.presenter.toasts)-1]
	require.Equal(t, toast{i18n.T(finanzas.English, i18n.ErrorRateLimit), ToastWarning}, last)

	f.clock.Advance(11 * time.Second)
	_, err = f.pipeline.SendUserMessage(ctx, "after the window")
	require.NoError(t, err)
	status := f.pipeline.RateLimitStatus()
	require.Equal(t, 2, status.Remaining)
	require.Equal(t, f.clock.Now().Add(10*time.Second), status.ResetAt)
}

func TestSendTimeout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(o *Options) { o.Timeout = 20 * time.Millisecond })
	f.provider.reply = func(ctx context.Context, req finanzas.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	msg, err := f.pipeline.SendUserMessage(ctx, "Explain ELSS mutual funds")
	require.ErrorIs(t, err, ErrReplyFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, i18n.T(finanzas.English, i18n.ErrorAPI), msg.Content)

	msgs := f.pipeline.History()
	require.Len(t, msgs, 2)
	require.Equal(t, finanzas.RoleAssistant, msgs[1].Role)
	require.Equal(t, msg.Content, msgs[1].Content)

	require.False(t, f.presenter.typing[len(f.presenter.typing)-1])
	require.False(t, f.pipeline.Pending())
	require.Equal(t, ToastError, f.presenter.toasts[len(f.presenter.toasts)-1].kind)
}

func TestSendProviderErrorInHindi(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.provider.reply = func(context.Context, finanzas.Request) (string, error) {
		return "", errors.New("upstream 500")
	}
	require.NoError(t, f.pipeline.SetLanguage(ctx, finanzas.Hindi))

	msg, err := f.pipeline.SendUserMessage(ctx, "SIP क्या है?")
	require.ErrorIs(t, err, ErrReplyFailed)
	require.Equal(t, i18n.T(finanzas.Hindi, i18n.ErrorAPI), msg.Content)
}

func TestSendEmptyReplyIsFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.provider.reply = func(context.Context, finanzas.Request) (string, error) { return "  ", nil }

	_, err := f.pipeline.SendUserMessage(context.Background(), "hello")
	require.ErrorIs(t, err, ErrReplyFailed)
	require.Len(t, f.pipeline.History(), 2)
}

func TestSendWhileBusy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.provider.reply = func(ctx context.Context, req finanzas.Request) (string, error) {
		close(entered)
		<-release
		return "done", nil
	}

	errc := make(chan error, 1)
	go func() {
		_, err := f.pipeline.SendUserMessage(ctx, "first")
		errc <- err
	}()
	<-entered

	require.True(t, f.pipeline.Pending())
	_, err := f.pipeline.SendUserMessage(ctx, "second")
	require.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-errc)
	require.False(t, f.pipeline.Pending())
	require.Equal(t, 1, f.provider.calls())
}

func TestAPIKeyOverrideIsForwarded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.pipeline.SetAPIKeyOverride(ctx, " user-key ")

	_, err := f.pipeline.SendUserMessage(ctx, "hi")
	require.NoError(t, err)
	require.Equal(t, "user-key", f.provider.requests[0].APIKey)
	require.Equal(t, "user-key", f.pipeline.Settings().APIKeyOverride)
}

func TestSpokenReplies(t *testing.T) {
	ctx := context.Background()
	speaker := &fakeSpeaker{}
	recognizer := &fakeRecognizer{}
	f := newFixture(t, func(o *Options) {
		o.Speaker = speaker
		o.Speak = true
		o.Recognizer = recognizer
	})
	require.Equal(t, "en-IN", recognizer.locale.String())

	require.NoError(t, f.pipeline.SetLanguage(ctx, finanzas.Hindi))
	require.Equal(t, "hi-IN", recognizer.locale.String())
	require.Equal(t, "SIP क्या है?", f.pipeline.QuickReplies()[0])

	voiceSettings := finanzas.Voice{Rate: 1.25, Pitch: 0.9, Volume: 0.6}
	f.pipeline.SetVoice(ctx, voiceSettings)

	_, err := f.pipeline.SendUserMessage(ctx, "नमस्ते")
	require.NoError(t, err)
	require.Len(t, speaker.said, 1)
	require.Equal(t, voice.NewUtterance("Answer to: नमस्ते", voiceSettings, language.MustParse("hi-IN")), speaker.said[0])

	f.pipeline.SetSpeak(false)
	require.Equal(t, 1, speaker.stopped)
	_, err = f.pipeline.SendUserMessage(ctx, "again")
	require.NoError(t, err)
	require.Len(t, speaker.said, 1)
}

func TestWelcomeAndClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	f.pipeline.Welcome(ctx)
	f.pipeline.Welcome(ctx)
	msgs := f.pipeline.History()
	require.Len(t, msgs, 1)
	require.Equal(t, i18n.T(finanzas.English, i18n.WelcomeMessage), msgs[0].Content)

	_, err := f.pipeline.SendUserMessage(ctx, "question")
	require.NoError(t, err)
	require.Len(t, f.pipeline.History(), 3)

	f.pipeline.ClearHistory(ctx)
	msgs = f.pipeline.History()
	require.Len(t, msgs, 1)
	require.Equal(t, finanzas.RoleAssistant, msgs[0].Role)
	require.Equal(t, 1, f.presenter.cleared)
	require.Equal(t, toast{i18n.T(finanzas.English, i18n.ChatCleared), ToastInfo}, f.presenter.toasts[len(f.presenter.toasts)-1])

	state, err := f.session.Load(ctx)
	require.NoError(t, err)
	require.Len(t, state.History, 1)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	for i := 0; i < 2; i++ {
		_, err := f.pipeline.SendUserMessage(ctx, "q")
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, f.pipeline.Export(&buf))
	got, err := history.Import(&buf)
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, "finanzas-chat-2025-08-15.json", f.pipeline.ExportFilename())
	require.Equal(t, ToastSuccess, f.presenter.toasts[len(f.presenter.toasts)-1].kind)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.pipeline.SendUserMessage(ctx, "old question")
	require.NoError(t, err)

	at := time.Date(2025, 8, 1, 9, 30, 0, 0, time.UTC)
	var msgs []finanzas.Message
	for i := 0; i < history.MaxMessages+5; i++ {
		msgs = append(msgs, finanzas.NewMessage(finanzas.RoleUser, "q", at.Add(time.Duration(i)*time.Minute)))
	}
	var buf bytes.Buffer
	require.NoError(t, history.Export(&buf, msgs))

	n, err := f.pipeline.Import(ctx, &buf)
	require.NoError(t, err)
	require.Equal(t, history.MaxMessages, n)

	got := f.pipeline.History()
	require.Len(t, got, history.MaxMessages)
	require.True(t, msgs[5].Timestamp.Equal(got[0].Timestamp))

	state, err := f.session.Load(ctx)
	require.NoError(t, err)
	require.Len(t, state.History, history.MaxMessages)
}

func TestImportRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.pipeline.Welcome(ctx)

	_, err := f.pipeline.Import(ctx, bytes.NewBufferString("{not json"))
	require.Error(t, err)
	_, err = f.pipeline.Import(ctx, bytes.NewBufferString(`[{"role":"system","content":"x","timestamp":"2025-08-01T00:00:00Z"}]`))
	require.Error(t, err)
	require.Len(t, f.pipeline.History(), 1)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	require.Equal(t, finanzas.Dark, f.pipeline.ToggleTheme(ctx))
	require.Equal(t, finanzas.Light, f.pipeline.ToggleTheme(ctx))
	require.Error(t, f.pipeline.SetTheme(ctx, finanzas.Theme("neon")))
	require.Error(t, f.pipeline.SetLanguage(ctx, finanzas.Language("ta")))

	require.NoError(t, f.pipeline.SetLanguage(ctx, finanzas.Hindi))
	require.Equal(t, i18n.T(finanzas.Hindi, i18n.Send), f.pipeline.T(i18n.Send))

	state, err := f.session.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, finanzas.Hindi, state.Language)
	require.Equal(t, finanzas.Light, state.Theme)
}

func TestResetRateLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	for i := 0; i < 3; i++ {
		_, err := f.pipeline.SendUserMessage(ctx, "q")
		require.NoError(t, err)
	}
	require.Zero(t, f.pipeline.RateLimitStatus().Remaining)

	f.pipeline.ResetRateLimit(ctx)
	require.Equal(t, 3, f.pipeline.RateLimitStatus().Remaining)
	_, err := f.pipeline.SendUserMessage(ctx, "q")
	require.NoError(t, err)
}

func TestNewRequiresProviderAndSession(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	_, err = New(Options{Provider: &fakeProvider{}})
	require.Error(t, err)
}
