// Package chat drives one conversation: validation, rate limiting, history,
// reply providers, persistence, presentation and speech.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/history"
	"github.com/longkey1/finanzas/internal/finanzas/i18n"
	"github.com/longkey1/finanzas/internal/finanzas/prompt"
	"github.com/longkey1/finanzas/internal/finanzas/ratelimit"
	"github.com/longkey1/finanzas/internal/finanzas/session"
	"github.com/longkey1/finanzas/internal/metrics"
	"github.com/longkey1/finanzas/internal/voice"
)

// DefaultTimeout bounds one provider call.
const DefaultTimeout = 30 * time.Second

var (
	// ErrEmptyMessage is returned for blank input. Nothing is appended.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrBusy is returned while a previous message is awaiting its reply.
	ErrBusy = errors.New("a reply is already pending")
	// ErrRateLimited is returned when the send would exceed the rate limit.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrReplyFailed wraps any provider failure.
	ErrReplyFailed = errors.New("reply failed")
)

// Options configures a Pipeline.
type Options struct {
	Provider  finanzas.Provider
	Session   *session.Session
	State     session.State
	Preamble  *prompt.Preamble
	Limit     int
	Window    time.Duration
	Timeout   time.Duration
	Presenter Presenter
	Speaker   Speaker
	// Speak enables spoken replies through Speaker.
	Speak      bool
	Recognizer LocaleSetter
	Metrics    Metrics
	Logger     *slog.Logger
	Now        func() time.Time
}

// RateLimitStatus describes the current rate-limit window.
type RateLimitStatus struct {
	Limit     int           `json:"limit"`
	Remaining int           `json:"remaining"`
	Window    time.Duration `json:"window"`
	ResetAt   time.Time     `json:"resetAt"`
}

// Pipeline owns the session state and serializes every mutation.
type Pipeline struct {
	provider   finanzas.Provider
	session    *session.Session
	preamble   *prompt.Preamble
	timeout    time.Duration
	presenter  Presenter
	speaker    Speaker
	recognizer LocaleSetter
	metrics    Metrics
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	state    session.State
	history  *history.History
	limiter  *ratelimit.Limiter
	speak    bool
	inFlight bool
}

// New builds a pipeline from opts. Provider and Session are required.
func New(opts Options) (*Pipeline, error) {
	if opts.Provider == nil {
		return nil, errors.New("chat: provider is required")
	}
	if opts.Session == nil {
		return nil, errors.New("chat: session is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Preamble == nil {
		opts.Preamble, _ = prompt.NewPreamble("")
	}
	if opts.Presenter == nil {
		opts.Presenter = nopPresenter{}
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limiter := ratelimit.New(opts.Limit, opts.Window, opts.Now())
	limiter.Restore(opts.State.RateLimit)

	p := &Pipeline{
		provider:   opts.Provider,
		session:    opts.Session,
		preamble:   opts.Preamble,
		timeout:    opts.Timeout,
		presenter:  opts.Presenter,
		speaker:    opts.Speaker,
		recognizer: opts.Recognizer,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With("component", "chat", "provider", opts.Provider.Name()),
		now:        opts.Now,
		state:      opts.State,
		history:    history.New(opts.State.History),
		limiter:    limiter,
		speak:      opts.Speak,
	}
	if p.recognizer != nil {
		p.recognizer.SetLocale(i18n.Locale(p.state.Language))
	}
	return p, nil
}

// SendUserMessage sends text to the reply provider. On success the
// assistant message is returned. On provider failure exactly one localized
// error message is appended and returned along with an error wrapping
// ErrReplyFailed.
func (p *Pipeline) SendUserMessage(ctx context.Context, text string) (finanzas.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return finanzas.Message{}, ErrEmptyMessage
	}

	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return finanzas.Message{}, ErrBusy
	}
	now := p.now()
	if !p.limiter.TryConsume(now) {
		lang := p.state.Language
		p.mu.Unlock()
		p.metrics.ObserveRateLimited()
		p.logger.Debug("send denied by rate limiter")
		p.presenter.Toast(i18n.T(lang, i18n.ErrorRateLimit), ToastWarning)
		return finanzas.Message{}, ErrRateLimited
	}
	p.inFlight = true
	persistCtx := context.WithoutCancel(ctx)
	p.persistRateLimitLocked(persistCtx)

	userMsg := finanzas.NewMessage(finanzas.RoleUser, text, now)
	p.appendLocked(persistCtx, userMsg)
	req := finanzas.Request{
		Language: p.state.Language,
		System:   p.preamble.System(p.state.Language),
		Text:     text,
		APIKey:   p.state.APIKeyOverride,
	}
	p.mu.Unlock()

	p.presenter.Render(userMsg)
	p.presenter.Typing(true)
	defer func() {
		p.presenter.Typing(false)
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	reply, err := p.reply(ctx, req)

	p.mu.Lock()
	if err != nil {
		msg := finanzas.NewMessage(finanzas.RoleAssistant, i18n.T(req.Language, i18n.ErrorAPI), p.now())
		p.appendLocked(persistCtx, msg)
		p.mu.Unlock()

		p.logger.Error("reply failed", "error", err)
		p.presenter.Render(msg)
		p.presenter.Toast(msg.Content, ToastError)
		return msg, fmt.Errorf("%w: %w", ErrReplyFailed, err)
	}

	msg := finanzas.NewMessage(finanzas.RoleAssistant, reply, p.now())
	p.appendLocked(persistCtx, msg)
	speak, voiceSettings, lang := p.speak, p.state.Voice, p.state.Language
	p.mu.Unlock()

	p.presenter.Render(msg)
	if speak && p.speaker != nil {
		p.speaker.Say(voice.NewUtterance(msg.Content, voiceSettings, i18n.Locale(lang)))
	}
	return msg, nil
}

func (p *Pipeline) reply(ctx context.Context, req finanzas.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	reply, err := p.provider.Reply(ctx, req)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = metrics.OutcomeTimeout
	case err != nil:
		outcome = metrics.OutcomeError
	case strings.TrimSpace(reply) == "":
		outcome = metrics.OutcomeError
		err = errors.New("provider returned an empty reply")
	}
	p.metrics.ObserveReply(p.provider.Name(), outcome, elapsed)
	p.logger.Debug("reply received", "outcome", outcome, "elapsed", elapsed)
	return reply, err
}

// Welcome appends the localized welcome message when the history is empty.
func (p *Pipeline) Welcome(ctx context.Context) {
	p.mu.Lock()
	if p.history.Len() > 0 {
		p.mu.Unlock()
		return
	}
	msg := finanzas.NewMessage(finanzas.RoleAssistant, i18n.T(p.state.Language, i18n.WelcomeMessage), p.now())
	p.appendLocked(ctx, msg)
	p.mu.Unlock()

	p.presenter.Render(msg)
}

// ClearHistory wipes the history and starts over with the welcome message.
func (p *Pipeline) ClearHistory(ctx context.Context) {
	p.mu.Lock()
	p.history.Clear()
	if err := p.session.ClearHistory(ctx); err != nil {
		p.logger.Warn("failed to clear stored history", "error", err)
	}
	lang := p.state.Language
	msg := finanzas.NewMessage(finanzas.RoleAssistant, i18n.T(lang, i18n.WelcomeMessage), p.now())
	p.appendLocked(ctx, msg)
	p.mu.Unlock()

	p.presenter.Cleared()
	p.presenter.Render(msg)
	p.presenter.Toast(i18n.T(lang, i18n.ChatCleared), ToastInfo)
}

// History returns the messages, oldest first.
func (p *Pipeline) History() []finanzas.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history.Messages()
}

// Export writes the history as indented JSON.
func (p *Pipeline) Export(w io.Writer) error {
	p.mu.Lock()
	msgs := p.history.Messages()
	lang := p.state.Language
	p.mu.Unlock()

	if err := history.Export(w, msgs); err != nil {
		return err
	}
	p.presenter.Toast(i18n.T(lang, i18n.ChatExported), ToastSuccess)
	return nil
}

// Import replaces the history with messages read from a previous export
// and returns how many were kept. Only the newest 100 survive.
func (p *Pipeline) Import(ctx context.Context, r io.Reader) (int, error) {
	msgs, err := history.Import(r)
	if err != nil {
		return 0, err
	}
	for i, m := range msgs {
		if m.Role != finanzas.RoleUser && m.Role != finanzas.RoleAssistant {
			return 0, fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}

	p.mu.Lock()
	p.history = history.New(msgs)
	kept := p.history.Messages()
	if err := p.session.SaveHistory(ctx, kept); err != nil {
		p.logger.Warn("failed to save chat history", "error", err)
	}
	p.mu.Unlock()

	p.presenter.Cleared()
	for _, m := range kept {
		p.presenter.Render(m)
	}
	return len(kept), nil
}

// ExportFilename returns the download name for an export taken now.
func (p *Pipeline) ExportFilename() string {
	return history.ExportFilename(p.now().UTC())
}

// Settings returns the user-editable settings.
func (p *Pipeline) Settings() session.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Settings()
}

// Language returns the current language.
func (p *Pipeline) Language() finanzas.Language {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Language
}

// SetLanguage switches the UI and reply language and the recognizer locale.
func (p *Pipeline) SetLanguage(ctx context.Context, lang finanzas.Language) error {
	if _, err := finanzas.ParseLanguage(string(lang)); err != nil {
		return err
	}
	p.mu.Lock()
	p.state.Language = lang
	if err := p.session.SaveLanguage(ctx, lang); err != nil {
		p.logger.Warn("failed to save language", "error", err)
	}
	p.mu.Unlock()

	if p.recognizer != nil {
		p.recognizer.SetLocale(i18n.Locale(lang))
	}
	return nil
}

// SetTheme stores the colour scheme.
func (p *Pipeline) SetTheme(ctx context.Context, theme finanzas.Theme) error {
	if _, err := finanzas.ParseTheme(string(theme)); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Theme = theme
	if err := p.session.SaveTheme(ctx, theme); err != nil {
		p.logger.Warn("failed to save theme", "error", err)
	}
	return nil
}

// ToggleTheme flips between light and dark and returns the new theme.
func (p *Pipeline) ToggleTheme(ctx context.Context) finanzas.Theme {
	p.mu.Lock()
	theme := p.state.Theme.Toggle()
	p.mu.Unlock()
	_ = p.SetTheme(ctx, theme)
	return theme
}

// SetVoice stores the speech parameters.
func (p *Pipeline) SetVoice(ctx context.Context, v finanzas.Voice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Voice = v
	if err := p.session.SaveVoice(ctx, v); err != nil {
		p.logger.Warn("failed to save voice settings", "error", err)
	}
}

// SetAPIKeyOverride stores a key that replaces the configured token.
// An empty key removes the override.
func (p *Pipeline) SetAPIKeyOverride(ctx context.Context, key string) {
	key = strings.TrimSpace(key)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.APIKeyOverride = key
	if err := p.session.SaveAPIKeyOverride(ctx, key); err != nil {
		p.logger.Warn("failed to save api key override", "error", err)
	}
}

// SetSpeak turns spoken replies on or off. Turning it off stops playback.
func (p *Pipeline) SetSpeak(on bool) {
	p.mu.Lock()
	p.speak = on
	p.mu.Unlock()
	if !on && p.speaker != nil {
		p.speaker.Stop()
	}
}

// Speaking reports whether replies are spoken.
func (p *Pipeline) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speak && p.speaker != nil
}

// Pending reports whether a reply is awaited.
func (p *Pipeline) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// ResetRateLimit starts a fresh rate-limit window.
func (p *Pipeline) ResetRateLimit(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiter.Reset(p.now())
	p.persistRateLimitLocked(ctx)
}

// RateLimitStatus reports the remaining sends in the current window.
func (p *Pipeline) RateLimitStatus() RateLimitStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	st := p.limiter.State()
	resetAt := st.WindowStart.Add(p.limiter.Window())
	if st.WindowStart.IsZero() || now.Sub(st.WindowStart) > p.limiter.Window() {
		resetAt = now
	}
	return RateLimitStatus{
		Limit:     p.limiter.Limit(),
		Remaining: p.limiter.Remaining(now),
		Window:    p.limiter.Window(),
		ResetAt:   resetAt,
	}
}

// QuickReplies returns the suggested questions for the current language.
func (p *Pipeline) QuickReplies() []string {
	return i18n.QuickReplies(p.Language())
}

// T translates key into the current language.
func (p *Pipeline) T(key i18n.Key) string {
	return i18n.T(p.Language(), key)
}

// Toast shows a localized notification through the presenter.
func (p *Pipeline) Toast(key i18n.Key, kind ToastKind) {
	p.presenter.Toast(p.T(key), kind)
}

// ProviderName returns the active reply provider's name.
func (p *Pipeline) ProviderName() string {
	return p.provider.Name()
}

func (p *Pipeline) appendLocked(ctx context.Context, msg finanzas.Message) {
	p.history.Append(msg)
	p.metrics.ObserveMessage(msg.Role)
	if err := p.session.SaveHistory(ctx, p.history.Messages()); err != nil {
		p.logger.Warn("failed to save chat history", "error", err)
	}
}

func (p *Pipeline) persistRateLimitLocked(ctx context.Context) {
	if err := p.session.SaveRateLimit(ctx, p.limiter.State()); err != nil {
		p.logger.Warn("failed to save rate limit", "error", err)
	}
}
