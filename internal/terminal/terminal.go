// Package terminal renders the conversation on a text terminal.
package terminal

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/chat"
	"github.com/longkey1/finanzas/internal/finanzas/i18n"
)

var (
	brandPrimary = lipgloss.Color("#10B981") // Green
	brandAccent  = lipgloss.Color("#3B82F6") // Blue
	brandWarning = lipgloss.Color("#F59E0B") // Amber
	brandError   = lipgloss.Color("#EF4444") // Red
	textMuted    = lipgloss.Color("#6B7280") // Gray
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Presenter implements chat.Presenter for a terminal. Messages go to out,
// the typing indicator and toasts go to errOut.
type Presenter struct {
	out      io.Writer
	errOut   io.Writer
	language func() finanzas.Language
	markdown *glamour.TermRenderer
	animate  bool

	userStyle      lipgloss.Style
	assistantStyle lipgloss.Style
	timeStyle      lipgloss.Style
	toastStyles    map[chat.ToastKind]lipgloss.Style

	mu          sync.Mutex
	spinnerDone chan struct{}
	spinnerWG   sync.WaitGroup
}

// New returns a presenter. Markdown is rendered through glamour only when out
// is a terminal; the spinner only animates when errOut is one.
func New(out, errOut io.Writer, language func() finanzas.Language) *Presenter {
	outStyles := lipgloss.NewRenderer(out)
	errStyles := lipgloss.NewRenderer(errOut)

	p := &Presenter{
		out:      out,
		errOut:   errOut,
		language: language,
		animate:  IsTerminal(errOut),

		userStyle:      outStyles.NewStyle().Foreground(brandAccent).Bold(true),
		assistantStyle: outStyles.NewStyle().Foreground(brandPrimary).Bold(true),
		timeStyle:      outStyles.NewStyle().Foreground(textMuted),
		toastStyles: map[chat.ToastKind]lipgloss.Style{
			chat.ToastInfo:    errStyles.NewStyle().Foreground(brandAccent),
			chat.ToastSuccess: errStyles.NewStyle().Foreground(brandPrimary).Bold(true),
			chat.ToastWarning: errStyles.NewStyle().Foreground(brandWarning),
			chat.ToastError:   errStyles.NewStyle().Foreground(brandError).Bold(true),
		},
	}

	if IsTerminal(out) {
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		); err == nil {
			p.markdown = r
		}
	}
	return p
}

// Render implements chat.Presenter.
func (p *Presenter) Render(m finanzas.Message) {
	lang := p.language()

	name := p.userStyle.Render("You")
	if m.Role == finanzas.RoleAssistant {
		name = p.assistantStyle.Render("Finanzas")
	}
	stamp := p.timeStyle.Render(i18n.FormatTime(lang, m.Timestamp.Local()))

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s  %s\n", name, stamp)
	fmt.Fprintln(p.out, p.format(m))
}

func (p *Presenter) format(m finanzas.Message) string {
	if m.Role == finanzas.RoleAssistant && p.markdown != nil {
		if rendered, err := p.markdown.Render(m.Content); err == nil {
			return strings.TrimRight(rendered, "\n")
		}
	}
	return FormatPlain(m.Content) + "\n"
}

// Typing implements chat.Presenter.
func (p *Presenter) Typing(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !on {
		if p.spinnerDone != nil {
			close(p.spinnerDone)
			p.spinnerDone = nil
			p.mu.Unlock()
			p.spinnerWG.Wait()
			p.mu.Lock()
		}
		return
	}
	if !p.animate || p.spinnerDone != nil {
		return
	}

	done := make(chan struct{})
	p.spinnerDone = done
	label := i18n.T(p.language(), i18n.AITyping)
	p.spinnerWG.Add(1)
	go func() {
		defer p.spinnerWG.Done()
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(spinnerFrames) {
			fmt.Fprintf(p.errOut, "\r%s %s", spinnerFrames[i], label)
			select {
			case <-done:
				fmt.Fprint(p.errOut, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Toast implements chat.Presenter.
func (p *Presenter) Toast(text string, kind chat.ToastKind) {
	style, ok := p.toastStyles[kind]
	if !ok {
		style = p.toastStyles[chat.ToastInfo]
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.errOut, style.Render(toastIcon(kind)+" "+text))
}

// Cleared implements chat.Presenter.
func (p *Presenter) Cleared() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, p.timeStyle.Render(strings.Repeat("─", 40)))
}

func toastIcon(kind chat.ToastKind) string {
	switch kind {
	case chat.ToastSuccess:
		return "✓"
	case chat.ToastWarning:
		return "!"
	case chat.ToastError:
		return "✗"
	default:
		return "•"
	}
}

var (
	boldPattern   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern = regexp.MustCompile(`\*(.*?)\*`)
)

// FormatPlain strips **bold** and *italic* markers for plain output.
func FormatPlain(content string) string {
	content = boldPattern.ReplaceAllString(content, "$1")
	return italicPattern.ReplaceAllString(content, "$1")
}
