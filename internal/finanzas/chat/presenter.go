package chat

import (
	"time"

	"golang.org/x/text/language"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/voice"
)

// ToastKind is the severity of a transient notification.
type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastWarning ToastKind = "warning"
	ToastError   ToastKind = "error"
)

// Presenter shows the conversation to the user.
type Presenter interface {
	Render(m finanzas.Message)
	Typing(on bool)
	Toast(text string, kind ToastKind)
	// Cleared is called after the history has been wiped.
	Cleared()
}

// Presenters fans every call out to each presenter in order.
type Presenters []Presenter

func (ps Presenters) Render(m finanzas.Message) {
	for _, p := range ps {
		p.Render(m)
	}
}

func (ps Presenters) Typing(on bool) {
	for _, p := range ps {
		p.Typing(on)
	}
}

func (ps Presenters) Toast(text string, kind ToastKind) {
	for _, p := range ps {
		p.Toast(text, kind)
	}
}

func (ps Presenters) Cleared() {
	for _, p := range ps {
		p.Cleared()
	}
}

type nopPresenter struct{}

func (nopPresenter) Render(finanzas.Message) {}
func (nopPresenter) Typing(bool)             {}
func (nopPresenter) Toast(string, ToastKind) {}
func (nopPresenter) Cleared()                {}

// Speaker plays assistant replies. *voice.Speaker implements it.
type Speaker interface {
	Say(u voice.Utterance)
	Stop()
}

// LocaleSetter is notified when the language changes. *voice.Recognition implements it.
type LocaleSetter interface {
	SetLocale(tag language.Tag)
}

// Metrics observes pipeline events. *metrics.Metrics implements it.
type Metrics interface {
	ObserveMessage(role finanzas.Role)
	ObserveRateLimited()
	ObserveReply(provider, outcome string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveMessage(finanzas.Role)                {}
func (nopMetrics) ObserveRateLimited()                         {}
func (nopMetrics) ObserveReply(string, string, time.Duration) {}
