// Package voice speaks assistant replies and tracks speech recognition state.
package voice

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/text/language"

	"github.com/longkey1/finanzas/internal/finanzas"
)

// Utterance is one piece of text to speak.
type Utterance struct {
	Text   string
	Rate   float64
	Pitch  float64
	Volume float64
	Locale language.Tag
}

// NewUtterance applies voice settings to text.
func NewUtterance(text string, v finanzas.Voice, locale language.Tag) Utterance {
	return Utterance{Text: text, Rate: v.Rate, Pitch: v.Pitch, Volume: v.Volume, Locale: locale}
}

// Synthesizer turns an utterance into audio. Speak blocks until playback
// finishes or ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
}

// Speaker plays at most one utterance at a time. Saying something new
// cancels whatever is still playing.
type Speaker struct {
	synth  Synthesizer
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSpeaker returns a speaker backed by synth.
func NewSpeaker(synth Synthesizer, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{synth: synth, logger: logger.With("component", "voice")}
}

// Say stops any utterance in progress and starts speaking u in the background.
func (s *Speaker) Say(u Utterance) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		defer cancel()
		if err := s.synth.Speak(ctx, u); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("speech synthesis failed", "locale", u.Locale.String(), "error", err)
		}
	}()
}

// Stop cancels the current utterance and waits for it to end.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Speaking reports whether an utterance is playing.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Wait blocks until the current utterance finishes.
func (s *Speaker) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Speaker) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}
