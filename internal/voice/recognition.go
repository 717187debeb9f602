package voice

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// ErrRecognitionUnsupported is returned when no recognition engine is available.
var ErrRecognitionUnsupported = errors.New("speech recognition is not supported")

// Engine starts and stops an external recognizer. The engine reports back
// through Recognition's Started, Result, Ended and Failed methods.
type Engine interface {
	Start(locale language.Tag) error
	Stop() error
}

// Handler receives recognition events. Nil funcs are skipped.
type Handler struct {
	OnStart      func()
	OnTranscript func(transcript string)
	OnEnd        func()
	OnError      func(err error)
}

// Recognition tracks whether the microphone is listening and in which locale.
type Recognition struct {
	mu        sync.Mutex
	engine    Engine
	handler   Handler
	locale    language.Tag
	listening bool
}

// NewRecognition returns a recognizer. A nil engine makes every start fail
// with ErrRecognitionUnsupported.
func NewRecognition(engine Engine, locale language.Tag, h Handler) *Recognition {
	return &Recognition{engine: engine, locale: locale, handler: h}
}

// Supported reports whether an engine is attached.
func (r *Recognition) Supported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine != nil
}

// SetEngine attaches or detaches the engine.
func (r *Recognition) SetEngine(engine Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engine = engine
	if engine == nil {
		r.listening = false
	}
}

// SetLocale changes the locale used by the next start.
func (r *Recognition) SetLocale(tag language.Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locale = tag
}

// Locale returns the current locale.
func (r *Recognition) Locale() language.Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locale
}

// Listening reports whether the engine is capturing speech.
func (r *Recognition) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listening
}

// Toggle stops a running recognition or starts a new one.
func (r *Recognition) Toggle() error {
	r.mu.Lock()
	engine, listening, locale := r.engine, r.listening, r.locale
	r.mu.Unlock()

	if engine == nil {
		return ErrRecognitionUnsupported
	}
	if listening {
		return engine.Stop()
	}
	return engine.Start(locale)
}

// Started records that the engine began listening.
func (r *Recognition) Started() {
	r.mu.Lock()
	r.listening = true
	h := r.handler.OnStart
	r.mu.Unlock()
	if h != nil {
		h()
	}
}

// Result delivers the transcript segments of one result event. Segments are
// concatenated in order.
func (r *Recognition) Result(segments []string) {
	transcript := strings.Join(segments, "")
	r.mu.Lock()
	h := r.handler.OnTranscript
	r.mu.Unlock()
	if h != nil {
		h(transcript)
	}
}

// Ended records that the engine stopped listening.
func (r *Recognition) Ended() {
	r.mu.Lock()
	r.listening = false
	h := r.handler.OnEnd
	r.mu.Unlock()
	if h != nil {
		h()
	}
}

// Failed records an engine error. Listening stops.
func (r *Recognition) Failed(err error) {
	r.mu.Lock()
	r.listening = false
	h := r.handler.OnError
	r.mu.Unlock()
	if h != nil {
		h(err)
	}
}
