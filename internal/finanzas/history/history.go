// Package history holds the capped, append-only chat transcript and its
// JSON export.
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/longkey1/finanzas/internal/finanzas"
)

// MaxMessages is the number of messages kept; older ones are dropped first.
const MaxMessages = 100

// History is an ordered list of messages capped at a maximum length.
// It is not safe for concurrent use; callers serialize access.
type History struct {
	max      int
	messages []finanzas.Message
}

// New creates a history with the default cap, seeded with msgs.
// When msgs exceeds the cap only the most recent entries are kept.
func New(msgs []finanzas.Message) *History {
	return NewWithCap(MaxMessages, msgs)
}

// NewWithCap creates a history with a custom cap.
func NewWithCap(max int, msgs []finanzas.Message) *History {
	if max <= 0 {
		max = MaxMessages
	}
	h := &History{max: max}
	h.messages = truncate(append([]finanzas.Message(nil), msgs...), max)
	return h
}

// Append adds a message, dropping the oldest ones beyond the cap.
func (h *History) Append(m finanzas.Message) {
	h.messages = truncate(append(h.messages, m), h.max)
}

// Messages returns a copy of the stored messages, oldest first.
func (h *History) Messages() []finanzas.Message {
	out := make([]finanzas.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of stored messages.
func (h *History) Len() int { return len(h.messages) }

// Last returns the most recent message.
func (h *History) Last() (finanzas.Message, bool) {
	if len(h.messages) == 0 {
		return finanzas.Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// Clear removes every message.
func (h *History) Clear() { h.messages = nil }

// truncate keeps the most recent max messages.
func truncate(msgs []finanzas.Message, max int) []finanzas.Message {
	if len(msgs) <= max {
		return msgs
	}
	kept := make([]finanzas.Message, max)
	copy(kept, msgs[len(msgs)-max:])
	return kept
}

// Export writes msgs as an indented JSON array.
func Export(w io.Writer, msgs []finanzas.Message) error {
	if msgs == nil {
		msgs = []finanzas.Message{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(msgs); err != nil {
		return fmt.Errorf("failed to encode chat history: %w", err)
	}
	return nil
}

// Import decodes a history previously written by Export.
func Import(r io.Reader) ([]finanzas.Message, error) {
	var msgs []finanzas.Message
	if err := json.NewDecoder(r).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("failed to decode chat history: %w", err)
	}
	return msgs, nil
}

// ExportFilename returns the download name for an export taken at now.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("finanzas-chat-%s.json", now.Format("2006-01-02"))
}
