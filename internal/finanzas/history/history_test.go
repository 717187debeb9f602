package history

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/longkey1/finanzas/internal/finanzas"
)

func makeMessages(n int, start time.Time) []finanzas.Message {
	msgs := make([]finanzas.Message, n)
	for i := range msgs {
		role := finanzas.RoleUser
		if i%2 == 1 {
			role = finanzas.RoleAssistant
		}
		msgs[i] = finanzas.NewMessage(role, fmt.Sprintf("message %d", i), start.Add(time.Duration(i)*time.Minute))
	}
	return msgs
}

func TestAppendDropsOldestFirst(t *testing.T) {
	start := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	h := New(nil)

	for i, m := range makeMessages(MaxMessages+25, start) {
		h.Append(m)
		require.LessOrEqual(t, h.Len(), MaxMessages, "after append %d", i)
	}

	msgs := h.Messages()
	require.Len(t, msgs, MaxMessages)
	require.Equal(t, "message 25", msgs[0].Content)
	last, ok := h.Last()
	require.True(t, ok)
	require.Equal(t, fmt.Sprintf("message %d", MaxMessages+24), last.Content)
}

func TestNewTruncatesSeed(t *testing.T) {
	seed := makeMessages(150, time.Now())
	h := New(seed)
	require.Equal(t, MaxMessages, h.Len())
	require.Equal(t, seed[50].ID, h.Messages()[0].ID)
}

func TestMessagesReturnsCopy(t *testing.T) {
	h := NewWithCap(3, makeMessages(2, time.Now()))
	got := h.Messages()
	got[0].Content = "changed"
	require.NotEqual(t, "changed", h.Messages()[0].Content)
}

func TestClear(t *testing.T) {
	h := New(makeMessages(4, time.Now()))
	h.Clear()
	require.Zero(t, h.Len())
	_, ok := h.Last()
	require.False(t, ok)
}

func TestExportPreservesOrderAndTimestamps(t *testing.T) {
	start := time.Date(2025, 5, 1, 9, 0, 0, 123000000, time.UTC)
	msgs := makeMessages(17, start)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, msgs))

	got, err := Import(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(msgs))
	for i := range msgs {
		require.Equal(t, msgs[i].Content, got[i].Content)
		require.Equal(t, msgs[i].Role, got[i].Role)
		require.True(t, msgs[i].Timestamp.Equal(got[i].Timestamp), "timestamp %d", i)
	}
}

func TestExportEmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, nil))
	require.Equal(t, "[]\n", buf.String())
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)
	require.Equal(t, "finanzas-chat-2026-10-18.json", ExportFilename(now))
}
