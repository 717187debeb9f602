package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/longkey1/finanzas/internal/canned"
	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/chat"
	"github.com/longkey1/finanzas/internal/finanzas/config"
	"github.com/longkey1/finanzas/internal/finanzas/session"
	"github.com/longkey1/finanzas/internal/finanzas/store"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	st := store.NewMemory()
	sess := session.New(st, nil)
	state, err := sess.Load(context.Background())
	require.NoError(t, err)

	p, err := chat.New(chat.Options{
		Provider: canned.NewProvider(),
		Session:  sess,
		State:    state,
		Limit:    3,
		Window:   10 * time.Second,
	})
	require.NoError(t, err)

	a := &app{
		cfg:      config.NewDefaultConfig(""),
		store:    st,
		session:  sess,
		pipeline: p,
		dataDir:  t.TempDir(),
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", ""},
		{"short", "********"},
		{"12345678", "********"},
		{"AIzaSyExampleKey1234", "AIza...1234"},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			require.Equal(t, tt.expected, maskToken(tt.token))
		})
	}
}

func TestDisplayAddr(t *testing.T) {
	require.Equal(t, "localhost:8080", displayAddr(":8080"))
	require.Equal(t, "0.0.0.0:9000", displayAddr("0.0.0.0:9000"))
}

func TestHandleSpecialCommand(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	require.True(t, handleSpecialCommand(ctx, "/help", a))

	require.True(t, handleSpecialCommand(ctx, "/lang hi", a))
	require.Equal(t, finanzas.Hindi, a.pipeline.Language())
	require.True(t, handleSpecialCommand(ctx, "/lang fr", a))
	require.Equal(t, finanzas.Hindi, a.pipeline.Language())

	require.True(t, handleSpecialCommand(ctx, "/theme", a))
	require.Equal(t, finanzas.Dark, a.pipeline.Settings().Theme)
	require.True(t, handleSpecialCommand(ctx, "/theme light", a))
	require.Equal(t, finanzas.Light, a.pipeline.Settings().Theme)

	require.True(t, handleSpecialCommand(ctx, "/quick 9", a))
	require.Empty(t, a.pipeline.History())
	require.True(t, handleSpecialCommand(ctx, "/quick 1", a))
	require.Len(t, a.pipeline.History(), 2)
	require.Equal(t, 2, a.pipeline.RateLimitStatus().Remaining)

	require.True(t, handleSpecialCommand(ctx, "/voice rate 1.5", a))
	require.Equal(t, 1.5, a.pipeline.Settings().Voice.Rate)
	require.True(t, handleSpecialCommand(ctx, "/voice pitch high", a))
	require.Equal(t, 1.0, a.pipeline.Settings().Voice.Pitch)

	require.True(t, handleSpecialCommand(ctx, "/limit", a))
	require.True(t, handleSpecialCommand(ctx, "/nope", a))
	require.False(t, handleSpecialCommand(ctx, "/exit", a))
	require.False(t, handleSpecialCommand(ctx, "/QUIT", a))
}

func TestHandleSpecialCommandExportAndClear(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	_, err := a.pipeline.SendUserMessage(ctx, "What is a SIP?")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	require.True(t, handleSpecialCommand(ctx, "/export "+path, a))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var exported []finanzas.Message
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 2)
	require.Equal(t, finanzas.RoleUser, exported[0].Role)
	require.Equal(t, "What is a SIP?", exported[0].Content)

	require.True(t, handleSpecialCommand(ctx, "/clear", a))
	msgs := a.pipeline.History()
	require.Len(t, msgs, 1)
	require.Equal(t, finanzas.RoleAssistant, msgs[0].Role)
}

func TestImportFromExport(t *testing.T) {
	ctx := context.Background()
	src := newTestApp(t)
	_, err := src.pipeline.SendUserMessage(ctx, "What is a SIP?")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, exportTo(src, path))

	dst := newTestApp(t)
	n, err := importFrom(ctx, dst, path)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	want, got := src.pipeline.History(), dst.pipeline.History()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].Role, got[i].Role)
		require.Equal(t, want[i].Content, got[i].Content)
		require.True(t, want[i].Timestamp.Equal(got[i].Timestamp))
	}

	_, err = importFrom(ctx, dst, filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestCountByRole(t *testing.T) {
	now := time.Now()
	counts := countByRole([]finanzas.Message{
		finanzas.NewMessage(finanzas.RoleAssistant, "welcome", now),
		finanzas.NewMessage(finanzas.RoleUser, "hi", now),
		finanzas.NewMessage(finanzas.RoleAssistant, "hello", now),
	})
	require.Equal(t, 1, counts[finanzas.RoleUser])
	require.Equal(t, 2, counts[finanzas.RoleAssistant])
}

func TestConfigValues(t *testing.T) {
	cfg := config.NewDefaultConfig("/tmp/finanzas")
	cfg.GeminiToken = "AIzaSyExampleKey1234"

	values := configValues(cfg)
	for _, field := range configFields {
		_, ok := values[field]
		require.True(t, ok, "missing field %s", field)
	}
	require.Equal(t, "AIza...1234", values["gemini_token"])
	require.Equal(t, "/tmp/finanzas", values["data_dir"])
	require.Equal(t, "3", values["rate_limit"])
}
