package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/config"
	"github.com/longkey1/finanzas/internal/finanzas/store"
)

// useTestConfig points the global viper and logger at a fresh data dir
func useTestConfig(t *testing.T, storeType string, dir string) {
	t.Helper()
	viper.Reset()
	prevLogger := logger
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	t.Cleanup(func() {
		viper.Reset()
		logger = prevLogger
	})

	config.SetDefaults(viper.GetViper(), config.NewDefaultConfig(dir))
	viper.Set("store", storeType)
	viper.Set("speech_command", "")
}

func TestNewAppRecoversFromCorruptStateFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	useTestConfig(t, string(store.StoreTypeFile), dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, store.StateFileName), []byte("{not json"), 0600))

	a, err := newApp(ctx, appOptions{offline: true, quiet: true})
	require.NoError(t, err)
	defer a.Close()

	require.Empty(t, a.pipeline.History())
	require.Equal(t, finanzas.English, a.pipeline.Language())
	require.NoError(t, a.pipeline.SetLanguage(ctx, finanzas.Hindi))

	_, err = os.Stat(filepath.Join(dir, store.StateFileName+".corrupt"))
	require.NoError(t, err)
}

func TestNewAppFallsBackToMemoryWhenStoreCannotOpen(t *testing.T) {
	ctx := context.Background()
	parent := t.TempDir()
	// a regular file where the data directory should be
	blocked := filepath.Join(parent, "data")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0600))
	useTestConfig(t, string(store.StoreTypeSQLite), blocked)

	a, err := newApp(ctx, appOptions{offline: true, quiet: true})
	require.NoError(t, err)
	defer a.Close()

	a.pipeline.Welcome(ctx)
	require.Len(t, a.pipeline.History(), 1)
}

func TestNewAppRejectsUnknownStoreType(t *testing.T) {
	useTestConfig(t, "etcd", t.TempDir())

	_, err := newApp(context.Background(), appOptions{offline: true, quiet: true})
	require.ErrorIs(t, err, store.ErrInvalidStoreType)
}
