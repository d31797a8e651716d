package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()
	fb, err := OpenFile(filepath.Join(dir, "files"))
	require.NoError(t, err)
	sb, err := OpenSQLite(filepath.Join(dir, "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sb.Close() })
	return map[string]Backend{"file": fb, "sqlite": sb, "memory": NewMemory()}
}

func TestBackends_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Load(ctx, "site-config")
			require.ErrorIs(t, err, ErrNotFound)

			doc := []byte(`{"intro":{"name":"panda"}}`)
			require.NoError(t, b.Save(ctx, "site-config", doc))
			got, err := b.Load(ctx, "site-config")
			require.NoError(t, err)
			assert.Equal(t, doc, got)

			doc2 := []byte(`[]`)
			require.NoError(t, b.Save(ctx, "site-config", doc2))
			got, err = b.Load(ctx, "site-config")
			require.NoError(t, err)
			assert.Equal(t, doc2, got)

			require.NoError(t, b.Delete(ctx, "site-config"))
			require.NoError(t, b.Delete(ctx, "site-config"))
			_, err = b.Load(ctx, "site-config")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFile_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fb, err := OpenFile(dir)
	require.NoError(t, err)
	require.NoError(t, fb.Save(context.Background(), "astrology-requests", []byte(`[]`)))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "astrology-requests.json", entries[0].Name())
}

func TestMemory_SaveFailure(t *testing.T) {
	m := NewMemory()
	boom := errors.New("quota exceeded")
	m.SetFailure(boom)
	assert.ErrorIs(t, m.Save(context.Background(), "k", []byte("1")), boom)
	assert.Equal(t, 0, m.Saves())
	m.SetFailure(nil)
	assert.NoError(t, m.Save(context.Background(), "k", []byte("1")))
	assert.Equal(t, 1, m.Saves())
}

func waitChange(t *testing.T, ch <-chan Change, key string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			require.True(t, ok, "watch channel closed early")
			if c.Key == key {
				return
			}
		case <-deadline:
			t.Fatalf("no change observed for %s", key)
		}
	}
}

func TestFile_WatchSeesOtherWriter(t *testing.T) {
	dir := t.TempDir()
	reader, err := OpenFile(dir)
	require.NoError(t, err)
	writer, err := OpenFile(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := reader.Watch(ctx, "astrology-requests")
	require.NoError(t, err)

	require.NoError(t, writer.Save(context.Background(), "site-config", []byte(`{}`)))
	require.NoError(t, writer.Save(context.Background(), "astrology-requests", []byte(`[]`)))
	waitChange(t, ch, "astrology-requests")

	cancel()
	for range ch {
	}
}

func TestSQLite_WatchSeesOtherConnection(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "kv.db")
	reader, err := OpenSQLite(dsn)
	require.NoError(t, err)
	defer reader.Close()
	reader.PollInterval = 20 * time.Millisecond
	writer, err := OpenSQLite(dsn)
	require.NoError(t, err)
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := reader.Watch(ctx, "astrology-requests")
	require.NoError(t, err)

	require.NoError(t, writer.Save(context.Background(), "astrology-requests", []byte(`[]`)))
	waitChange(t, ch, "astrology-requests")

	cancel()
	for range ch {
	}
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open("redis", t.TempDir(), "")
	assert.Error(t, err)
}
