package remote

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astro-homepage/internal/model"
	"astro-homepage/internal/storage"
	"astro-homepage/internal/store"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "remote.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestStore_InsertAndListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	require.NoError(t, s.Ping(ctx))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		require.NoError(t, s.Insert(ctx, model.RemoteRecord{
			BirthDate: "2000-01-01", BirthTime: "12:00", BirthLocation: "A，B",
			Email: email, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	recs, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "c@x.com", recs[0].Email)
	assert.Equal(t, "a@x.com", recs[2].Email)
	assert.NotZero(t, recs[0].ID)
	assert.True(t, recs[2].CreatedAt.Equal(base))
}

func TestStore_InsertFillsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	require.NoError(t, s.Insert(ctx, model.RemoteRecord{BirthDate: "d", BirthTime: "t", BirthLocation: "l", Email: "e@x.com"}))
	recs, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.WithinDuration(t, time.Now(), recs[0].CreatedAt, time.Minute)
}

func newLog(t *testing.T) *store.RequestLog {
	t.Helper()
	l, err := store.NewRequestLog(context.Background(), storage.NewMemory())
	require.NoError(t, err)
	return l
}

func TestSyncer_ReplacesLocalWithRemote(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	require.NoError(t, s.Insert(ctx, model.RemoteRecord{BirthDate: "d", BirthTime: "t", BirthLocation: "l", Email: "r@x.com", CreatedAt: time.UnixMilli(1000)}))

	l := newLog(t)
	_, err := l.Append(ctx, model.AstrologyRequest{BirthDate: "d", BirthTime: "t", BirthLocation: "l", Email: "local@x.com"})
	require.NoError(t, err)

	got := NewSyncer(l, s, store.PolicyReplace, time.Second).SyncOnce(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "r@x.com", got[0].Email)
	assert.Equal(t, int64(1000), got[0].Timestamp)
	assert.Equal(t, got, l.List())
}

type failingLister struct{ calls atomic.Int32 }

func (f *failingLister) ListAll(context.Context) ([]model.RemoteRecord, error) {
	f.calls.Add(1)
	return nil, errors.New("unreachable")
}

func TestSyncer_RemoteFailureKeepsLocal(t *testing.T) {
	ctx := context.Background()
	l := newLog(t)
	_, err := l.Append(ctx, model.AstrologyRequest{BirthDate: "d", BirthTime: "t", BirthLocation: "l", Email: "local@x.com"})
	require.NoError(t, err)

	got := NewSyncer(l, &failingLister{}, "", 0).SyncOnce(ctx)
	assert.Empty(t, got)
	assert.Len(t, l.List(), 1)
}

func TestSyncer_RunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &failingLister{}
	done := make(chan error, 1)
	go func() { done <- NewSyncer(newLog(t), src, store.PolicyMerge, 10*time.Millisecond).Run(ctx) }()

	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("syncer did not stop")
	}
}
