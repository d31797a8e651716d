package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astro-homepage/internal/event"
	"astro-homepage/internal/model"
	"astro-homepage/internal/storage"
)

func sampleRequest() model.AstrologyRequest {
	return model.AstrologyRequest{
		BirthDate:     "2000-01-01",
		BirthTime:     "12:00",
		BirthLocation: "Beijing，Haidian",
		Email:         "a@b.com",
	}
}

func TestConfigStore_DefaultsThenPersist(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s, err := NewConfigStore(ctx, mem, model.DefaultSiteConfig())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSiteConfig(), s.Get())

	cfg := s.Get()
	cfg.Intro.Name = "熊猫"
	require.NoError(t, s.Set(ctx, cfg))

	reopened, err := NewConfigStore(ctx, mem, model.DefaultSiteConfig())
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, reopened.Get()); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigStore_SetFailureKeepsMemoryValue(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s, err := NewConfigStore(ctx, mem, model.DefaultSiteConfig())
	require.NoError(t, err)
	mem.SetFailure(errors.New("quota exceeded"))

	cfg, err := s.Update(ctx, func(c *model.SiteConfig) { c.Intro.Title = "占星师" })
	require.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, "占星师", s.Get().Intro.Title)
	assert.Equal(t, cfg, s.Get())
}

func TestConfigStore_RejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	s, err := NewConfigStore(ctx, storage.NewMemory(), model.DefaultSiteConfig())
	require.NoError(t, err)
	cfg := s.Get()
	cfg.Intro.Name = ""
	assert.ErrorIs(t, s.Set(ctx, cfg), ErrEmptyName)
	assert.Equal(t, "panda", s.Get().Intro.Name)
}

func TestConfigStore_CorruptDocumentFallsBack(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	require.NoError(t, mem.Save(ctx, ConfigKey, []byte("{not json")))
	s, err := NewConfigStore(ctx, mem, model.DefaultSiteConfig())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSiteConfig(), s.Get())
}

func TestConfigStore_SetNotifies(t *testing.T) {
	ctx := context.Background()
	s, err := NewConfigStore(ctx, storage.NewMemory(), model.DefaultSiteConfig())
	require.NoError(t, err)
	ch, cancel := s.Subscribe(1)
	defer cancel()
	require.NoError(t, s.Set(ctx, s.Get()))
	e := <-ch
	assert.Equal(t, event.ConfigChanged, e.Kind)
	assert.False(t, e.External)
}

func TestRequestLog_AppendOrderAndTimestamps(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	l, err := NewRequestLog(ctx, mem)
	require.NoError(t, err)

	first := sampleRequest()
	second := sampleRequest()
	second.Email = "c@d.com"

	before := time.Now().UnixMilli()
	a, err := l.Append(ctx, first)
	require.NoError(t, err)
	b, err := l.Append(ctx, second)
	require.NoError(t, err)
	after := time.Now().UnixMilli()

	got := l.List()
	require.Len(t, got, 2)
	assert.Equal(t, "a@b.com", got[0].Email)
	assert.Equal(t, "c@d.com", got[1].Email)
	assert.LessOrEqual(t, a.Timestamp, b.Timestamp)
	assert.GreaterOrEqual(t, a.Timestamp, before)
	assert.LessOrEqual(t, b.Timestamp, after)

	reopened, err := NewRequestLog(ctx, mem)
	require.NoError(t, err)
	assert.Equal(t, got, reopened.List())
}

func TestRequestLog_TimestampNeverGoesBackwards(t *testing.T) {
	ctx := context.Background()
	clock := time.UnixMilli(5_000)
	l, err := NewRequestLog(ctx, storage.NewMemory(), WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	a, err := l.Append(ctx, sampleRequest())
	require.NoError(t, err)
	clock = time.UnixMilli(1_000)
	b, err := l.Append(ctx, sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), a.Timestamp)
	assert.Equal(t, int64(5_000), b.Timestamp)
}

func TestRequestLog_AppendAfterFutureRemoteRecordUsesWallClock(t *testing.T) {
	ctx := context.Background()
	l, err := NewRequestLog(ctx, storage.NewMemory())
	require.NoError(t, err)

	future := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	l.Reconcile(ctx, func(context.Context) ([]model.RemoteRecord, error) {
		return []model.RemoteRecord{{ID: 1, BirthDate: "d", BirthTime: "t", BirthLocation: "l", Email: "skew@x.com", CreatedAt: future}}, nil
	}, PolicyMerge)

	before := time.Now().UnixMilli()
	got, err := l.Append(ctx, sampleRequest())
	after := time.Now().UnixMilli()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Timestamp, before)
	assert.LessOrEqual(t, got.Timestamp, after)
}

func TestRequestLog_AppendIgnoresFutureStoredEntries(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	require.NoError(t, mem.Save(ctx, RequestsKey, []byte(`[{"birthDate":"d","birthTime":"t","birthLocation":"l","email":"e@x.com","timestamp":4070908800000}]`)))
	l, err := NewRequestLog(ctx, mem)
	require.NoError(t, err)

	before := time.Now().UnixMilli()
	got, err := l.Append(ctx, sampleRequest())
	after := time.Now().UnixMilli()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Timestamp, before)
	assert.LessOrEqual(t, got.Timestamp, after)
	assert.Len(t, l.List(), 2)
}

func TestRequestLog_AppendIncomplete(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	l, err := NewRequestLog(ctx, mem)
	require.NoError(t, err)
	r := sampleRequest()
	r.BirthLocation = ""
	_, err = l.Append(ctx, r)
	assert.ErrorIs(t, err, ErrIncompleteRequest)
	assert.Empty(t, l.List())
	assert.Equal(t, 0, mem.Saves())
}

func TestRequestLog_AppendPersistFailureLeavesLogUnchanged(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	l, err := NewRequestLog(ctx, mem)
	require.NoError(t, err)
	mem.SetFailure(errors.New("disk full"))

	_, err = l.Append(ctx, sampleRequest())
	assert.ErrorIs(t, err, ErrPersist)
	assert.Empty(t, l.List())
}

func TestRequestLog_AppendEmitsTwoSignals(t *testing.T) {
	ctx := context.Background()
	l, err := NewRequestLog(ctx, storage.NewMemory())
	require.NoError(t, err)
	ch, cancel := l.Subscribe(4)
	defer cancel()

	added, err := l.Append(ctx, sampleRequest())
	require.NoError(t, err)
	e1 := <-ch
	e2 := <-ch
	assert.Equal(t, event.NewRequest, e1.Kind)
	require.NotNil(t, e1.Request)
	assert.Equal(t, added, *e1.Request)
	assert.Equal(t, event.RequestsChanged, e2.Kind)
}

func TestRequestLog_ClearIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	l, err := NewRequestLog(ctx, mem)
	require.NoError(t, err)

	require.NoError(t, l.Clear(ctx))
	assert.Empty(t, l.List())
	assert.Equal(t, 0, mem.Saves())

	_, err = l.Append(ctx, sampleRequest())
	require.NoError(t, err)
	require.NoError(t, l.Clear(ctx))
	require.NoError(t, l.Clear(ctx))
	assert.Empty(t, l.List())

	b, err := mem.Load(ctx, RequestsKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func remoteRecords() []model.RemoteRecord {
	return []model.RemoteRecord{
		{ID: 2, BirthDate: "1990-05-05", BirthTime: "08:00", BirthLocation: "上海，徐汇", Email: "r2@x.com", CreatedAt: time.UnixMilli(2_000)},
		{ID: 1, BirthDate: "1991-06-06", BirthTime: "09:00", BirthLocation: "杭州，西湖", Email: "r1@x.com", CreatedAt: time.UnixMilli(1_000)},
	}
}

func TestRequestLog_ReconcileReplace(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	l, err := NewRequestLog(ctx, mem)
	require.NoError(t, err)
	_, err = l.Append(ctx, sampleRequest())
	require.NoError(t, err)

	got := l.Reconcile(ctx, func(context.Context) ([]model.RemoteRecord, error) {
		return remoteRecords(), nil
	}, PolicyReplace)
	require.Len(t, got, 2)
	assert.Equal(t, "r2@x.com", got[0].Email)
	assert.Equal(t, int64(2_000), got[0].Timestamp)
	assert.Equal(t, got, l.List())

	reopened, err := NewRequestLog(ctx, mem)
	require.NoError(t, err)
	assert.Equal(t, got, reopened.List())
}

func TestRequestLog_ReconcileMergeKeepsLocalOnly(t *testing.T) {
	ctx := context.Background()
	l, err := NewRequestLog(ctx, storage.NewMemory(), WithClock(func() time.Time { return time.UnixMilli(3_000) }))
	require.NoError(t, err)
	_, err = l.Append(ctx, sampleRequest())
	require.NoError(t, err)

	got := l.Reconcile(ctx, func(context.Context) ([]model.RemoteRecord, error) {
		return remoteRecords(), nil
	}, PolicyMerge)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"r1@x.com", "r2@x.com", "a@b.com"},
		[]string{got[0].Email, got[1].Email, got[2].Email})
}

func TestRequestLog_ReconcileFailureLeavesLocal(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	l, err := NewRequestLog(ctx, mem)
	require.NoError(t, err)
	_, err = l.Append(ctx, sampleRequest())
	require.NoError(t, err)
	saves := mem.Saves()

	got := l.Reconcile(ctx, func(context.Context) ([]model.RemoteRecord, error) {
		return nil, errors.New("network down")
	}, PolicyReplace)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Len(t, l.List(), 1)
	assert.Equal(t, saves, mem.Saves())
}

func TestFollow_ReloadsOnExternalWrite(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine, err := storage.OpenFile(dir)
	require.NoError(t, err)
	other, err := storage.OpenFile(dir)
	require.NoError(t, err)

	l, err := NewRequestLog(ctx, mine)
	require.NoError(t, err)
	ch, unsub := l.Subscribe(8)
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Follow(ctx, mine, nil, l)
	}()

	otherLog, err := NewRequestLog(ctx, other)
	require.NoError(t, err)

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for l.Len() == 0 {
		select {
		case <-ch:
		case <-tick.C:
			// 监听可能晚于首次写入建立，重复写入直到被观察到
			_, err := otherLog.Append(ctx, sampleRequest())
			require.NoError(t, err)
		case <-deadline:
			t.Fatal("external write not observed")
		}
	}
	assert.Equal(t, "a@b.com", l.List()[0].Email)
	cancel()
	<-done
}
