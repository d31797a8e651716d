package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"astro-homepage/internal/event"
	"astro-homepage/internal/logx"
	"astro-homepage/internal/model"
	"astro-homepage/internal/storage"
)

// ErrIncompleteRequest 表示必填字段缺失。
var ErrIncompleteRequest = errors.New("request is incomplete")

// Policy 决定远端同步结果如何作用于本地请求列表。
type Policy string

const (
	// PolicyReplace 远端结果整体替换本地列表。
	PolicyReplace Policy = "replace"
	// PolicyMerge 保留远端缺失的本地条目，结果按时间戳升序。
	PolicyMerge Policy = "merge"
)

// FetchFunc 拉取远端记录。
type FetchFunc func(ctx context.Context) ([]model.RemoteRecord, error)

// RequestLog 为有序的占星请求列表（插入顺序即展示与导出顺序）。
type RequestLog struct {
	mu      sync.Mutex
	backend storage.Backend
	items   []model.AstrologyRequest
	last    int64 // 本进程最近一次追加的时间戳，不受远端或外部数据影响
	now     func() time.Time
	bus     *event.Bus
}

// Option 配置 RequestLog。
type Option func(*RequestLog)

// WithClock 替换时间源（测试用）。
func WithClock(now func() time.Time) Option {
	return func(l *RequestLog) { l.now = now }
}

// NewRequestLog 从后端加载已有请求。
func NewRequestLog(ctx context.Context, backend storage.Backend, opts ...Option) (*RequestLog, error) {
	l := &RequestLog{backend: backend, now: time.Now, bus: event.NewBus()}
	for _, o := range opts {
		o(l)
	}
	items, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	l.items = items
	return l, nil
}

func (l *RequestLog) load(ctx context.Context) ([]model.AstrologyRequest, error) {
	b, err := l.backend.Load(ctx, RequestsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", RequestsKey, err)
	}
	var items []model.AstrologyRequest
	if err := json.Unmarshal(b, &items); err != nil {
		logx.Warnf("占星请求数据无法解析，按空列表处理：%v", err)
		return nil, nil
	}
	return items, nil
}

func (l *RequestLog) save(ctx context.Context, items []model.AstrologyRequest) error {
	if items == nil {
		items = []model.AstrologyRequest{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode requests: %w", err)
	}
	if err := l.backend.Save(ctx, RequestsKey, b); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Append 校验必填字段、分配时间戳、追加并整表持久化。
// 持久化失败时内存列表保持不变。成功后依次发出 NewRequest 与 RequestsChanged。
func (l *RequestLog) Append(ctx context.Context, r model.AstrologyRequest) (model.AstrologyRequest, error) {
	if !r.Complete() {
		return model.AstrologyRequest{}, ErrIncompleteRequest
	}
	l.mu.Lock()
	ts := l.now().UnixMilli()
	if ts < l.last {
		ts = l.last
	}
	r.Timestamp = ts
	next := make([]model.AstrologyRequest, len(l.items), len(l.items)+1)
	copy(next, l.items)
	next = append(next, r)
	if err := l.save(ctx, next); err != nil {
		l.mu.Unlock()
		return model.AstrologyRequest{}, err
	}
	l.items = next
	l.last = ts
	l.mu.Unlock()

	logx.Debugf("已追加占星请求：邮箱=%s 时间=%s", r.Email, r.Time().Format("2006-01-02 15:04:05"))
	added := r
	l.bus.Publish(event.Event{Kind: event.NewRequest, Request: &added})
	l.bus.Publish(event.Event{Kind: event.RequestsChanged})
	return r, nil
}

// List 返回当前列表的快照。
func (l *RequestLog) List() []model.AstrologyRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.AstrologyRequest, len(l.items))
	copy(out, l.items)
	return out
}

// Len 返回请求数量。
func (l *RequestLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Clear 清空并持久化，不可恢复；空列表上调用不产生写入。
func (l *RequestLog) Clear(ctx context.Context) error {
	l.mu.Lock()
	if len(l.items) == 0 {
		l.mu.Unlock()
		return nil
	}
	if err := l.save(ctx, nil); err != nil {
		l.mu.Unlock()
		return err
	}
	l.items = nil
	l.mu.Unlock()
	l.bus.Publish(event.Event{Kind: event.RequestsChanged})
	return nil
}

// FromRemote 将远端记录映射为本地结构，时间戳取服务端创建时间。
func FromRemote(recs []model.RemoteRecord) []model.AstrologyRequest {
	out := make([]model.AstrologyRequest, 0, len(recs))
	for _, rec := range recs {
		out = append(out, model.AstrologyRequest{
			BirthDate:     rec.BirthDate,
			BirthTime:     rec.BirthTime,
			BirthLocation: rec.BirthLocation,
			Email:         rec.Email,
			Timestamp:     rec.CreatedAt.UnixMilli(),
		})
	}
	return out
}

// ToRemote 将本地请求映射为远端记录。
func ToRemote(r model.AstrologyRequest) model.RemoteRecord {
	return model.RemoteRecord{
		BirthDate:     r.BirthDate,
		BirthTime:     r.BirthTime,
		BirthLocation: r.BirthLocation,
		Email:         r.Email,
		CreatedAt:     r.Time(),
	}
}

// Reconcile 用远端结果更新本地列表。拉取失败时记录日志、返回空列表且不触碰本地数据。
func (l *RequestLog) Reconcile(ctx context.Context, fetch FetchFunc, policy Policy) []model.AstrologyRequest {
	recs, err := fetch(ctx)
	if err != nil {
		logx.Errorf("获取远端请求失败：%v", err)
		return []model.AstrologyRequest{}
	}
	remote := FromRemote(recs)

	l.mu.Lock()
	next := remote
	if policy == PolicyMerge {
		next = merge(l.items, remote)
	}
	if err := l.save(ctx, next); err != nil {
		logx.Warnf("远端同步结果持久化失败：%v", err)
	}
	l.items = next
	out := make([]model.AstrologyRequest, len(next))
	copy(out, next)
	l.mu.Unlock()

	logx.Debugf("已从远端同步 %d 条请求", len(remote))
	l.bus.Publish(event.Event{Kind: event.RequestsChanged})
	return out
}

type requestKey struct {
	date, clock, location, email string
}

func keyOf(r model.AstrologyRequest) requestKey {
	return requestKey{r.BirthDate, r.BirthTime, r.BirthLocation, r.Email}
}

// merge 合并远端与本地独有条目，按时间戳升序稳定排序。
func merge(local, remote []model.AstrologyRequest) []model.AstrologyRequest {
	seen := make(map[requestKey]bool, len(remote))
	out := make([]model.AstrologyRequest, 0, len(remote)+len(local))
	for _, r := range remote {
		seen[keyOf(r)] = true
		out = append(out, r)
	}
	for _, r := range local {
		if !seen[keyOf(r)] {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// Reload 重新从后端读取（其他进程写入后调用）。
func (l *RequestLog) Reload(ctx context.Context) error {
	items, err := l.load(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	l.bus.Publish(event.Event{Kind: event.RequestsChanged, External: true})
	return nil
}

// Subscribe 订阅请求列表变更，不补发订阅之前的事件。
func (l *RequestLog) Subscribe(buf int) (<-chan event.Event, func()) {
	return l.bus.Subscribe(buf)
}
