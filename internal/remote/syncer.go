package remote

import (
	"context"
	"time"

	"astro-homepage/internal/logx"
	"astro-homepage/internal/model"
	"astro-homepage/internal/store"
)

// Lister 为对账所需的远端读取能力。
type Lister interface {
	ListAll(ctx context.Context) ([]model.RemoteRecord, error)
}

// Syncer 周期性地用远端数据对账本地请求列表。
type Syncer struct {
	log      *store.RequestLog
	src      Lister
	policy   store.Policy
	interval time.Duration
}

func NewSyncer(log *store.RequestLog, src Lister, policy store.Policy, interval time.Duration) *Syncer {
	if policy == "" {
		policy = store.PolicyReplace
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Syncer{log: log, src: src, policy: policy, interval: interval}
}

// SyncOnce 执行一次对账；远端失败时返回空列表，本地不变。
func (s *Syncer) SyncOnce(ctx context.Context) []model.AstrologyRequest {
	return s.log.Reconcile(ctx, s.src.ListAll, s.policy)
}

// Run 立即对账一次，之后按间隔重复，直到 ctx 结束。
// 同步在单一 goroutine 中串行执行，耗时超过间隔时多余的 tick 被丢弃。
func (s *Syncer) Run(ctx context.Context) error {
	s.SyncOnce(ctx)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n := len(s.SyncOnce(ctx))
			logx.Debugf("远端对账完成：%d 条", n)
		}
	}
}
