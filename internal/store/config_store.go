// 包 store 持有站点配置与占星请求两份文档：内存值 + 持久化后端 + 变更通知。
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"astro-homepage/internal/event"
	"astro-homepage/internal/logx"
	"astro-homepage/internal/model"
	"astro-homepage/internal/storage"
)

// 持久化键名，与历史数据保持一致。
const (
	ConfigKey   = "site-config"
	RequestsKey = "astrology-requests"
)

var (
	// ErrPersist 表示写入持久化后端失败。
	ErrPersist = errors.New("persist failed")
	// ErrEmptyName 表示配置缺少 intro.name。
	ErrEmptyName = errors.New("intro.name must not be empty")
)

// ConfigStore 为站点配置的单例存储；Set 为整体替换，不做局部合并。
type ConfigStore struct {
	mu       sync.RWMutex
	backend  storage.Backend
	defaults model.SiteConfig
	cur      model.SiteConfig
	bus      *event.Bus
}

// NewConfigStore 从后端加载配置；不存在或无法解析时使用 defaults。
func NewConfigStore(ctx context.Context, backend storage.Backend, defaults model.SiteConfig) (*ConfigStore, error) {
	s := &ConfigStore{backend: backend, defaults: defaults, cur: defaults, bus: event.NewBus()}
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.cur = cfg
	return s, nil
}

func (s *ConfigStore) load(ctx context.Context) (model.SiteConfig, error) {
	b, err := s.backend.Load(ctx, ConfigKey)
	if errors.Is(err, storage.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return s.defaults, fmt.Errorf("load %s: %w", ConfigKey, err)
	}
	var cfg model.SiteConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		logx.Warnf("配置数据无法解析，使用默认配置：%v", err)
		return s.defaults, nil
	}
	return cfg, nil
}

// Get 返回当前配置。
func (s *ConfigStore) Get() model.SiteConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Set 替换整份配置并写穿到后端。写入失败时内存值仍然生效，返回包装了 ErrPersist 的错误。
func (s *ConfigStore) Set(ctx context.Context, cfg model.SiteConfig) error {
	if cfg.Intro.Name == "" {
		return ErrEmptyName
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	s.mu.Lock()
	s.cur = cfg
	saveErr := s.backend.Save(ctx, ConfigKey, b)
	s.mu.Unlock()

	s.bus.Publish(event.Event{Kind: event.ConfigChanged})
	if saveErr != nil {
		logx.Warnf("配置持久化失败，仅本次运行有效：%v", saveErr)
		return fmt.Errorf("%w: %v", ErrPersist, saveErr)
	}
	return nil
}

// Update 读取-修改-写回的便捷方法。
func (s *ConfigStore) Update(ctx context.Context, fn func(*model.SiteConfig)) (model.SiteConfig, error) {
	cfg := s.Get()
	fn(&cfg)
	return cfg, s.Set(ctx, cfg)
}

// Reload 重新从后端读取（其他进程写入后调用），并发出外部变更通知。
func (s *ConfigStore) Reload(ctx context.Context) error {
	cfg, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cur = cfg
	s.mu.Unlock()
	s.bus.Publish(event.Event{Kind: event.ConfigChanged, External: true})
	return nil
}

// Subscribe 订阅配置变更，不补发订阅之前的事件。
func (s *ConfigStore) Subscribe(buf int) (<-chan event.Event, func()) {
	return s.bus.Subscribe(buf)
}
