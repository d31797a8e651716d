package store

import (
	"context"
	"fmt"

	"astro-homepage/internal/logx"
	"astro-homepage/internal/storage"
)

// Follow 监听持久化层的变更（通常来自其他进程），对应文档重新加载。
// 阻塞直到 ctx 结束或监听通道关闭；cfg 与 log 可为 nil。
func Follow(ctx context.Context, w storage.Watcher, cfg *ConfigStore, log *RequestLog) error {
	keys := make([]string, 0, 2)
	if cfg != nil {
		keys = append(keys, ConfigKey)
	}
	if log != nil {
		keys = append(keys, RequestsKey)
	}
	if len(keys) == 0 {
		return nil
	}
	ch, err := w.Watch(ctx, keys...)
	if err != nil {
		return fmt.Errorf("watch storage: %w", err)
	}
	for c := range ch {
		var err error
		switch c.Key {
		case ConfigKey:
			err = cfg.Reload(ctx)
		case RequestsKey:
			err = log.Reload(ctx)
		}
		if err != nil {
			logx.Warnf("重新加载 %s 失败：%v", c.Key, err)
			continue
		}
		logx.Debugf("检测到 %s 数据变化，已重新加载", c.Key)
	}
	return nil
}
