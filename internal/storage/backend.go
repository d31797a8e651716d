// 包 storage 提供按键存取 JSON 文档的持久化后端（文件目录 / SQLite / 内存），
// 以及跨进程的变更监听。
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// ErrNotFound 表示该键尚未持久化过。
var ErrNotFound = errors.New("storage: key not found")

// Backend 为持久化后端：整文档读写，不做合并。
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Change 表示某个键在存储层发生了变化（可能来自其他进程）。
type Change struct {
	Key string
	At  time.Time
}

// Watcher 由支持跨进程变更通知的后端实现。通道在 ctx 结束后关闭。
type Watcher interface {
	Watch(ctx context.Context, keys ...string) (<-chan Change, error)
}

// Open 按类型创建后端：file 使用 dir，sqlite 使用 dsn。
func Open(typ, dir, dsn string) (Backend, error) {
	switch typ {
	case "file", "":
		return OpenFile(dir)
	case "sqlite":
		if dsn == "" {
			dsn = filepath.Join(dir, "site.db")
		}
		return OpenSQLite(dsn)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", typ)
	}
}

func keyFilter(keys []string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}
