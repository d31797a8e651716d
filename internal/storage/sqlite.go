package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"astro-homepage/internal/logx"
)

// SQLite 将文档保存在 kv 表中，基于 modernc.org/sqlite（纯 Go 实现）。
// version 列每次写入递增，供 Watch 轮询发现其他进程的修改。
type SQLite struct {
	db           *sql.DB
	PollInterval time.Duration
}

// OpenSQLite 打开数据库并执行自动迁移。
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db, PollInterval: time.Second}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// migrate 建表，保持幂等。
func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS kv (
            key TEXT PRIMARY KEY,
            value BLOB NOT NULL,
            version INTEGER NOT NULL DEFAULT 1,
            updated_at TIMESTAMP
        );`)
	if err != nil {
		return fmt.Errorf("exec migrate: %w", err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, key string) ([]byte, error) {
	var b []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return b, nil
}

// Save 插入或整体替换（key 唯一约束）。
func (s *SQLite) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv(key, value, version, updated_at)
        VALUES(?,?,1,?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value, version=kv.version+1, updated_at=excluded.updated_at`,
		key, data, time.Now())
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// versions 返回给定键（为空则全部）的当前版本号。
func (s *SQLite) versions(ctx context.Context, keys []string) (map[string]int64, error) {
	q := `SELECT key, version FROM kv`
	args := make([]any, 0, len(keys))
	if len(keys) > 0 {
		q += ` WHERE key IN (` + strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",") + `)`
		for _, k := range keys {
			args = append(args, k)
		}
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var k string
		var v int64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan versions: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return out, nil
}

// Watch 按 PollInterval 轮询版本号，版本变化或键被删除时上报。
func (s *SQLite) Watch(ctx context.Context, keys ...string) (<-chan Change, error) {
	last, err := s.versions(ctx, keys)
	if err != nil {
		return nil, err
	}
	interval := s.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	out := make(chan Change, 8)
	go func() {
		defer close(out)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			cur, err := s.versions(ctx, keys)
			if err != nil {
				if ctx.Err() == nil {
					logx.Warnf("轮询存储版本失败：%v", err)
				}
				continue
			}
			for k, v := range cur {
				if last[k] != v {
					select {
					case out <- Change{Key: k, At: time.Now()}:
					case <-ctx.Done():
						return
					}
				}
			}
			for k := range last {
				if _, ok := cur[k]; !ok {
					select {
					case out <- Change{Key: k, At: time.Now()}:
					case <-ctx.Done():
						return
					}
				}
			}
			last = cur
		}
	}()
	return out, nil
}
