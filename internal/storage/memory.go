package storage

import (
	"context"
	"sync"
)

// Memory 为进程内后端，主要用于测试；SetFailure 后所有写入失败。
type Memory struct {
	mu      sync.Mutex
	data    map[string][]byte
	saveErr error
	saves   int
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[key] = append([]byte(nil), data...)
	m.saves++
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error { return nil }

// SetFailure 设置（或清除）写入错误。
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}

// Saves 返回成功写入次数。
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
