package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"astro-homepage/internal/logx"
)

const fileExt = ".json"

// File 将每个键保存为目录下的 <key>.json；写入先落临时文件再原子重命名。
type File struct {
	dir string
}

// OpenFile 打开（必要时创建）存储目录。
func OpenFile(dir string) (*File, error) {
	if dir == "" {
		dir = "./data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

func (f *File) Dir() string { return f.dir }

func (f *File) path(key string) string { return filepath.Join(f.dir, key+fileExt) }

func (f *File) Load(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

func (f *File) Save(_ context.Context, key string, data []byte) error {
	tmp := filepath.Join(f.dir, "."+key+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, f.path(key)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (f *File) Close() error { return nil }

// Watch 监听目录，仅上报给定键（为空则上报全部键）的创建/写入/重命名/删除。
func (f *File) Watch(ctx context.Context, keys ...string) (<-chan Change, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new watcher: %w", err)
	}
	if err := w.Add(f.dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", f.dir, err)
	}
	want := keyFilter(keys)
	out := make(chan Change, 8)
	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				key, ok := f.keyOf(ev)
				if !ok || (len(want) > 0 && !want[key]) {
					continue
				}
				select {
				case out <- Change{Key: key, At: time.Now()}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logx.Warnf("存储目录监听错误：%v", err)
			}
		}
	}()
	return out, nil
}

// keyOf 从事件中还原键名；临时文件与 chmod 事件忽略。
func (f *File) keyOf(ev fsnotify.Event) (string, bool) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return "", false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	return strings.TrimSuffix(name, fileExt), true
}
