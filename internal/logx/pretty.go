package logx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// PrettyHandler 面向人读的单行输出：时间 等级 消息 k=v...
type PrettyHandler struct {
	w      io.Writer
	level  slog.Level
	zh     bool
	color  bool
	mu     *sync.Mutex
	attrs  []slog.Attr
	prefix string
}

func NewPrettyHandler(w io.Writer, lv slog.Level, locale string, color bool) *PrettyHandler {
	if locale == "" {
		locale = "zh-CN"
	}
	return &PrettyHandler{
		w:     w,
		level: lv,
		zh:    strings.HasPrefix(strings.ToLower(locale), "zh"),
		color: color,
		mu:    &sync.Mutex{},
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, l slog.Level) bool {
	return h.level < levelOff && l >= h.level
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ts.Format("2006-01-02 15:04:05"))
	buf.WriteByte(' ')
	lbl := h.label(r.Level)
	if h.color {
		lbl = colorize(lbl, r.Level)
	}
	buf.WriteString(lbl)
	buf.WriteByte(' ')
	buf.WriteString(r.Message)
	write := func(a slog.Attr) {
		buf.WriteByte(' ')
		buf.WriteString(h.prefix)
		buf.WriteString(a.Key)
		buf.WriteByte('=')
		buf.WriteString(a.Value.String())
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &cp
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.prefix = h.prefix + name + "."
	return &cp
}

func (h *PrettyHandler) label(l slog.Level) string {
	var zh, en string
	switch {
	case l < slog.LevelInfo:
		zh, en = "[调试]", "[DEBUG]"
	case l < slog.LevelWarn:
		zh, en = "[信息]", "[INFO]"
	case l < slog.LevelError:
		zh, en = "[警告]", "[WARN]"
	default:
		zh, en = "[错误]", "[ERROR]"
	}
	if h.zh {
		return zh
	}
	return en
}

func colorize(s string, l slog.Level) string {
	var code string
	switch {
	case l < slog.LevelInfo:
		code = "90"
	case l < slog.LevelWarn:
		code = "36"
	case l < slog.LevelError:
		code = "33"
	default:
		code = "31"
	}
	return fmt.Sprintf("\x1b[%sm%s\x1b[0m", code, s)
}
