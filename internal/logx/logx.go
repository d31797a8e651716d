// 包 logx 是对标准库 slog 的薄封装：
// - 级别/格式/语言/颜色可配置，可选滚动日志文件（lumberjack）
// - pretty 格式输出 [信息]/[警告] 等中文标签，便于站长在终端阅读
package logx

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options 日志初始化参数；File 为空时只输出到 Output（默认 stdout）。
type Options struct {
	Level  string
	Format string // pretty|json|text
	Locale string // zh-CN|en
	Color  string // auto|always|never
	File   string
	Output io.Writer
}

var fileSink *lumberjack.Logger

// Init 按 Options 构造 Handler 并设置为 slog 默认日志器。
func Init(o Options) {
	lv := parseLevel(o.Level)
	out := o.Output
	if out == nil {
		out = os.Stdout
	}
	color := shouldColor(out, o.Color)
	if fileSink != nil {
		_ = fileSink.Close()
		fileSink = nil
	}
	if o.File != "" {
		fileSink = &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     30, // days
			LocalTime:  true,
		}
		out = io.MultiWriter(out, fileSink)
		// 文件中不写入 ANSI 颜色
		color = false
	}
	slog.SetDefault(slog.New(newHandler(out, lv, o.Format, o.Locale, color)))
}

func newHandler(w io.Writer, lv slog.Level, format, locale string, color bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: lv}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return slog.NewJSONHandler(w, opts)
	case "text":
		return slog.NewTextHandler(w, opts)
	default:
		return NewPrettyHandler(w, lv, locale, color)
	}
}

// Close 关闭日志文件（若有）。
func Close() error {
	if fileSink == nil {
		return nil
	}
	err := fileSink.Close()
	fileSink = nil
	return err
}

// levelOff 高于任何实际级别，用于静默。
const levelOff slog.Level = 100

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none", "silent", "off":
		return levelOff
	default:
		return slog.LevelInfo
	}
}

func Debugf(format string, v ...any) { slog.Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { slog.Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { slog.Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { slog.Error(fmt.Sprintf(format, v...)) }

// shouldColor 遵循 NO_COLOR；auto 时仅在终端上着色。
func shouldColor(w io.Writer, mode string) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true
	case "auto", "":
		f, ok := w.(*os.File)
		if !ok {
			return false
		}
		fi, err := f.Stat()
		return err == nil && fi.Mode()&os.ModeCharDevice != 0
	default:
		return false
	}
}
