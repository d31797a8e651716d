// 包 transfer 负责站点配置的导入导出：分享链接（URL 内嵌）、配置文件、
// 请求列表文件与默认配置 YAML。
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"astro-homepage/internal/model"
	"astro-homepage/internal/store"
)

// MaxLinkLen 为分享链接的最大长度，超出时应改用文件导出。
const MaxLinkLen = 2000

// ImportRoute 为分享链接的片段路由。
const ImportRoute = "#/config-import"

var (
	ErrParse           = errors.New("config data cannot be parsed")
	ErrMalformedConfig = errors.New("config data is missing intro, follow or astrology")
	ErrPayloadTooLarge = errors.New("share link too long, use file export instead")
	ErrNoData          = errors.New("share link carries no data parameter")
)

// EncodeForTransfer 生成分享链接：去掉头像 -> JSON -> 百分号编码 -> 拼接导入路由。
func EncodeForTransfer(baseURL string, cfg model.SiteConfig) (string, error) {
	b, err := json.Marshal(cfg.WithoutAvatar())
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	base := baseURL
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	link := base + ImportRoute + "?data=" + escapeComponent(string(b))
	if len(link) > MaxLinkLen {
		return "", fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(link), MaxLinkLen)
	}
	return link, nil
}

// componentUnescape 还原 encodeURIComponent 不编码的字符：空格为 %20，!'()* 保持原样。
var componentUnescape = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// escapeComponent 与浏览器 encodeURIComponent 的输出一致；链接长度按此计算。
func escapeComponent(s string) string {
	return componentUnescape.Replace(url.QueryEscape(s))
}

// EncodeForFile 生成配置文件内容（保留头像）。
func EncodeForFile(cfg model.SiteConfig, now time.Time) ([]byte, error) {
	return encodeIndent(model.ConfigFile{
		Config:     cfg,
		ExportTime: now.UTC().Format("2006-01-02T15:04:05.000Z"),
		Version:    model.ConfigFileVersion,
	})
}

// shape 用于判断三个顶层分区是否存在且为对象。
type shape struct {
	Intro     json.RawMessage `json:"intro"`
	Follow    json.RawMessage `json:"follow"`
	Astrology json.RawMessage `json:"astrology"`
}

func (s shape) complete() bool {
	// 每个分区必须是 JSON 对象；null、字符串、数字、布尔值均视为缺失
	present := func(m json.RawMessage) bool {
		m = bytes.TrimSpace(m)
		return len(m) > 0 && m[0] == '{'
	}
	return present(s.Intro) && present(s.Follow) && present(s.Astrology)
}

// decodeBare 解析裸配置对象（分享链接的数据形态）。
func decodeBare(raw []byte) (model.SiteConfig, error) {
	var s shape
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.SiteConfig{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if !s.complete() {
		return model.SiteConfig{}, ErrMalformedConfig
	}
	var cfg model.SiteConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return model.SiteConfig{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return cfg, nil
}

// DecodeFile 解析配置文件：{"config":{...}} 包装形态。
func DecodeFile(raw []byte) (model.SiteConfig, error) {
	var wrap struct {
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(raw, &wrap); err != nil {
		return model.SiteConfig{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(wrap.Config) == 0 {
		return model.SiteConfig{}, ErrMalformedConfig
	}
	return decodeBare(wrap.Config)
}

// DecodeLink 解析分享链接，或链接中 data 参数的原始值（已编码或未编码均可）。
func DecodeLink(s string) (model.SiteConfig, error) {
	data := strings.TrimSpace(s)
	if i := strings.Index(data, ImportRoute); i >= 0 {
		q := data[i+len(ImportRoute):]
		q = strings.TrimPrefix(q, "?")
		vals, err := url.ParseQuery(q)
		if err != nil {
			return model.SiteConfig{}, fmt.Errorf("%w: %v", ErrParse, err)
		}
		data = vals.Get("data")
		if data == "" {
			return model.SiteConfig{}, ErrNoData
		}
		return decodeBare([]byte(data))
	}
	if !strings.HasPrefix(data, "{") {
		unescaped, err := url.PathUnescape(data)
		if err != nil {
			return model.SiteConfig{}, fmt.Errorf("%w: %v", ErrParse, err)
		}
		data = unescaped
	}
	return decodeBare([]byte(data))
}

// Decode 自动识别两种形态：带 config 字段的文件形态，否则按裸配置处理。
func Decode(raw []byte) (model.SiteConfig, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return model.SiteConfig{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if _, ok := top["config"]; ok {
		return DecodeFile(raw)
	}
	return decodeBare(raw)
}

// Import 将解析后的配置整体写入存储。
func Import(ctx context.Context, s *store.ConfigStore, cfg model.SiteConfig) error {
	if err := s.Set(ctx, cfg); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	return nil
}

// EncodeRequests 生成请求列表导出文件（JSON 数组）。
func EncodeRequests(reqs []model.AstrologyRequest) ([]byte, error) {
	if reqs == nil {
		reqs = []model.AstrologyRequest{}
	}
	return encodeIndent(reqs)
}

// ConfigFileName 形如 site-config-2026-01-02.json。
func ConfigFileName(now time.Time) string {
	return "site-config-" + now.UTC().Format("2006-01-02") + ".json"
}

// RequestsFileName 形如 astrology-requests-2026-01-02.json。
func RequestsFileName(now time.Time) string {
	return "astrology-requests-" + now.UTC().Format("2006-01-02") + ".json"
}

// EncodeDefaults 生成可作为 SITE_DEFAULTS 的 YAML 文档。
func EncodeDefaults(cfg model.SiteConfig) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# 站点默认配置，可在 settings.yaml 中通过 SITE_DEFAULTS 引用\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}
