// 包 export 负责把站点配置、占星请求与默认配置写成本地文件。
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"astro-homepage/internal/model"
	"astro-homepage/internal/transfer"
)

// ErrNothingToExport 表示请求列表为空，不生成文件。
var ErrNothingToExport = errors.New("no astrology requests to export")

// ConfigToFile 将配置（含头像）写入 dir/site-config-YYYY-MM-DD.json，返回文件路径。
func ConfigToFile(cfg model.SiteConfig, dir string, now time.Time) (string, error) {
	b, err := transfer.EncodeForFile(cfg, now)
	if err != nil {
		return "", err
	}
	return write(filepath.Join(dir, transfer.ConfigFileName(now)), b)
}

// RequestsToFile 将请求列表写入 dir/astrology-requests-YYYY-MM-DD.json。
func RequestsToFile(reqs []model.AstrologyRequest, dir string, now time.Time) (string, error) {
	if len(reqs) == 0 {
		return "", ErrNothingToExport
	}
	b, err := transfer.EncodeRequests(reqs)
	if err != nil {
		return "", err
	}
	return write(filepath.Join(dir, transfer.RequestsFileName(now)), b)
}

// DefaultsToFile 将配置写为 YAML，可直接作为 SITE_DEFAULTS 使用。
func DefaultsToFile(cfg model.SiteConfig, path string) (string, error) {
	b, err := transfer.EncodeDefaults(cfg)
	if err != nil {
		return "", err
	}
	return write(path, b)
}

func write(path string, b []byte) (string, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
