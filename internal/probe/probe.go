// 包 probe 检查运行环境是否满足站点功能所需：存储可写、邮件通知已配置、远端可达。
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"astro-homepage/internal/logx"
	"astro-homepage/internal/storage"
)

// CheckTimeout 为单项检查的时限。
const CheckTimeout = 5 * time.Second

// Report 为兼容性检查结果；Issues 为空时 Compatible 为 true。
type Report struct {
	Compatible bool     `json:"compatible"`
	Issues     []string `json:"issues"`
}

// Check 为一项可注入的检查。
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Run 依次执行全部检查，失败项汇总为 Issues。
func Run(ctx context.Context, checks ...Check) Report {
	r := Report{Issues: []string{}}
	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, CheckTimeout)
		err := c.Run(cctx)
		cancel()
		if err != nil {
			logx.Warnf("环境检查未通过：%s：%v", c.Name, err)
			r.Issues = append(r.Issues, fmt.Sprintf("%s: %v", c.Name, err))
			continue
		}
		logx.Debugf("环境检查通过：%s", c.Name)
	}
	r.Compatible = len(r.Issues) == 0
	return r
}

// StorageWritable 写入、读回并删除一个临时键。
func StorageWritable(b storage.Backend) Check {
	return Check{Name: "storage", Run: func(ctx context.Context) error {
		key := "probe-" + uuid.NewString()
		want := []byte(`{"probe":true}`)
		if err := b.Save(ctx, key, want); err != nil {
			return fmt.Errorf("not writable: %w", err)
		}
		defer func() { _ = b.Delete(ctx, key) }()
		got, err := b.Load(ctx, key)
		if err != nil {
			return fmt.Errorf("not readable: %w", err)
		}
		if !bytes.Equal(got, want) {
			return errors.New("read back differs from written data")
		}
		return nil
	}}
}

// ConfigChecker 报告缺失的配置项。
type ConfigChecker interface {
	Missing() []string
}

// NotifierConfigured 检查邮件通知所需字段是否齐全。
func NotifierConfigured(c ConfigChecker) Check {
	return Check{Name: "notify", Run: func(context.Context) error {
		if m := c.Missing(); len(m) > 0 {
			return fmt.Errorf("missing %s", strings.Join(m, ", "))
		}
		return nil
	}}
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Reachable 检查依赖服务（远端数据库或邮件中继）是否可达。
func Reachable(name string, p Pinger) Check {
	return Check{Name: name, Run: p.Ping}
}
