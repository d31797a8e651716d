package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"astro-homepage/internal/config"
	"astro-homepage/internal/logx"
	"astro-homepage/internal/notify"
	"astro-homepage/internal/remote"
	"astro-homepage/internal/storage"
	"astro-homepage/internal/store"
)

// app 持有一次命令执行所需的依赖，按需打开。
type app struct {
	cfgPath string
	cfg     *config.Config

	backend  storage.Backend
	configs  *store.ConfigStore
	requests *store.RequestLog
	remote   *remote.Store
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "astro-homepage",
		Short:        "个人主页与占星请求的本地管理工具",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "settings.yaml", "path to settings.yaml")
	root.AddCommand(
		newProfileCmd(a),
		newSubmitCmd(a),
		newRequestsCmd(a),
		newWatchCmd(a),
		newDoctorCmd(a),
	)
	return root
}

// init 加载配置并初始化日志；日志写到 stderr，stdout 留给命令输出。
func (a *app) init(logOut io.Writer) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logx.Init(logx.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Locale: cfg.LogLocale,
		Color:  cfg.LogColor,
		File:   cfg.LogFile,
		Output: logOut,
	})
	return nil
}

func (a *app) openBackend() (storage.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	b, err := storage.Open(a.cfg.Storage.Type, a.cfg.Storage.Dir, a.cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.backend = b
	return b, nil
}

func (a *app) configStore(ctx context.Context) (*store.ConfigStore, error) {
	if a.configs != nil {
		return a.configs, nil
	}
	b, err := a.openBackend()
	if err != nil {
		return nil, err
	}
	defaults, err := a.cfg.LoadSiteDefaults()
	if err != nil {
		logx.Warnf("站点默认配置读取失败，使用内置默认值：%v", err)
	}
	s, err := store.NewConfigStore(ctx, b, defaults)
	if err != nil {
		return nil, err
	}
	a.configs = s
	return s, nil
}

func (a *app) requestLog(ctx context.Context) (*store.RequestLog, error) {
	if a.requests != nil {
		return a.requests, nil
	}
	b, err := a.openBackend()
	if err != nil {
		return nil, err
	}
	l, err := store.NewRequestLog(ctx, b)
	if err != nil {
		return nil, err
	}
	a.requests = l
	return l, nil
}

// remoteStore 返回远端库；未启用时为 nil, nil。
func (a *app) remoteStore() (*remote.Store, error) {
	if !a.cfg.Remote.Enabled {
		return nil, nil
	}
	if a.remote != nil {
		return a.remote, nil
	}
	rs, err := remote.Open(a.cfg.Remote.Driver, a.cfg.Remote.DSN)
	if err != nil {
		return nil, err
	}
	a.remote = rs
	return rs, nil
}

// notifyClient 返回邮件通知客户端；NOTIFY.enabled=false 时为 nil。
func (a *app) notifyClient() *notify.Client {
	if !a.cfg.Notify.On() {
		return nil
	}
	n := a.cfg.Notify
	return notify.New(notify.Options{
		Endpoint:   n.Endpoint,
		ServiceID:  n.ServiceID,
		TemplateID: n.TemplateID,
		UserID:     n.UserID,
		ToEmail:    n.ToEmail,
		Timeout:    n.Timeout,
		ProxyHTTP:  a.cfg.Proxy.HTTP,
		ProxyHTTPS: a.cfg.Proxy.HTTPS,
	})
}

func (a *app) close() {
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			logx.Warnf("关闭远端连接失败：%v", err)
		}
		a.remote = nil
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			logx.Warnf("关闭存储失败：%v", err)
		}
		a.backend = nil
	}
	a.configs, a.requests = nil, nil
	_ = logx.Close()
}
