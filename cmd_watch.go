package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"astro-homepage/internal/event"
	"astro-homepage/internal/logx"
	"astro-homepage/internal/remote"
	"astro-homepage/internal/storage"
	"astro-homepage/internal/store"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "持续输出配置与请求的变化，并按间隔与远端对账",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, a, cmd.OutOrStdout())
		},
	}
}

func runWatch(ctx context.Context, a *app, w io.Writer) error {
	cfgs, err := a.configStore(ctx)
	if err != nil {
		return err
	}
	reqs, err := a.requestLog(ctx)
	if err != nil {
		return err
	}
	cfgEvents, cancelCfg := cfgs.Subscribe(event.DefaultBuffer)
	defer cancelCfg()
	reqEvents, cancelReq := reqs.Subscribe(event.DefaultBuffer)
	defer cancelReq()

	g, ctx := errgroup.WithContext(ctx)
	if watcher, ok := a.backend.(storage.Watcher); ok {
		g.Go(func() error { return store.Follow(ctx, watcher, cfgs, reqs) })
	} else {
		logx.Warnf("当前存储不支持跨进程变更通知")
	}

	rs, err := a.remoteStore()
	switch {
	case err != nil:
		logx.Warnf("远端数据库不可用，跳过对账：%v", err)
	case rs != nil:
		s := remote.NewSyncer(reqs, rs, store.Policy(a.cfg.Remote.Policy), a.cfg.Remote.PollInterval)
		g.Go(func() error { return s.Run(ctx) })
		logx.Infof("远端对账已启动：间隔=%v 策略=%s", a.cfg.Remote.PollInterval, a.cfg.Remote.Policy)
	}

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case e := <-cfgEvents:
				printEvent(w, e)
			case e := <-reqEvents:
				printEvent(w, e)
			}
		}
	})
	logx.Infof("正在监听数据变化，按 Ctrl+C 退出")
	return g.Wait()
}

func printEvent(w io.Writer, e event.Event) {
	src := "本进程"
	if e.External {
		src = "其他进程"
	}
	switch e.Kind {
	case event.ConfigChanged:
		fmt.Fprintf(w, "[%s] 站点配置已更新\n", src)
	case event.NewRequest:
		if e.Request != nil {
			fmt.Fprintf(w, "[%s] 新的占星请求：%s %s\n", src, e.Request.Email, e.Request.BirthLocation)
		}
	case event.RequestsChanged:
		fmt.Fprintf(w, "[%s] 请求列表已更新\n", src)
	}
}
