package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"astro-homepage/internal/export"
	"astro-homepage/internal/remote"
	"astro-homepage/internal/store"
)

func newRequestsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "查看与管理占星请求",
	}
	cmd.AddCommand(
		newRequestsListCmd(a),
		newRequestsExportCmd(a),
		newRequestsClearCmd(a),
		newRequestsSyncCmd(a),
	)
	return cmd
}

func newRequestsListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出全部请求",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.requestLog(cmd.Context())
			if err != nil {
				return err
			}
			items := l.List()
			if asJSON {
				return printJSON(cmd, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "暂无占星请求")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "提交时间\t出生日期\t出生时间\t出生地点\t邮箱\t留言")
			for _, r := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.Time().Format("2006-01-02 15:04:05"), r.BirthDate, r.BirthTime, r.BirthLocation, r.Email, r.Message)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newRequestsExportCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出全部请求为 JSON 文件",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.requestLog(cmd.Context())
			if err != nil {
				return err
			}
			path, err := export.RequestsToFile(l.List(), dir, time.Now())
			if errors.Is(err, export.ErrNothingToExport) {
				return fmt.Errorf("暂无数据可导出：%w", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	return cmd
}

func newRequestsClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "清空全部请求（不可恢复）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("clearing is irreversible, re-run with --yes")
			}
			l, err := a.requestLog(cmd.Context())
			if err != nil {
				return err
			}
			if err := l.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "所有请求已清空")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing")
	return cmd
}

func newRequestsSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "立即与远端数据库对账一次",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rs, err := a.remoteStore()
			if err != nil {
				return err
			}
			if rs == nil {
				return errors.New("REMOTE is not enabled")
			}
			l, err := a.requestLog(cmd.Context())
			if err != nil {
				return err
			}
			s := remote.NewSyncer(l, rs, store.Policy(a.cfg.Remote.Policy), a.cfg.Remote.PollInterval)
			s.SyncOnce(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "本地共 %d 条请求\n", l.Len())
			return nil
		},
	}
}
