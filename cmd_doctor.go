package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"astro-homepage/internal/probe"
)

func newDoctorCmd(a *app) *cobra.Command {
	var sendTest bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "检查存储、邮件通知与远端数据库配置",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var checks []probe.Check
			b, berr := a.openBackend()
			if berr != nil {
				checks = append(checks, failed("storage", berr))
			} else {
				checks = append(checks, probe.StorageWritable(b))
			}
			if c := a.notifyClient(); c != nil {
				checks = append(checks, probe.NotifierConfigured(c))
				if sendTest {
					checks = append(checks, probe.Reachable("notify-send", c))
				}
			}
			rs, rerr := a.remoteStore()
			switch {
			case rerr != nil:
				checks = append(checks, failed("remote", rerr))
			case rs != nil:
				checks = append(checks, probe.Reachable("remote", rs))
			}

			r := probe.Run(cmd.Context(), checks...)
			if err := printJSON(cmd, r); err != nil {
				return err
			}
			if !r.Compatible {
				return fmt.Errorf("%d issue(s) found", len(r.Issues))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sendTest, "send-test", false, "send a test notification through the relay")
	return cmd
}

// failed 将打开阶段的错误转换为一项失败的检查。
func failed(name string, err error) probe.Check {
	return probe.Check{Name: name, Run: func(context.Context) error { return err }}
}
