package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"astro-homepage/internal/logx"
	"astro-homepage/internal/submit"
)

func newSubmitCmd(a *app) *cobra.Command {
	var in submit.RawFormInput
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "提交一条占星请求",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.requestLog(cmd.Context())
			if err != nil {
				return err
			}
			var notifier submit.Notifier
			if c := a.notifyClient(); c != nil {
				notifier = c
			}
			opts := []submit.Option{submit.WithNotifyTimeout(a.cfg.Notify.Timeout)}
			rs, err := a.remoteStore()
			switch {
			case err != nil:
				logx.Warnf("远端数据库不可用，仅保存到本地：%v", err)
			case rs != nil:
				opts = append(opts, submit.WithMirror(rs))
			}

			out, err := submit.New(l, notifier, opts...).Submit(cmd.Context(), in)
			if err != nil {
				return describeSubmitErr(err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "提交成功！我会尽快通过邮件与您联系。")
			if !out.EmailNotified {
				fmt.Fprintln(w, "提示：邮件通知未能送达，但您的请求已保存。")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.BirthDate, "birth-date", "", "birth date, e.g. 2000-01-01")
	f.StringVar(&in.BirthTime, "birth-time", "", "birth time, e.g. 12:00")
	f.StringVar(&in.BirthCity, "city", "", "birth city")
	f.StringVar(&in.BirthDistrict, "district", "", "birth district")
	f.StringVar(&in.Email, "email", "", "contact email")
	f.StringVar(&in.Message, "message", "", "optional message (max 500 characters)")
	return cmd
}

func describeSubmitErr(err error) error {
	var ve *submit.ValidationError
	if errors.As(err, &ve) {
		switch ve.Kind {
		case submit.IncompleteFields:
			return fmt.Errorf("请填写所有必填项（%s）", strings.Join(ve.Fields, ", "))
		case submit.BadEmailFormat:
			return errors.New("请输入有效的邮箱地址")
		case submit.MessageTooLong:
			return fmt.Errorf("留言不能超过 %d 个字符", submit.MaxMessageLen)
		}
		return err
	}
	var pe *submit.PersistenceError
	if errors.As(err, &pe) {
		return fmt.Errorf("提交失败，请稍后重试：%w", err)
	}
	return err
}
