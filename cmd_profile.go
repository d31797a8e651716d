package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"astro-homepage/internal/avatar"
	"astro-homepage/internal/export"
	"astro-homepage/internal/model"
	"astro-homepage/internal/store"
	"astro-homepage/internal/transfer"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "查看与编辑站点配置",
	}
	cmd.AddCommand(
		newProfileShowCmd(a),
		newProfileSetCmd(a),
		newProfileAvatarCmd(a),
		newProfileShareCmd(a),
		newProfileExportCmd(a),
		newProfileImportCmd(a),
		newProfileImportLinkCmd(a),
		newProfileDefaultsCmd(a),
	)
	return cmd
}

func newProfileShowCmd(a *app) *cobra.Command {
	var withAvatar bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "以 JSON 输出当前配置",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.configStore(cmd.Context())
			if err != nil {
				return err
			}
			cfg := s.Get()
			if !withAvatar {
				cfg = cfg.WithoutAvatar()
			}
			return printJSON(cmd, cfg)
		},
	}
	cmd.Flags().BoolVar(&withAvatar, "with-avatar", false, "include the avatar data URI")
	return cmd
}

// profileFields 为 set 命令可修改的字段，键为 flag 名。
func profileFields(cfg *model.SiteConfig) map[string]*string {
	return map[string]*string{
		"name":                &cfg.Intro.Name,
		"title":               &cfg.Intro.Title,
		"description":         &cfg.Intro.Description,
		"email":               &cfg.Follow.Email,
		"wechat":              &cfg.Follow.Wechat,
		"drama-link":          &cfg.Follow.Xiaohongbook.DramaLink,
		"ai-link":             &cfg.Follow.Xiaohongbook.AILink,
		"service-description": &cfg.Astrology.ServiceDescription,
		"disclaimer":          &cfg.Astrology.Disclaimer,
		"tip-amount":          &cfg.Astrology.TipAmount,
	}
}

func newProfileSetCmd(a *app) *cobra.Command {
	var scratch model.SiteConfig
	cmd := &cobra.Command{
		Use:   "set",
		Short: "修改配置字段（仅修改显式给出的字段）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.configStore(cmd.Context())
			if err != nil {
				return err
			}
			given := profileFields(&scratch)
			changed := 0
			_, err = s.Update(cmd.Context(), func(cfg *model.SiteConfig) {
				for name, dst := range profileFields(cfg) {
					if cmd.Flags().Changed(name) {
						*dst = *given[name]
						changed++
					}
				}
			})
			if err != nil {
				return describeSetErr(err)
			}
			if changed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "没有需要修改的字段")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "配置已保存（%d 个字段）\n", changed)
			return nil
		},
	}
	for name, dst := range profileFields(&scratch) {
		cmd.Flags().StringVar(dst, name, "", "set "+name)
	}
	return cmd
}

func describeSetErr(err error) error {
	switch {
	case errors.Is(err, store.ErrEmptyName):
		return fmt.Errorf("名字不能为空：%w", err)
	case errors.Is(err, store.ErrPersist):
		return fmt.Errorf("配置未能保存到本地存储：%w", err)
	default:
		return err
	}
}

func newProfileAvatarCmd(a *app) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "avatar [image]",
		Short: "上传头像（图片，不超过 2MB）或使用 --remove 删除",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remove == (len(args) == 1) {
				return errors.New("either give an image path or --remove")
			}
			var uri string
			if !remove {
				var err error
				if uri, err = avatar.FromFile(args[0]); err != nil {
					return err
				}
			}
			s, err := a.configStore(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := s.Update(cmd.Context(), func(cfg *model.SiteConfig) { cfg.Intro.Avatar = uri }); err != nil {
				return describeSetErr(err)
			}
			if remove {
				fmt.Fprintln(cmd.OutOrStdout(), "头像已删除")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "头像上传成功")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the current avatar")
	return cmd
}

func newProfileShareCmd(a *app) *cobra.Command {
	var base string
	cmd := &cobra.Command{
		Use:   "share",
		Short: "生成分享链接（不含头像）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.configStore(cmd.Context())
			if err != nil {
				return err
			}
			if base == "" {
				base = a.cfg.ShareBaseURL
			}
			link, err := transfer.EncodeForTransfer(base, s.Get())
			if errors.Is(err, transfer.ErrPayloadTooLarge) {
				return fmt.Errorf("配置内容过多，链接过长，请使用 profile export 导出文件：%w", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "override SHARE_BASE_URL")
	return cmd
}

func newProfileExportCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出配置文件（含头像）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.configStore(cmd.Context())
			if err != nil {
				return err
			}
			path, err := export.ConfigToFile(s.Get(), dir, time.Now())
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

func newProfileImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "从配置文件导入（整体替换）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			cfg, err := transfer.Decode(b)
			if err != nil {
				return describeDecodeErr(err)
			}
			return applyImport(cmd, a, cfg)
		},
	}
}

func newProfileImportLinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-link <link|data>",
		Short: "从分享链接导入（链接不含头像，导入后头像为空）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := transfer.DecodeLink(args[0])
			if err != nil {
				return describeDecodeErr(err)
			}
			return applyImport(cmd, a, cfg)
		},
	}
}

func applyImport(cmd *cobra.Command, a *app, cfg model.SiteConfig) error {
	s, err := a.configStore(cmd.Context())
	if err != nil {
		return err
	}
	if err := transfer.Import(cmd.Context(), s, cfg); err != nil {
		return describeSetErr(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "配置导入成功")
	return nil
}

func describeDecodeErr(err error) error {
	switch {
	case errors.Is(err, transfer.ErrMalformedConfig):
		return fmt.Errorf("配置文件格式不正确：%w", err)
	case errors.Is(err, transfer.ErrNoData):
		return fmt.Errorf("链接中没有配置数据：%w", err)
	case errors.Is(err, transfer.ErrParse):
		return fmt.Errorf("无法解析配置数据：%w", err)
	default:
		return err
	}
}

func newProfileDefaultsCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "将当前配置生成为默认配置 YAML（可用作 SITE_DEFAULTS）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.configStore(cmd.Context())
			if err != nil {
				return err
			}
			path, err := export.DefaultsToFile(s.Get(), out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "site-defaults.yaml", "output path")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
