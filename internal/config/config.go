// 包 config 负责加载与校验站点工具的运行设置（settings.yaml），
// 顺序：.env -> YAML -> 环境变量覆盖 -> Validate 默认值与合法性。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"astro-homepage/internal/model"
)

// DefaultNotifyEndpoint 为 EmailJS 发送接口。
const DefaultNotifyEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

type Config struct {
	Storage      Storage `yaml:"STORAGE"`
	SiteDefaults string  `yaml:"SITE_DEFAULTS"` // 可选：站点默认配置 YAML 文件
	ShareBaseURL string  `yaml:"SHARE_BASE_URL"`
	Notify       Notify  `yaml:"NOTIFY"`
	Remote       Remote  `yaml:"REMOTE"`
	Proxy        Proxy   `yaml:"PROXY"`
	LogLevel     string  `yaml:"LOG_LEVEL"`
	LogFormat    string  `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale    string  `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor     string  `yaml:"LOG_COLOR"`  // auto|always|never
	LogFile      string  `yaml:"LOG_FILE"`
}

type Storage struct {
	Type string `yaml:"type"` // file (default) | sqlite
	Dir  string `yaml:"dir"`
	DSN  string `yaml:"dsn"`
}

// Notify 为邮件通知（EmailJS）设置。
type Notify struct {
	Enabled    *bool         `yaml:"enabled"`
	Endpoint   string        `yaml:"endpoint"`
	ServiceID  string        `yaml:"service_id"`
	TemplateID string        `yaml:"template_id"`
	UserID     string        `yaml:"user_id"`
	ToEmail    string        `yaml:"to_email"`
	Timeout    time.Duration `yaml:"timeout"`
}

// On 未显式关闭即视为开启。
func (n Notify) On() bool { return n.Enabled == nil || *n.Enabled }

// Remote 为可选远端请求库设置。
type Remote struct {
	Enabled      bool          `yaml:"enabled"`
	Driver       string        `yaml:"driver"` // mysql|postgres|sqlite
	DSN          string        `yaml:"dsn"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Policy       string        `yaml:"policy"` // replace|merge
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// Load 读取设置文件；文件不存在时使用全部默认值。
func Load(path string) (*Config, error) {
	// .env 仅用于补充密钥类环境变量，不存在不报错
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	}
	c.overrideFromEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) overrideFromEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Notify.ServiceID, "EMAILJS_SERVICE_ID")
	set(&c.Notify.TemplateID, "EMAILJS_TEMPLATE_ID")
	set(&c.Notify.UserID, "EMAILJS_USER_ID")
	set(&c.Notify.ToEmail, "EMAILJS_TO_EMAIL")
	set(&c.Remote.DSN, "REMOTE_DSN")
	set(&c.Storage.Dir, "ASTRO_DATA_DIR")
	set(&c.ShareBaseURL, "SHARE_BASE_URL")
}

// Validate 负责合法性检查与默认值设置。
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "":
		c.Storage.Type = "file"
	case "file", "sqlite":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "./data"
	}
	if c.Storage.Type == "sqlite" && c.Storage.DSN == "" {
		c.Storage.DSN = filepath.Join(c.Storage.Dir, "site.db")
	}
	if c.ShareBaseURL == "" {
		c.ShareBaseURL = "http://localhost:3000/"
	}

	if c.Notify.Endpoint == "" {
		c.Notify.Endpoint = DefaultNotifyEndpoint
	}
	if c.Notify.Timeout < 0 {
		return errors.New("NOTIFY.timeout must be >= 0")
	}
	if c.Notify.Timeout == 0 {
		c.Notify.Timeout = 10 * time.Second
	}

	if c.Remote.Enabled {
		switch c.Remote.Driver {
		case "mysql", "postgres", "sqlite":
		case "":
			return errors.New("REMOTE.driver required when REMOTE.enabled")
		default:
			return fmt.Errorf("unsupported remote driver: %s", c.Remote.Driver)
		}
		if c.Remote.DSN == "" {
			return errors.New("REMOTE.dsn required when REMOTE.enabled")
		}
	}
	if c.Remote.PollInterval < 0 {
		return errors.New("REMOTE.poll_interval must be >= 0")
	}
	if c.Remote.PollInterval == 0 {
		c.Remote.PollInterval = 10 * time.Second
	}
	switch c.Remote.Policy {
	case "":
		c.Remote.Policy = "replace"
	case "replace", "merge":
	default:
		return fmt.Errorf("unsupported remote policy: %s", c.Remote.Policy)
	}

	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}

// LoadSiteDefaults 读取 SITE_DEFAULTS 指向的 YAML；未配置时返回内置默认值。
// 文件中缺失的字段沿用内置默认值。
func (c *Config) LoadSiteDefaults() (model.SiteConfig, error) {
	def := model.DefaultSiteConfig()
	if strings.TrimSpace(c.SiteDefaults) == "" {
		return def, nil
	}
	b, err := os.ReadFile(c.SiteDefaults)
	if err != nil {
		return def, fmt.Errorf("read site defaults %s: %w", c.SiteDefaults, err)
	}
	if err := yaml.Unmarshal(b, &def); err != nil {
		return model.DefaultSiteConfig(), fmt.Errorf("unmarshal site defaults %s: %w", c.SiteDefaults, err)
	}
	return def, nil
}
