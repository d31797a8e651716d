// 包 model 定义站点配置、占星请求与导入导出结构。
package model

import "time"

// SiteConfig 为站点可编辑内容的单例文档。
type SiteConfig struct {
	Intro     Intro     `json:"intro" yaml:"intro"`
	Follow    Follow    `json:"follow" yaml:"follow"`
	Astrology Astrology `json:"astrology" yaml:"astrology"`
}

// Intro 自我介绍；Avatar 为 data URI 或 URL，为空时不输出。
type Intro struct {
	Name        string `json:"name" yaml:"name"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Avatar      string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
}

type Follow struct {
	Xiaohongbook Xiaohongbook `json:"xiaohongbook" yaml:"xiaohongbook"`
	Email        string       `json:"email" yaml:"email"`
	Wechat       string       `json:"wechat" yaml:"wechat"`
}

type Xiaohongbook struct {
	DramaLink string `json:"dramaLink" yaml:"dramaLink"`
	AILink    string `json:"aiLink" yaml:"aiLink"`
}

type Astrology struct {
	ServiceDescription string `json:"serviceDescription" yaml:"serviceDescription"`
	Disclaimer         string `json:"disclaimer" yaml:"disclaimer"`
	TipAmount          string `json:"tipAmount" yaml:"tipAmount"`
}

// WithoutAvatar 返回去掉头像的副本（分享链接不携带头像）。
func (c SiteConfig) WithoutAvatar() SiteConfig {
	c.Intro.Avatar = ""
	return c
}

// AstrologyRequest 为一条已受理的占星请求。
type AstrologyRequest struct {
	BirthDate     string `json:"birthDate"`
	BirthTime     string `json:"birthTime"`
	BirthLocation string `json:"birthLocation"`
	Email         string `json:"email"`
	Message       string `json:"message,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

// Complete 报告必填字段是否齐全。
func (r AstrologyRequest) Complete() bool {
	return r.BirthDate != "" && r.BirthTime != "" && r.BirthLocation != "" && r.Email != ""
}

// Time 将毫秒时间戳转换为 time.Time。
func (r AstrologyRequest) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// RemoteRecord 为远端库中的请求记录（snake_case 字段，服务端创建时间）。
type RemoteRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BirthDate     string    `gorm:"size:32" json:"birth_date"`
	BirthTime     string    `gorm:"size:32" json:"birth_time"`
	BirthLocation string    `gorm:"size:128" json:"birth_location"`
	Email         string    `gorm:"size:128" json:"email"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (RemoteRecord) TableName() string { return "astrology_requests" }

// ConfigFile 为配置文件导出的顶层结构。
type ConfigFile struct {
	Config     SiteConfig `json:"config"`
	ExportTime string     `json:"exportTime"`
	Version    string     `json:"version"`
}

// ConfigFileVersion 为当前导出格式版本。
const ConfigFileVersion = "1.0"
