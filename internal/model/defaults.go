package model

// defaultAvatar：渐变背景 SVG，保证未上传头像时也有显示。
const defaultAvatar = "data:image/svg+xml;base64,PHN2ZyB3aWR0aD0iMTAwIiBoZWlnaHQ9IjEwMCIgdmlld0JveD0iMCAwIDEwMCAxMDAiIGZpbGw9Im5vbmUiIHhtbG5zPSJodHRwOi8vd3d3LnczLm9yZy8yMDAwL3N2ZyI+CjxyZWN0IHdpZHRoPSIxMDAiIGhlaWdodD0iMTAwIiBmaWxsPSJ1cmwoI2dyYWRpZW50KSIvPgo8dGV4dCB4PSI1MCIgeT0iNjUiIGZvbnQtZmFtaWx5PSJBcmlhbCIgZm9udC1zaXplPSIzNiIgdGV4dC1hbmNob3I9Im1pZGRsZSIgZmlsbD0id2hpdGUiPuWwj+WwjzwvdGV4dD4KPGRlZnM+CjxsaW5lYXJHcmFkaWVudCBpZD0iZ3JhZGllbnQiIHgxPSIwJSIgeTE9IjAlIiB4Mj0iMTAwJSIgeTI9IjEwMCUiPgo8c3RvcCBvZmZzZXQ9IjAlIiBzdHlsZT0ic3RvcC1jb2xvcjojZmI3MTIzO3N0b3Atb3BhY2l0eToxIiAvPgo8c3RvcCBvZmZzZXQ9IjEwMCUiIHN0eWxlPSJzdG9wLWNvbG9yOiNmNTk5MDc7c3RvcC1vcGFjaXR5OjEiIC8+CjwvbGluZWFyR3JhZGllbnQ+CjwvZGVmcz4KPC9zdmc+"

// DefaultSiteConfig 返回内置默认配置。
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		Intro: Intro{
			Name:        "panda",
			Description: "产品经理 · 占星新手 · 短剧脑残粉",
			Avatar:      defaultAvatar,
		},
		Follow: Follow{
			Xiaohongbook: Xiaohongbook{
				DramaLink: "https://xhslink.com/m/A1NTqxcQ7FM",
				AILink:    "https://xhslink.com/m/8rqeElMBSgU",
			},
			Email:  "owner@example.com",
			Wechat: "panda-astro",
		},
		Astrology: Astrology{
			ServiceDescription: "仅限本命盘",
			Disclaimer:         "新手上路，仅供参考，可以加微信进一步交流",
			TipAmount:          "一杯咖啡☕️",
		},
	}
}
