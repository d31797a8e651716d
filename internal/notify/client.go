// 包 notify 封装邮件中继（EmailJS）通知：带代理与超时的 HTTP 客户端，
// 非 2xx 响应按状态码归类为 *Error。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"astro-homepage/internal/logx"
)

// EmptyMessage 为用户未留言时发送的占位文本。
const EmptyMessage = "无特殊留言"

// Request 为一次通知的业务数据。
type Request struct {
	BirthDate     string
	BirthTime     string
	BirthLocation string
	Email         string
	Message       string
	SubmittedAt   time.Time
}

// Options 为客户端构造参数。
type Options struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	UserID     string
	ToEmail    string
	Timeout    time.Duration
	ProxyHTTP  string
	ProxyHTTPS string
}

// Client 向邮件中继发送模板消息。
type Client struct {
	http *http.Client
	opts Options
}

// New 创建客户端，支持 http/https 代理；Timeout 为单次发送的总时限（默认 10 秒）。
func New(opts Options) *Client {
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && opts.ProxyHTTPS != "" {
				return url.Parse(opts.ProxyHTTPS)
			}
			if req.URL.Scheme == "http" && opts.ProxyHTTP != "" {
				return url.Parse(opts.ProxyHTTP)
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{http: &http.Client{Transport: transport}, opts: opts}
}

type payload struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	TemplateParams templateParams `json:"template_params"`
}

type templateParams struct {
	ToEmail       string `json:"to_email"`
	FromEmail     string `json:"from_email"`
	BirthDate     string `json:"birth_date"`
	BirthTime     string `json:"birth_time"`
	BirthLocation string `json:"birth_location"`
	Message       string `json:"message"`
	SubmitTime    string `json:"submit_time"`
}

func (c *Client) payload(r Request) payload {
	msg := r.Message
	if msg == "" {
		msg = EmptyMessage
	}
	at := r.SubmittedAt
	if at.IsZero() {
		at = time.Now()
	}
	return payload{
		ServiceID:  c.opts.ServiceID,
		TemplateID: c.opts.TemplateID,
		UserID:     c.opts.UserID,
		TemplateParams: templateParams{
			ToEmail:       c.opts.ToEmail,
			FromEmail:     r.Email,
			BirthDate:     r.BirthDate,
			BirthTime:     r.BirthTime,
			BirthLocation: r.BirthLocation,
			Message:       msg,
			SubmitTime:    at.Format("2006-01-02 15:04:05"),
		},
	}
}

// Send 发送一次通知，超时由 Options.Timeout 与 ctx 共同约束。
func (c *Client) Send(ctx context.Context, r Request) error {
	if missing := c.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrNotConfigured, missing)
	}
	body, err := json.Marshal(c.payload(r))
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	text, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Body: string(text)}
	}
	logx.Debugf("邮件通知发送成功，耗时 %v", time.Since(start).Round(time.Millisecond))
	return nil
}

// Missing 返回未配置的必要字段名。
func (c *Client) Missing() []string {
	var out []string
	for _, f := range []struct{ name, v string }{
		{"endpoint", c.opts.Endpoint},
		{"service_id", c.opts.ServiceID},
		{"template_id", c.opts.TemplateID},
		{"user_id", c.opts.UserID},
		{"to_email", c.opts.ToEmail},
	} {
		if f.v == "" {
			out = append(out, f.name)
		}
	}
	return out
}

// Ping 发送一封测试通知，用于检查配置与网络连通性。
func (c *Client) Ping(ctx context.Context) error {
	return c.Send(ctx, Request{
		BirthDate:     "2000-01-01",
		BirthTime:     "12:00",
		BirthLocation: "测试地点",
		Email:         "test@example.com",
	})
}
