// 包 submit 实现占星请求提交流程：校验 -> 本地持久化 -> 远端镜像（可选）-> 邮件通知。
// 持久化是唯一的记录来源；镜像与通知失败只降级为结果中的标记。
package submit

import (
	"context"
	"time"

	"astro-homepage/internal/logx"
	"astro-homepage/internal/model"
	"astro-homepage/internal/notify"
	"astro-homepage/internal/store"
)

// LocationSeparator 用于拼接城市与区县。
const LocationSeparator = "，"

// NotifyTimeout 为邮件通知的默认时限。
const NotifyTimeout = 10 * time.Second

// MirrorTimeout 为远端镜像写入的默认时限；超时只影响 RemoteMirrored。
const MirrorTimeout = 10 * time.Second

// RawFormInput 为用户填写的原始表单。
type RawFormInput struct {
	BirthDate     string `json:"birthDate" validate:"required"`
	BirthTime     string `json:"birthTime" validate:"required"`
	BirthCity     string `json:"birthCity" validate:"required"`
	BirthDistrict string `json:"birthDistrict" validate:"required"`
	Email         string `json:"email" validate:"required,basicemail"`
	Message       string `json:"message" validate:"max=500"`
}

// Location 返回 "城市，区县"。
func (in RawFormInput) Location() string {
	return in.BirthCity + LocationSeparator + in.BirthDistrict
}

// Outcome 为一次成功受理的结果；EmailNotified=false 时调用方应额外提示通知未送达。
type Outcome struct {
	Accepted       bool
	EmailNotified  bool
	RemoteMirrored bool
	Request        model.AstrologyRequest
}

type Appender interface {
	Append(ctx context.Context, r model.AstrologyRequest) (model.AstrologyRequest, error)
}

type Notifier interface {
	Send(ctx context.Context, r notify.Request) error
}

type Mirror interface {
	Insert(ctx context.Context, rec model.RemoteRecord) error
}

// Pipeline 组合各步骤；notifier 与 mirror 均可为 nil。
type Pipeline struct {
	log      Appender
	notifier Notifier
	mirror   Mirror
	timeout  time.Duration
	mirrorTO time.Duration
}

type Option func(*Pipeline)

func WithMirror(m Mirror) Option { return func(p *Pipeline) { p.mirror = m } }

func WithNotifyTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithMirrorTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.mirrorTO = d
		}
	}
}

func New(log Appender, notifier Notifier, opts ...Option) *Pipeline {
	p := &Pipeline{log: log, notifier: notifier, timeout: NotifyTimeout, mirrorTO: MirrorTimeout}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Submit 返回 *ValidationError 或 *PersistenceError；其余失败不影响受理结果。
func (p *Pipeline) Submit(ctx context.Context, in RawFormInput) (Outcome, error) {
	if err := check(in); err != nil {
		logx.Debugf("表单校验失败：%v", err)
		return Outcome{}, err
	}

	saved, err := p.log.Append(ctx, model.AstrologyRequest{
		BirthDate:     in.BirthDate,
		BirthTime:     in.BirthTime,
		BirthLocation: in.Location(),
		Email:         in.Email,
		Message:       in.Message,
	})
	if err != nil {
		logx.Errorf("占星请求保存失败：%v", err)
		return Outcome{}, &PersistenceError{Err: err}
	}
	out := Outcome{Accepted: true, Request: saved}
	out.RemoteMirrored = p.mirrorRemote(ctx, saved)
	out.EmailNotified = p.sendNotification(ctx, saved)
	logx.Infof("占星请求已受理：邮箱=%s 邮件通知=%v", saved.Email, out.EmailNotified)
	return out, nil
}

func (p *Pipeline) mirrorRemote(ctx context.Context, r model.AstrologyRequest) bool {
	if p.mirror == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, p.mirrorTO)
	defer cancel()
	if err := p.mirror.Insert(ctx, store.ToRemote(r)); err != nil {
		logx.Warnf("远端数据库保存失败（本地已保存）：%v", err)
		return false
	}
	return true
}

// sendNotification 在独立的失败域中执行：任何错误（含 panic）都只转换为 false。
func (p *Pipeline) sendNotification(ctx context.Context, r model.AstrologyRequest) (ok bool) {
	if p.notifier == nil {
		return false
	}
	defer func() {
		if rec := recover(); rec != nil {
			logx.Errorf("邮件通知异常：%v", rec)
			ok = false
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err := p.notifier.Send(ctx, notify.Request{
		BirthDate:     r.BirthDate,
		BirthTime:     r.BirthTime,
		BirthLocation: r.BirthLocation,
		Email:         r.Email,
		Message:       r.Message,
		SubmittedAt:   r.Time(),
	})
	if err != nil {
		logx.Warnf("邮件通知发送失败，但请求已保存：%v", err)
		return false
	}
	return true
}
