package notifier

import (
	"context"
	"strings"
	"sync"
	"time"

	"pipelinehealth/pkg/clock"
	"pipelinehealth/pkg/core/config"
	"pipelinehealth/pkg/core/logger"

	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout = 10 * time.Second
	testMessage    = "This is a test notification from the CI/CD Pipeline Health Dashboard"
)

type Option func(*Dispatcher)

// WithMailer 替换默认的 SMTP 发送实现
func WithMailer(fn func(config.SmtpConfig) Mailer) Option {
	return func(d *Dispatcher) { d.newMailer = fn }
}

func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) { d.clock = c }
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// Dispatcher 实现 Sender，配置可在运行时通过 Reload 替换
type Dispatcher struct {
	log       *logger.Log
	clock     clock.Clock
	observer  Observer
	newMailer func(config.SmtpConfig) Mailer

	mu     sync.RWMutex
	cfg    config.NotifyConfig
	mailer Mailer
}

func NewDispatcher(cfg config.NotifyConfig, log *logger.Log, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log:   log.WithEntryName("Notifier"),
		clock: clock.RealClock{},
		newMailer: func(c config.SmtpConfig) Mailer {
			return NewSmtpMailer(c)
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.Reload(cfg)
	return d
}

// Reload 替换渠道凭证，未完整配置的渠道在发送时降级为失败
func (d *Dispatcher) Reload(cfg config.NotifyConfig) {
	var mailer Mailer
	if cfg.Smtp.Configured() {
		mailer = d.newMailer(cfg.Smtp)
	} else {
		d.log.Warn("邮件配置不完整，邮件通知不可用")
	}
	if !cfg.Slack.Configured() {
		d.log.Debug("未配置全局 Slack webhook，仅告警自带 webhook 可用")
	}

	d.mu.Lock()
	d.cfg = cfg
	d.mailer = mailer
	d.mu.Unlock()
}

func (d *Dispatcher) snapshot() (config.NotifyConfig, Mailer) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg, d.mailer
}

type outcome struct {
	attempted bool
	err       error
}

// Send 已配置的渠道并行发送，互不影响
func (d *Dispatcher) Send(ctx context.Context, req Request) Result {
	cfg, mailer := d.snapshot()
	now := d.clock.Now()
	timeout := time.Duration(cfg.Webhook.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// 固定顺序 slack / email / webhook
	var outcomes [3]outcome
	g, gctx := errgroup.WithContext(ctx)

	if req.Channels.Slack != nil {
		outcomes[0].attempted = true
		url := slackWebhookURL(req.Channels.Slack, cfg.Slack)
		if url == "" {
			outcomes[0].err = errSlackNotConfigured
		} else {
			msg := buildSlackMessage(req, req.Channels.Slack, cfg.Slack, now)
			g.Go(func() error {
				outcomes[0].err = sendSlack(gctx, url, msg, timeout)
				return nil
			})
		}
	}

	if len(req.Channels.Email) > 0 {
		outcomes[1].attempted = true
		if mailer == nil {
			outcomes[1].err = errEmailNotConfigured
		} else {
			g.Go(func() error {
				html, err := renderEmail(req, now)
				if err == nil {
					err = mailer.SendMail(gctx, cfg.Smtp.From, req.Channels.Email, emailSubject(req.Severity), html)
				}
				outcomes[1].err = err
				return nil
			})
		}
	}

	if req.Channels.Webhook != "" {
		outcomes[2].attempted = true
		payload := buildWebhookPayload(req, now)
		g.Go(func() error {
			outcomes[2].err = sendWebhook(gctx, req.Channels.Webhook, payload, timeout)
			return nil
		})
	}

	_ = g.Wait()

	result := Result{SentChannels: []string{}, FailedChannels: []string{}, Errors: []string{}}
	names := [3]string{ChannelSlack, ChannelEmail, ChannelWebhook}
	for i, o := range outcomes {
		if !o.attempted {
			continue
		}
		d.observe(names[i], o.err == nil)
		if o.err == nil {
			result.SentChannels = append(result.SentChannels, names[i])
			continue
		}
		result.FailedChannels = append(result.FailedChannels, names[i])
		result.Errors = append(result.Errors, describe(names[i], o.err))
		d.log.WithErr(o.err).WithField("channel", names[i]).Warn("通知渠道发送失败")
	}
	result.Success = len(result.SentChannels) > 0

	d.log.WithField("severity", req.Severity).
		WithField("sent", strings.Join(result.SentChannels, ",")).
		WithField("failed", strings.Join(result.FailedChannels, ",")).
		Info("通知分发完成")
	return result
}

// Test 以 INFO 级别发送测试通知
func (d *Dispatcher) Test(ctx context.Context, channels Channels) Result {
	return d.Send(ctx, Request{
		Message:  testMessage,
		Severity: SeverityInfo,
		Channels: channels,
		Metadata: map[string]interface{}{
			"test":      true,
			"timestamp": d.clock.Now().Format(time.RFC3339),
		},
	})
}

func (d *Dispatcher) observe(channel string, ok bool) {
	if d.observer != nil {
		d.observer(channel, ok)
	}
}

// describe 未配置类错误原样返回，其余加渠道前缀
func describe(channel string, err error) string {
	if err == errSlackNotConfigured || err == errEmailNotConfigured {
		return err.Error()
	}
	switch channel {
	case ChannelSlack:
		return "Slack error: " + err.Error()
	case ChannelEmail:
		return "Email error: " + err.Error()
	default:
		return "Webhook error: " + err.Error()
	}
}
