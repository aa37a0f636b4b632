// Package notifier 告警通知分发：Slack、邮件、通用 Webhook，各渠道独立尽力投递
package notifier

import "context"

// Severity 通知级别
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// 渠道名称，出现在 Result 的 sentChannels / failedChannels 中
const (
	ChannelSlack   = "slack"
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
)

// SlackTarget Webhook 为空时使用全局配置的 incoming webhook
type SlackTarget struct {
	Channel string `json:"channel"`
	Webhook string `json:"webhook,omitempty"`
}

// Channels 告警上配置的通知渠道，未配置的渠道直接跳过
type Channels struct {
	Slack   *SlackTarget `json:"slack,omitempty"`
	Email   []string     `json:"email,omitempty"`
	Webhook string       `json:"webhook,omitempty"`
}

func (c Channels) Empty() bool {
	return c.Slack == nil && len(c.Email) == 0 && c.Webhook == ""
}

type Request struct {
	Message  string
	Severity Severity
	Channels Channels
	Metadata map[string]interface{}
}

// Result Success 表示至少一个渠道发送成功
type Result struct {
	Success        bool     `json:"success"`
	SentChannels   []string `json:"sentChannels"`
	FailedChannels []string `json:"failedChannels"`
	Errors         []string `json:"errors"`
}

// Sender 告警评估器依赖的发送能力
type Sender interface {
	Send(ctx context.Context, req Request) Result
}

// Observer 每个渠道的投递结果回调，用于指标统计
type Observer func(channel string, ok bool)

var severityColors = map[Severity]string{
	SeverityCritical: "#FF0000",
	SeverityError:    "#FF6B6B",
	SeverityWarning:  "#FFA500",
	SeverityInfo:     "#4CAF50",
}

var severityEmojis = map[Severity]string{
	SeverityCritical: "🚨",
	SeverityError:    "❌",
	SeverityWarning:  "⚠️",
	SeverityInfo:     "ℹ️",
}

func colorOf(s Severity) string {
	if c, ok := severityColors[s]; ok {
		return c
	}
	return "#808080"
}

func emojiOf(s Severity) string {
	if e, ok := severityEmojis[s]; ok {
		return e
	}
	return "📝"
}
