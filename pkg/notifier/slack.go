package notifier

import (
	"context"
	"errors"
	"time"

	"pipelinehealth/pkg/core/config"
	"pipelinehealth/pkg/core/util"

	jsoniter "github.com/json-iterator/go"
)

var errSlackNotConfigured = errors.New("Slack client not configured")

const slackFooter = "CI/CD Pipeline Health Dashboard"

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

// slackWebhookURL 告警级 webhook 优先，其次全局配置
func slackWebhookURL(target *SlackTarget, cfg config.SlackConfig) string {
	if target != nil && target.Webhook != "" {
		return target.Webhook
	}
	return cfg.WebhookURL
}

func buildSlackMessage(req Request, target *SlackTarget, cfg config.SlackConfig, now time.Time) slackMessage {
	channel := cfg.DefaultChannel
	if target != nil && target.Channel != "" {
		channel = target.Channel
	}

	attachment := slackAttachment{
		Color: colorOf(req.Severity),
		Fields: []slackField{
			{Title: "Severity", Value: string(req.Severity), Short: true},
			{Title: "Timestamp", Value: now.Format("2006-01-02 15:04:05 MST"), Short: true},
		},
		Footer: slackFooter,
		Ts:     now.Unix(),
	}
	if len(req.Metadata) > 0 {
		details, _ := jsoniter.MarshalIndent(req.Metadata, "", "  ")
		attachment.Fields = append(attachment.Fields, slackField{Title: "Details", Value: string(details)})
	}

	return slackMessage{
		Channel:     channel,
		Username:    cfg.Username,
		Text:        emojiOf(req.Severity) + " " + req.Message,
		Attachments: []slackAttachment{attachment},
	}
}

func sendSlack(ctx context.Context, url string, msg slackMessage, timeout time.Duration) error {
	if deadline, ok := ctx.Deadline(); ok {
		if remain := time.Until(deadline); remain < timeout {
			timeout = remain
		}
	}
	_, err := util.HttpPostTimeout(url, msg, timeout)
	return err
}
