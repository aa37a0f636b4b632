package config

// NotifyConfig 通知渠道的全局凭证，缺失时对应渠道降级为“未配置”
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Smtp    SmtpConfig    `yaml:"smtp"`
	Webhook WebhookConfig `yaml:"webhook"`
}

type SlackConfig struct {
	// WebhookURL 默认的 Slack incoming webhook，告警可单独覆盖
	WebhookURL     string `yaml:"webhook-url"`
	DefaultChannel string `yaml:"default-channel"`
	Username       string `yaml:"username"`
}

func (s SlackConfig) Configured() bool {
	return s.WebhookURL != ""
}

type SmtpConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func (s SmtpConfig) Configured() bool {
	return s.Host != "" && s.User != "" && s.Password != ""
}

type WebhookConfig struct {
	TimeoutSeconds int `yaml:"timeout-seconds"`
}
