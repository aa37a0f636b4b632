package start

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量覆盖前缀，如 PIPELINEHEALTH_JWT_SECRET
const EnvPrefix = "PIPELINEHEALTH"

// applyEnv 用环境变量覆盖敏感配置，未设置的保持文件中的值
func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	override := func(key string, dst *string) {
		if val := v.GetString(key); val != "" {
			*dst = val
		}
	}

	override("jwt.secret", &cfg.Jwt.Secret)
	override("db.host", &cfg.Database.Host)
	override("db.user", &cfg.Database.User)
	override("db.password", &cfg.Database.Password)
	override("redis.host", &cfg.Redis.Host)
	override("redis.password", &cfg.Redis.Password)
	override("notify.slack.webhook-url", &cfg.Notify.Slack.WebhookURL)
	override("notify.smtp.host", &cfg.Notify.Smtp.Host)
	override("notify.smtp.user", &cfg.Notify.Smtp.User)
	override("notify.smtp.password", &cfg.Notify.Smtp.Password)
	override("ingest.github-secret", &cfg.Ingest.GithubSecret)
	override("ingest.gitlab-token", &cfg.Ingest.GitlabToken)
	override("ingest.jenkins-token", &cfg.Ingest.JenkinsToken)

	if port := v.GetInt("port"); port > 0 {
		cfg.Port = port
	}
}
