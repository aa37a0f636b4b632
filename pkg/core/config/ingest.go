package config

// IngestConfig CI 平台 webhook 的校验密钥，为空表示不校验
type IngestConfig struct {
	GithubSecret string `yaml:"github-secret"`
	GitlabToken  string `yaml:"gitlab-token"`
	JenkinsToken string `yaml:"jenkins-token"`
}
