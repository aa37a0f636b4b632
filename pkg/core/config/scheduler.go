package config

// SchedulerConfig 定时任务配置，cron 为 6 段（含秒）表达式，留空表示禁用该任务
type SchedulerConfig struct {
	MaxWorkers    int               `yaml:"max-workers"`
	LockKey       string            `yaml:"lock-key"`
	Jobs          map[string]string `yaml:"jobs"`
	RetentionDays int               `yaml:"retention-days"`
}
