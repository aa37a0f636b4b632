package config

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File 非空时同时写入滚动日志文件
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}
