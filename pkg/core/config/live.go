package config

// LiveConfig 实时推送（websocket）服务配置
type LiveConfig struct {
	// Addr websocket 与 /metrics 监听地址，为空则不启动
	Addr string `yaml:"addr"`
	// Channel 多实例之间通过 Redis 转发事件的频道
	Channel string `yaml:"channel"`
}
