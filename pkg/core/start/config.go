package start

import (
	"fmt"
	"net"
	"time"

	"pipelinehealth/pkg/core/config"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/security"
	"pipelinehealth/pkg/core/tracer"

	"github.com/bsm/redislock"
	"github.com/go-redis/cache/v9"
	"github.com/openzipkin/zipkin-go/reporter"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type Config struct {
	AppName   string                 `yaml:"app-name"`
	Env       string                 `yaml:"env"`
	Host      string                 `yaml:"host"`
	Port      int                    `yaml:"port"`
	Cors      string                 `yaml:"cors"`
	Jwt       config.JwtConfig       `yaml:"jwt"`
	Redis     config.RedisConfig     `yaml:"redis"`
	Database  config.Database        `yaml:"db"`
	Proxy     config.ProxyConfig     `yaml:"proxy"`
	Log       config.LogConfig       `yaml:"log"`
	Zipkin    config.ZipkinConfig    `yaml:"zipkin"`
	Live      config.LiveConfig      `yaml:"live"`
	Notify    config.NotifyConfig    `yaml:"notify"`
	Ingest    config.IngestConfig    `yaml:"ingest"`
	Scheduler config.SchedulerConfig `yaml:"scheduler"`
}

type Configures struct {
	Config Config
	Logger *logger.Log
	Auth   *security.Auth
}

// ParseConfig 解析 yaml 配置并补齐默认值
func ParseConfig(file []byte, env string) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return cfg, fmt.Errorf("读取配置失败: %w", err)
	}

	cfg.Env = env
	applyEnv(&cfg)
	if cfg.AppName == "" {
		cfg.AppName = "pipelinehealth"
	}
	if cfg.Port == 0 {
		cfg.Port = 5000
	}
	if cfg.Jwt.ExpireTime <= 0 {
		cfg.Jwt.ExpireTime = 24
	}
	if cfg.Live.Channel == "" {
		cfg.Live.Channel = cfg.AppName + ":live"
	}
	if cfg.Scheduler.LockKey == "" {
		cfg.Scheduler.LockKey = cfg.AppName + ":scheduler:leader"
	}
	if cfg.Scheduler.RetentionDays <= 0 {
		cfg.Scheduler.RetentionDays = 90
	}
	if cfg.Notify.Smtp.Port == 0 {
		cfg.Notify.Smtp.Port = 587
	}
	if cfg.Notify.Smtp.From == "" {
		cfg.Notify.Smtp.From = "noreply@cicd-dashboard.com"
	}
	cfg.Host = getLocalIP()
	return cfg, nil
}

func NewConfigures(file []byte, env string) (*Configures, error) {
	cfg, err := ParseConfig(file, env)
	if err != nil {
		return nil, err
	}
	if cfg.Jwt.Secret == "" {
		return nil, fmt.Errorf("jwt.secret 不能为空")
	}

	c := &Configures{
		Config: cfg,
		Logger: logger.InitLogger(cfg.Log),
	}
	c.Auth = security.NewAuth([]byte(cfg.Jwt.Secret), time.Duration(cfg.Jwt.ExpireTime)*time.Hour)
	return c, nil
}

// getLocalIP 获取本机IP地址（优先获取内网IP）
func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}

	var fallback string
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.To4() == nil {
			continue
		}
		if ipnet.IP.IsPrivate() {
			return ipnet.IP.String()
		}
		if fallback == "" {
			fallback = ipnet.IP.String()
		}
	}
	if fallback != "" {
		return fallback
	}
	return "127.0.0.1"
}

func (c *Configures) EnableDB() (*gorm.DB, error) {
	db, err := config.Open(c.Config.Database, c.Config.Proxy)
	if err != nil {
		c.Logger.WithField("database", c.Config.Database.Host).WithErr(err).Error("连接数据库失败")
		return nil, err
	}
	c.Logger.WithField("type", c.Config.Database.Type).Info("连接数据库成功")
	return db, nil
}

// EnableRedis 未配置 Redis 时返回 nil
func (c *Configures) EnableRedis() *redis.Client {
	if !c.Config.Redis.Enabled() {
		c.Logger.Warn("未配置 Redis，缓存、分布式锁与多实例推送将以单机模式运行")
		return nil
	}
	return config.InitRDB(c.Config.Redis, c.Config.Proxy)
}

func (c *Configures) EnableCache(rdb *redis.Client) *cache.Cache {
	opts := &cache.Options{
		LocalCache: cache.NewTinyLFU(1000, time.Minute),
	}
	if rdb != nil {
		opts.Redis = rdb
	}
	return cache.New(opts)
}

func (c *Configures) EnableLocker(rdb *redis.Client) *redislock.Client {
	if rdb == nil {
		return nil
	}
	return redislock.New(rdb)
}

// EnableTracer 配置了 zipkin 地址时使用 ZipkinTracer，否则退回 SimpleTracer
func (c *Configures) EnableTracer() (tracer.Tracer, reporter.Reporter) {
	if c.Config.Zipkin.Url == "" {
		return tracer.NewSimpleTracer(), nil
	}
	zt, rep, err := config.InitZipkin(c.Config.Zipkin, c.Config.AppName, fmt.Sprintf("%s:%d", c.Config.Host, c.Config.Port))
	if err != nil {
		c.Logger.WithErr(err).Warn("初始化 zipkin 失败，使用简单追踪")
		return tracer.NewSimpleTracer(), nil
	}
	return tracer.NewZipkinTracer(zt, c.Config.AppName), rep
}
