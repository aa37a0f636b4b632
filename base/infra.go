// Package base 进程级基础设施：配置、日志、数据库、Redis、缓存、锁、监控与实时推送
package base

import (
	"context"
	"fmt"
	"os"

	"pipelinehealth/pkg/clock"
	"pipelinehealth/pkg/core/config"
	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/core/security"
	"pipelinehealth/pkg/core/start"
	"pipelinehealth/pkg/core/tracer"
	"pipelinehealth/pkg/live"
	"pipelinehealth/pkg/lock"
	"pipelinehealth/pkg/monitoring"
	"pipelinehealth/pkg/notifier"

	"github.com/go-redis/cache/v9"
	"github.com/openzipkin/zipkin-go/reporter"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Infra 由 NewInfra 一次性构建，RDB 与 Relay 在未配置 Redis 时为空
type Infra struct {
	Configures *start.Configures
	Config     start.Config
	Logger     *logger.Log
	Auth       *security.Auth
	ENV        string
	ConfigPath string

	DB        *gorm.DB
	RDB       *redis.Client
	Cache     *cache.Cache
	Locks     lock.LockManager
	Metrics   *monitoring.Metrics
	Hub       *live.Hub
	Relay     *live.RedisRelay
	Publisher live.Publisher
	Notifier  *notifier.Dispatcher
	Tracer    tracer.Tracer
	Clock     clock.Clock

	reporter reporter.Reporter
}

// NewInfra 读取配置文件并初始化所有基础组件
func NewInfra(path, env string) (*Infra, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	configures, err := start.NewConfigures(file, env)
	if err != nil {
		return nil, err
	}

	in := &Infra{
		Configures: configures,
		Config:     configures.Config,
		Logger:     configures.Logger,
		Auth:       configures.Auth,
		ENV:        env,
		ConfigPath: path,
		Clock:      clock.RealClock{},
	}

	in.DB, err = configures.EnableDB()
	if err != nil {
		return nil, err
	}

	in.RDB = configures.EnableRedis()
	in.Cache = configures.EnableCache(in.RDB)
	if locker := configures.EnableLocker(in.RDB); locker != nil {
		in.Locks = lock.NewRedisLockManager(locker, in.Config.AppName+":lock:")
	} else {
		in.Locks = lock.NewLocalLockManager()
	}

	in.Metrics = monitoring.New()
	in.Hub = live.NewHub(in.Logger)
	in.Publisher = in.Hub
	if in.RDB != nil {
		// 多实例部署时事件经 Redis 扇出到每个实例的 Hub
		in.Relay = live.NewRedisRelay(in.RDB, in.Config.Live.Channel, in.Hub, in.Logger)
		in.Publisher = in.Relay
	}
	in.Metrics.RegisterGauge("live_clients", "当前实时推送连接数", func() float64 {
		return float64(in.Hub.Count())
	})

	in.Notifier = notifier.NewDispatcher(in.Config.Notify, in.Logger, notifier.WithObserver(in.Metrics.ObserveNotification))
	in.Tracer, in.reporter = configures.EnableTracer()
	return in, nil
}

// LoadNotify 重新读取配置文件中的通知部分，供 notifier.Watch 使用
func (in *Infra) LoadNotify() (config.NotifyConfig, error) {
	file, err := os.ReadFile(in.ConfigPath)
	if err != nil {
		return config.NotifyConfig{}, err
	}
	cfg, err := start.ParseConfig(file, in.ENV)
	if err != nil {
		return config.NotifyConfig{}, err
	}
	return cfg.Notify, nil
}

func (in *Infra) Close(ctx context.Context) {
	in.Hub.Close()
	if in.reporter != nil {
		_ = in.reporter.Close()
	}
	if in.RDB != nil {
		if err := in.RDB.Close(); err != nil {
			in.Logger.WithErr(err).Warn("关闭 Redis 连接失败")
		}
	}
	if sqlDB, err := in.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			in.Logger.WithErr(err).Warn("关闭数据库连接失败")
		}
	}
}
