// Package health 进程存活、就绪与依赖组件的健康检查
package health

import (
	"context"
	"runtime"
	"time"

	"pipelinehealth/pkg/clock"
	"pipelinehealth/pkg/core/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
	StatusDisabled  = "disabled"
	StatusWarning   = "warning"

	pingTimeout     = 3 * time.Second
	heapWarnPercent = 90
)

// Counter 返回当前实时推送连接数，由 live.Hub 实现
type Counter interface {
	Count() int
}

// Checker Redis 与 Live 可为空
type Checker struct {
	db      *gorm.DB
	rdb     *redis.Client
	live    Counter
	env     string
	started time.Time
	clock   clock.Clock
	log     *logger.Log
}

type Options struct {
	DB    *gorm.DB
	Redis *redis.Client
	Live  Counter
	Env   string
	Clock clock.Clock
	Log   *logger.Log
}

func NewChecker(opts Options) *Checker {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	return &Checker{
		db:      opts.DB,
		rdb:     opts.Redis,
		live:    opts.Live,
		env:     opts.Env,
		started: opts.Clock.Now(),
		clock:   opts.Clock,
		log:     opts.Log.WithEntryName("HealthChecker"),
	}
}

// Component 单个依赖的检查结果，ResponseTime 单位毫秒
type Component struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"responseTime"`
	Error        string `json:"error,omitempty"`
}

type Memory struct {
	Status  string `json:"status"`
	HeapMB  uint64 `json:"heapUsed"`
	TotalMB uint64 `json:"heapTotal"`
	SysMB   uint64 `json:"sys"`
	NumGC   uint32 `json:"numGC"`
}

type Basic struct {
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
	Uptime      float64 `json:"uptime"`
	Environment string  `json:"environment"`
}

type Detailed struct {
	Overall      string               `json:"overall"`
	Timestamp    string               `json:"timestamp"`
	Uptime       float64              `json:"uptime"`
	Environment  string               `json:"environment"`
	ResponseTime int64                `json:"responseTime"`
	Components   map[string]Component `json:"components"`
	Memory       Memory               `json:"memory"`
	Goroutines   int                  `json:"goroutines"`
	LiveClients  int                  `json:"liveClients"`
}

func (c *Checker) timestamp() string {
	return c.clock.Now().UTC().Format(time.RFC3339)
}

func (c *Checker) uptime() float64 {
	return c.clock.Now().Sub(c.started).Seconds()
}

func (c *Checker) Basic() Basic {
	return Basic{
		Status:      StatusHealthy,
		Timestamp:   c.timestamp(),
		Uptime:      c.uptime(),
		Environment: c.env,
	}
}

// Database 执行 SELECT 1 并记录耗时
func (c *Checker) Database(ctx context.Context) Component {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	var one int
	if err := c.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.log.WithErr(err).Warn("数据库健康检查失败")
		return Component{Status: StatusUnhealthy, ResponseTime: time.Since(start).Milliseconds(), Error: err.Error()}
	}
	return Component{Status: StatusHealthy, ResponseTime: time.Since(start).Milliseconds()}
}

func (c *Checker) Redis(ctx context.Context) Component {
	if c.rdb == nil {
		return Component{Status: StatusDisabled}
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.log.WithErr(err).Warn("Redis 健康检查失败")
		return Component{Status: StatusUnhealthy, ResponseTime: time.Since(start).Milliseconds(), Error: err.Error()}
	}
	return Component{Status: StatusHealthy, ResponseTime: time.Since(start).Milliseconds()}
}

func memory() Memory {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m := Memory{
		Status:  StatusHealthy,
		HeapMB:  ms.HeapAlloc / 1024 / 1024,
		TotalMB: ms.HeapSys / 1024 / 1024,
		SysMB:   ms.Sys / 1024 / 1024,
		NumGC:   ms.NumGC,
	}
	if ms.HeapSys > 0 && ms.HeapAlloc*100/ms.HeapSys >= heapWarnPercent {
		m.Status = StatusWarning
	}
	return m
}

// Detailed 数据库不健康或内存告警时整体为 degraded
func (c *Checker) Detailed(ctx context.Context) Detailed {
	start := time.Now()
	db := c.Database(ctx)
	rdb := c.Redis(ctx)
	mem := memory()

	overall := StatusHealthy
	if db.Status != StatusHealthy || rdb.Status == StatusUnhealthy || mem.Status != StatusHealthy {
		overall = StatusDegraded
	}

	d := Detailed{
		Overall:     overall,
		Timestamp:   c.timestamp(),
		Uptime:      c.uptime(),
		Environment: c.env,
		Components: map[string]Component{
			"database": db,
			"redis":    rdb,
		},
		Memory:     mem,
		Goroutines: runtime.NumGoroutine(),
	}
	if c.live != nil {
		d.LiveClients = c.live.Count()
	}
	d.ResponseTime = time.Since(start).Milliseconds()
	return d
}

// Ready 数据库可用即就绪
func (c *Checker) Ready(ctx context.Context) (bool, map[string]bool) {
	checks := map[string]bool{
		"database": c.Database(ctx).Status == StatusHealthy,
		"startup":  true,
	}
	return checks["database"], checks
}
