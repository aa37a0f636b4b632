package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"pipelinehealth/pkg/clock"
	"pipelinehealth/pkg/scheduler"
	metricdto "pipelinehealth/system/metric/api/dto"
)

// Job 一个可被调度或经命令行单次执行的任务
type Job struct {
	Name    string
	Title   string
	Cron    string
	Timeout time.Duration
	Run     scheduler.TaskFunc
}

// 默认 cron 为 6 段表达式，秒在最前
var defaultCrons = map[string]string{
	"hourly":  "0 0 * * * *",
	"daily":   "0 0 0 * * *",
	"weekly":  "0 0 1 * * 0",
	"monthly": "0 0 2 1 * *",
	"health":  "0 */5 * * * *",
	"alerts":  "0 * * * * *",
	"cleanup": "0 0 2 * * *",
}

// Jobs 返回全部任务，配置中的 scheduler.jobs 覆盖默认 cron
func (a *App) Jobs() []Job {
	jobs := []Job{
		a.computeJob("hourly", "小时指标聚合", metricdto.PeriodHourly),
		a.computeJob("daily", "日指标聚合", metricdto.PeriodDaily),
		a.computeJob("weekly", "周指标聚合", metricdto.PeriodWeekly),
		a.computeJob("monthly", "月指标聚合", metricdto.PeriodMonthly),
		{
			Name:    "health",
			Title:   "流水线健康状态刷新",
			Timeout: 2 * time.Minute,
			Run:     a.PipelineModule.Client.RefreshHealth,
		},
		{
			Name:    "alerts",
			Title:   "告警规则评估",
			Timeout: 50 * time.Second,
			Run: func(ctx context.Context) error {
				_, err := a.AlertModule.Client.EvaluateAll(ctx)
				return err
			},
		},
		{
			Name:    "cleanup",
			Title:   "过期数据清理",
			Timeout: 10 * time.Minute,
			Run:     a.cleanup,
		},
	}

	overrides := a.Infra.Config.Scheduler.Jobs
	for i := range jobs {
		jobs[i].Cron = defaultCrons[jobs[i].Name]
		if expr, ok := overrides[jobs[i].Name]; ok {
			jobs[i].Cron = expr
		}
	}
	return jobs
}

func (a *App) computeJob(name, title string, period metricdto.Period) Job {
	return Job{
		Name:    name,
		Title:   title,
		Timeout: 10 * time.Minute,
		Run: func(ctx context.Context) error {
			return a.MetricModule.Client.ComputeAll(ctx, period)
		},
	}
}

// cleanup 删除保留期之前的告警历史与指标
func (a *App) cleanup(ctx context.Context) error {
	days := a.Infra.Config.Scheduler.RetentionDays
	cutoff := a.clock().Now().AddDate(0, 0, -days)
	log := a.Infra.Logger.WithEntryName("RetentionCleanup").WithField("cutoff", cutoff)

	history, err := a.AlertModule.Client.Cleanup(ctx, cutoff)
	if err != nil {
		return err
	}
	metrics, err := a.MetricModule.Client.Cleanup(ctx, cutoff)
	if err != nil {
		return err
	}
	log.WithField("alertHistory", history).WithField("metrics", metrics).Info("过期数据清理完成")
	return nil
}

func (a *App) clock() clock.Clock {
	if a.Infra.Clock == nil {
		return clock.RealClock{}
	}
	return a.Infra.Clock
}

// NewScheduler 以 Infra 中的锁管理器创建调度器，任务耗时计入监控
func (a *App) NewScheduler() *scheduler.Scheduler {
	cfg := a.Infra.Config.Scheduler
	return scheduler.NewScheduler(a.Infra.Locks, &scheduler.SchedulerConfig{
		NodeID:     fmt.Sprintf("%s-%s-%d", a.Infra.Config.AppName, a.Infra.Config.Host, os.Getpid()),
		LockKey:    cfg.LockKey,
		MaxWorkers: cfg.MaxWorkers,
		Observer:   a.Infra.Metrics.ObserveJob,
	}, a.Infra.Logger)
}

// RegisterJobs 把启用的任务注册到调度器，cron 为空的任务跳过
func (a *App) RegisterJobs(s *scheduler.Scheduler) error {
	log := a.Infra.Logger.WithEntryName("Jobs")
	for _, job := range a.Jobs() {
		if job.Cron == "" {
			log.WithField("job", job.Name).Info("任务已禁用")
			continue
		}
		task, err := scheduler.NewCronTask(job.Name, job.Cron, scheduler.TaskExecuteModeDistributed, job.Timeout, a.traced(job))
		if err != nil {
			return fmt.Errorf("创建任务 %s 失败: %w", job.Name, err)
		}
		s.AddTask(task)
		log.WithField("job", job.Name).WithField("cron", job.Cron).Infof("已注册%s任务", job.Title)
	}
	return nil
}

// RunJob 立即执行一次指定任务，不经过调度器与分布式锁
func (a *App) RunJob(ctx context.Context, name string) error {
	for _, job := range a.Jobs() {
		if job.Name != name {
			continue
		}
		ctx, cancel := context.WithTimeout(ctx, job.Timeout)
		defer cancel()

		start := time.Now()
		err := a.traced(job)(ctx)
		a.Infra.Metrics.ObserveJob(job.Name, time.Since(start), err)
		return err
	}
	return fmt.Errorf("未知任务: %s，可选: %v", name, JobNames())
}

// traced 每次执行开启一个 span，日志中的 TraceId 与之对应
func (a *App) traced(job Job) scheduler.TaskFunc {
	return func(ctx context.Context) error {
		ctx, traceID, finish := a.Infra.Tracer.StartTrace(ctx, "job."+job.Name)
		defer finish()

		err := job.Run(ctx)
		if err != nil {
			a.Infra.Logger.WithEntryName("Jobs").WithField("job", job.Name).WithField("TraceId", traceID).WithErr(err).Error("任务执行失败")
		}
		return err
	}
}

func JobNames() []string {
	names := make([]string, 0, len(defaultCrons))
	for name := range defaultCrons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
