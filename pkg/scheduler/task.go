package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// TaskStatus 任务状态
type TaskStatus int

const (
	// TaskStatusWaiting 等待执行
	TaskStatusWaiting TaskStatus = iota
	// TaskStatusRunning 正在执行
	TaskStatusRunning
	// TaskStatusFailed 上次执行失败，仍会按计划再次执行
	TaskStatusFailed
	// TaskStatusCanceled 已取消
	TaskStatusCanceled
)

func (s TaskStatus) String() string {
	switch s {
	case TaskStatusWaiting:
		return "waiting"
	case TaskStatusRunning:
		return "running"
	case TaskStatusFailed:
		return "failed"
	case TaskStatusCanceled:
		return "canceled"
	}
	return "unknown"
}

// TaskExecuteMode 任务执行模式
type TaskExecuteMode int

const (
	// TaskExecuteModeDistributed 分布式执行，只有领导者节点执行
	TaskExecuteModeDistributed TaskExecuteMode = iota
	// TaskExecuteModeLocal 每个节点都执行
	TaskExecuteModeLocal
)

// TaskFunc 任务执行函数
type TaskFunc func(ctx context.Context) error

// Task 任务接口
type Task interface {
	GetID() string
	GetName() string
	GetExecuteMode() TaskExecuteMode
	GetNextTime() time.Time
	GetTimeout() time.Duration

	// Execute 执行任务
	Execute(ctx context.Context) error

	// UpdateNextTime 按当前时间计算下次执行时间
	UpdateNextTime(currentTime time.Time) time.Time

	// CanExecute 检查是否到达执行时间
	CanExecute(currentTime time.Time) bool

	IsCanceled() bool
	GetStatus() TaskStatus
	SetStatus(status TaskStatus)
}

// parser 6 段 cron，秒在最前
var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseCron 校验并解析 cron 表达式
func ParseCron(expr string) (cron.Schedule, error) {
	return parser.Parse(expr)
}

// CronTask 基于Cron表达式的任务
type CronTask struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	CronExpr    string          `json:"cron_expr"`
	ExecuteMode TaskExecuteMode `json:"execute_mode"`
	Timeout     time.Duration   `json:"timeout"`
	Func        TaskFunc        `json:"-"`

	mu         sync.RWMutex
	status     TaskStatus
	nextTime   time.Time
	updateTime time.Time
	schedule   cron.Schedule
}

// NewCronTask 创建Cron任务
func NewCronTask(name string, cronExpr string, executeMode TaskExecuteMode, timeout time.Duration, fn TaskFunc) (*CronTask, error) {
	schedule, err := ParseCron(cronExpr)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &CronTask{
		ID:          uuid.New().String(),
		Name:        name,
		CronExpr:    cronExpr,
		ExecuteMode: executeMode,
		Timeout:     timeout,
		Func:        fn,
		status:      TaskStatusWaiting,
		nextTime:    schedule.Next(now),
		updateTime:  now,
		schedule:    schedule,
	}, nil
}

func (t *CronTask) GetID() string {
	return t.ID
}

func (t *CronTask) GetName() string {
	return t.Name
}

func (t *CronTask) GetExecuteMode() TaskExecuteMode {
	return t.ExecuteMode
}

func (t *CronTask) GetNextTime() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextTime
}

// GetTimeout 未设置时默认 30 秒
func (t *CronTask) GetTimeout() time.Duration {
	if t.Timeout <= 0 {
		return 30 * time.Second
	}
	return t.Timeout
}

func (t *CronTask) Execute(ctx context.Context) error {
	if t.Func == nil {
		return nil
	}

	t.SetStatus(TaskStatusRunning)
	err := t.Func(ctx)
	if err != nil {
		t.SetStatus(TaskStatusFailed)
	} else {
		t.SetStatus(TaskStatusWaiting)
	}
	return err
}

func (t *CronTask) UpdateNextTime(currentTime time.Time) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextTime = t.schedule.Next(currentTime)
	t.updateTime = time.Now()
	return t.nextTime
}

// CanExecute 失败过的任务同样按计划执行
func (t *CronTask) CanExecute(currentTime time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return (t.status == TaskStatusWaiting || t.status == TaskStatusFailed) && !currentTime.Before(t.nextTime)
}

func (t *CronTask) IsCanceled() bool {
	return t.GetStatus() == TaskStatusCanceled
}

func (t *CronTask) GetStatus() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *CronTask) SetStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	t.updateTime = time.Now()
}
