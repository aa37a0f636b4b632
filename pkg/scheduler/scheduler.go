package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pipelinehealth/pkg/core/logger"
	"pipelinehealth/pkg/lock"
)

// TaskObserver 每次任务执行结束后回调，用于上报指标
type TaskObserver func(name string, duration time.Duration, err error)

// Scheduler 任务调度器，分布式任务只在持有领导锁的节点执行
type Scheduler struct {
	nodeID        string
	lockTTL       time.Duration
	checkInterval time.Duration

	isRunning atomic.Bool
	isLeader  atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	taskHeap        *TaskHeap
	distributedLock lock.DistributedLock
	workerSemaphore chan struct{}

	timer   *time.Timer
	timerMu sync.Mutex

	log      *logger.Log
	observer TaskObserver
	stats    *SchedulerStats
}

// SchedulerStats 调度器统计信息
type SchedulerStats struct {
	mu               sync.RWMutex
	TotalTasks       int64     `json:"totalTasks"`
	CompletedTasks   int64     `json:"completedTasks"`
	FailedTasks      int64     `json:"failedTasks"`
	DistributedTasks int64     `json:"distributedTasks"`
	LocalTasks       int64     `json:"localTasks"`
	LeaderElections  int64     `json:"leaderElections"`
	LastExecuteTime  time.Time `json:"lastExecuteTime"`
}

type SchedulerConfig struct {
	NodeID        string
	LockKey       string
	LockTTL       time.Duration
	CheckInterval time.Duration
	MaxWorkers    int
	Observer      TaskObserver
}

func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		NodeID:        fmt.Sprintf("scheduler-%d", time.Now().UnixNano()),
		LockKey:       "pipelinehealth:scheduler:leader",
		LockTTL:       30 * time.Second,
		CheckInterval: 5 * time.Second,
		MaxWorkers:    10,
	}
}

func NewScheduler(lockManager lock.LockManager, config *SchedulerConfig, log *logger.Log) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config == nil {
		config = defaults
	}
	if config.NodeID == "" {
		config.NodeID = defaults.NodeID
	}
	if config.LockKey == "" {
		config.LockKey = defaults.LockKey
	}
	if config.LockTTL <= 0 {
		config.LockTTL = defaults.LockTTL
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = defaults.CheckInterval
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = defaults.MaxWorkers
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		nodeID:          config.NodeID,
		lockTTL:         config.LockTTL,
		checkInterval:   config.CheckInterval,
		ctx:             ctx,
		cancel:          cancel,
		taskHeap:        NewTaskHeap(),
		distributedLock: lockManager.NewLock(config.LockKey, config.LockTTL),
		workerSemaphore: make(chan struct{}, config.MaxWorkers),
		log:             log.WithEntryName("Scheduler"),
		observer:        config.Observer,
		stats:           &SchedulerStats{},
	}
}

// Start 启动调度器，启动时先竞选一次领导者
func (s *Scheduler) Start() error {
	if s.isRunning.Load() {
		return fmt.Errorf("调度器已经在运行")
	}

	s.log.Infof("启动调度器，节点ID: %s", s.nodeID)
	s.isRunning.Store(true)

	s.tryBecomeLeader()

	s.wg.Add(1)
	go s.mainLoop()

	s.resetTimer()
	return nil
}

// Stop 停止调度器并等待执行中的任务结束
func (s *Scheduler) Stop() error {
	if !s.isRunning.Load() {
		return nil
	}

	s.log.Info("停止调度器")
	s.isRunning.Store(false)
	s.cancel()
	s.stopTimer()

	s.wg.Wait()

	if s.distributedLock.IsLocked() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.distributedLock.Unlock(ctx); err != nil {
			s.log.WithErr(err).Error("释放分布式锁失败")
		}
	}

	s.log.Info("调度器已停止")
	return nil
}

// AddTask 添加任务，可在启动前调用
func (s *Scheduler) AddTask(task Task) {
	s.taskHeap.SafePush(task)
	s.stats.IncrementTotalTasks()

	s.log.WithField("next", task.GetNextTime().Format(time.RFC3339)).Infof("添加任务: %s [%s]", task.GetName(), task.GetID())

	if s.isRunning.Load() {
		s.resetTimer()
	}
}

func (s *Scheduler) ListTasks() []Task {
	return s.taskHeap.SafeList()
}

// GetStats 返回统计信息副本
func (s *Scheduler) GetStats() *SchedulerStats {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	return &SchedulerStats{
		TotalTasks:       s.stats.TotalTasks,
		CompletedTasks:   s.stats.CompletedTasks,
		FailedTasks:      s.stats.FailedTasks,
		DistributedTasks: s.stats.DistributedTasks,
		LocalTasks:       s.stats.LocalTasks,
		LeaderElections:  s.stats.LeaderElections,
		LastExecuteTime:  s.stats.LastExecuteTime,
	}
}

func (s *Scheduler) IsLeader() bool {
	return s.isLeader.Load()
}

func (s *Scheduler) IsRunning() bool {
	return s.isRunning.Load()
}

func (s *Scheduler) mainLoop() {
	defer s.wg.Done()

	leaderCheckTicker := time.NewTicker(s.checkInterval)
	defer leaderCheckTicker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-leaderCheckTicker.C:
			s.tryBecomeLeader()
		}
	}
}

func (s *Scheduler) tryBecomeLeader() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	locked, err := s.distributedLock.TryLock(ctx)
	if err != nil {
		s.log.WithErr(err).Error("尝试获取分布式锁失败")
		s.becomeFollower()
		return
	}

	if locked {
		if !s.isLeader.Load() {
			s.log.Info("成为领导者")
			s.isLeader.Store(true)
			s.stats.IncrementLeaderElections()
		}
		return
	}
	s.becomeFollower()
}

func (s *Scheduler) becomeFollower() {
	if s.isLeader.Load() {
		s.log.Info("失去领导者身份")
		s.isLeader.Store(false)
	}
}

func (s *Scheduler) resetTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	if !s.isRunning.Load() {
		return
	}

	nextTime := s.taskHeap.GetNextExecuteTime()
	if nextTime == nil {
		return
	}

	waitDuration := time.Until(*nextTime)
	if waitDuration < 0 {
		waitDuration = 0
	}
	s.timer = time.AfterFunc(waitDuration, s.onTimerFired)
}

func (s *Scheduler) stopTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) onTimerFired() {
	if !s.isRunning.Load() {
		return
	}

	readyTasks := s.taskHeap.PopReadyTasks(time.Now())
	if len(readyTasks) == 0 {
		s.resetTimer()
		return
	}

	for _, task := range readyTasks {
		s.executeTask(task)
	}
	// 任务重新入堆时会重置定时器
}

func (s *Scheduler) executeTask(task Task) {
	if task.GetExecuteMode() == TaskExecuteModeDistributed && !s.isLeader.Load() {
		// 非领导者跳过本次，等待下个周期
		s.reschedule(task, time.Now())
		return
	}

	select {
	case s.workerSemaphore <- struct{}{}:
		if task.GetExecuteMode() == TaskExecuteModeDistributed {
			s.stats.IncrementDistributedTasks()
		} else {
			s.stats.IncrementLocalTasks()
		}
		s.wg.Add(1)
		go func(t Task) {
			defer s.wg.Done()
			defer func() { <-s.workerSemaphore }()

			s.runTask(t)
		}(task)
	default:
		s.log.Warnf("工作者池已满，任务重新调度: %s", task.GetName())
		s.reschedule(task, time.Now())
	}
}

func (s *Scheduler) reschedule(task Task, from time.Time) {
	if task.IsCanceled() || !s.isRunning.Load() {
		return
	}
	nextTime := task.UpdateNextTime(from)
	if nextTime.IsZero() {
		return
	}
	task.SetStatus(TaskStatusWaiting)
	s.taskHeap.SafePush(task)
	s.resetTimer()
}

func (s *Scheduler) runTask(task Task) {
	start := time.Now()
	log := s.log.WithField("task", task.GetName())
	log.Debug("开始执行任务")

	ctx, cancel := context.WithTimeout(s.ctx, task.GetTimeout())
	defer cancel()

	err := s.safeExecute(ctx, task)

	duration := time.Since(start)
	s.stats.SetLastExecuteTime(start)
	if s.observer != nil {
		s.observer(task.GetName(), duration, err)
	}

	if err != nil {
		log.WithField("duration", duration).WithErr(err).Error("任务执行失败")
		s.stats.IncrementFailedTasks()
	} else {
		log.WithField("duration", duration).Debug("任务执行成功")
		s.stats.IncrementCompletedTasks()
	}

	s.reschedule(task, time.Now())
}

// safeExecute 任务 panic 不影响调度器
func (s *Scheduler) safeExecute(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			task.SetStatus(TaskStatusFailed)
			err = fmt.Errorf("任务 panic: %v", r)
		}
	}()
	return task.Execute(ctx)
}

func (s *SchedulerStats) IncrementTotalTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalTasks++
}

func (s *SchedulerStats) IncrementCompletedTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CompletedTasks++
}

func (s *SchedulerStats) IncrementFailedTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailedTasks++
}

func (s *SchedulerStats) IncrementDistributedTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DistributedTasks++
}

func (s *SchedulerStats) IncrementLocalTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LocalTasks++
}

func (s *SchedulerStats) IncrementLeaderElections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LeaderElections++
}

func (s *SchedulerStats) SetLastExecuteTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastExecuteTime = t
}
