package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

// taskQueue 按下次执行时间排序的最小堆，不加锁
type taskQueue []Task

func (q taskQueue) Len() int           { return len(q) }
func (q taskQueue) Less(i, j int) bool { return q[i].GetNextTime().Before(q[j].GetNextTime()) }
func (q taskQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x interface{}) {
	*q = append(*q, x.(Task))
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return task
}

// TaskHeap 并发安全的任务队列，堆顶为最早到期的任务
type TaskHeap struct {
	mu    sync.RWMutex
	queue taskQueue
}

func NewTaskHeap() *TaskHeap {
	return &TaskHeap{}
}

func (th *TaskHeap) SafePush(task Task) {
	th.mu.Lock()
	defer th.mu.Unlock()
	heap.Push(&th.queue, task)
}

// SafeList 返回快照，顺序不保证
func (th *TaskHeap) SafeList() []Task {
	th.mu.RLock()
	defer th.mu.RUnlock()
	return append([]Task(nil), th.queue...)
}

// GetNextExecuteTime 队列为空时返回 nil
func (th *TaskHeap) GetNextExecuteTime() *time.Time {
	th.mu.RLock()
	defer th.mu.RUnlock()
	if len(th.queue) == 0 {
		return nil
	}
	next := th.queue[0].GetNextTime()
	return &next
}

// PopReadyTasks 按到期先后弹出所有 currentTime 时可执行的任务
func (th *TaskHeap) PopReadyTasks(currentTime time.Time) []Task {
	th.mu.Lock()
	defer th.mu.Unlock()

	var ready []Task
	for len(th.queue) > 0 && th.queue[0].CanExecute(currentTime) {
		ready = append(ready, heap.Pop(&th.queue).(Task))
	}
	return ready
}
