package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLockManager 单实例部署使用的进程内锁
type LocalLockManager struct {
	mu    sync.Mutex
	owned map[string]*LocalLock
}

func NewLocalLockManager() *LocalLockManager {
	return &LocalLockManager{owned: make(map[string]*LocalLock)}
}

func (m *LocalLockManager) NewLock(key string, ttl time.Duration) DistributedLock {
	return &LocalLock{manager: m, key: key}
}

type LocalLock struct {
	manager *LocalLockManager
	key     string
}

func (l *LocalLock) TryLock(ctx context.Context) (bool, error) {
	l.manager.mu.Lock()
	defer l.manager.mu.Unlock()

	owner, ok := l.manager.owned[l.key]
	if ok && owner != l {
		return false, nil
	}
	l.manager.owned[l.key] = l
	return true, nil
}

func (l *LocalLock) Unlock(ctx context.Context) error {
	l.manager.mu.Lock()
	defer l.manager.mu.Unlock()

	if l.manager.owned[l.key] != l {
		return NewLockError(ErrCodeLockNotHeld, "未持有锁", nil)
	}
	delete(l.manager.owned, l.key)
	return nil
}

func (l *LocalLock) IsLocked() bool {
	l.manager.mu.Lock()
	defer l.manager.mu.Unlock()
	return l.manager.owned[l.key] == l
}

func (l *LocalLock) GetLockKey() string {
	return l.key
}
