package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

// RedisLockManager 基于 bsm/redislock 的锁管理器
type RedisLockManager struct {
	client *redislock.Client
	prefix string
}

func NewRedisLockManager(client *redislock.Client, prefix string) *RedisLockManager {
	return &RedisLockManager{client: client, prefix: prefix}
}

func (m *RedisLockManager) NewLock(key string, ttl time.Duration) DistributedLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLock{client: m.client, key: m.prefix + key, ttl: ttl}
}

type RedisLock struct {
	client *redislock.Client
	key    string
	ttl    time.Duration

	mu   sync.Mutex
	held *redislock.Lock
}

func (l *RedisLock) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held != nil {
		err := l.held.Refresh(ctx, l.ttl, nil)
		if err == nil {
			return true, nil
		}
		l.held = nil
		if !errors.Is(err, redislock.ErrNotObtained) {
			return false, NewLockError(ErrCodeLockBackend, "续期锁失败", err)
		}
	}

	obtained, err := l.client.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return false, nil
	}
	if err != nil {
		return false, NewLockError(ErrCodeLockBackend, "获取锁失败", err)
	}
	l.held = obtained
	return true, nil
}

func (l *RedisLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held == nil {
		return NewLockError(ErrCodeLockNotHeld, "未持有锁", nil)
	}
	err := l.held.Release(ctx)
	l.held = nil
	if err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return NewLockError(ErrCodeLockBackend, "释放锁失败", err)
	}
	return nil
}

func (l *RedisLock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held != nil
}

func (l *RedisLock) GetLockKey() string {
	return l.key
}
