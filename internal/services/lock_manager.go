// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

// LockManager 按会话分配读写锁，保证同一会话的操作逐个执行
type LockManager struct {
	sessionLocks map[string]*LockInfo
	globalLock   sync.Mutex
}

// LockInfo 包装锁和相关信息
type LockInfo struct {
	Mutex    *sync.RWMutex
	LastUsed time.Time
	refs     int // 正在等待或持有该锁的调用数，大于0时不会被清理
}

// NewLockManager 创建锁管理器
func NewLockManager() *LockManager {
	return &LockManager{
		sessionLocks: make(map[string]*LockInfo),
	}
}

// acquire 取得会话锁信息并增加引用
func (lm *LockManager) acquire(sessionID string) *LockInfo {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info, exists := lm.sessionLocks[sessionID]
	if !exists {
		info = &LockInfo{Mutex: &sync.RWMutex{}}
		lm.sessionLocks[sessionID] = info
	}
	info.refs++
	info.LastUsed = time.Now()
	return info
}

func (lm *LockManager) release(info *LockInfo) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info.refs--
	info.LastUsed = time.Now()
}

// ExecuteWithSessionLock 在会话写锁保护下执行操作
func (lm *LockManager) ExecuteWithSessionLock(sessionID string, fn func() error) error {
	info := lm.acquire(sessionID)
	defer lm.release(info)

	info.Mutex.Lock()
	defer info.Mutex.Unlock()

	return fn()
}

// ExecuteWithSessionReadLock 在会话读锁保护下执行操作
func (lm *LockManager) ExecuteWithSessionReadLock(sessionID string, fn func() error) error {
	info := lm.acquire(sessionID)
	defer lm.release(info)

	info.Mutex.RLock()
	defer info.Mutex.RUnlock()

	return fn()
}

// Remove 删除会话锁，锁仍被使用时保留
func (lm *LockManager) Remove(sessionID string) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	if info, exists := lm.sessionLocks[sessionID]; exists && info.refs == 0 {
		delete(lm.sessionLocks, sessionID)
	}
}

// CleanupUnused 清理超过 idle 未使用且无人持有的锁，返回清理数量
func (lm *LockManager) CleanupUnused(idle time.Duration) int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	removed := 0
	now := time.Now()
	for sessionID, info := range lm.sessionLocks {
		if info.refs == 0 && now.Sub(info.LastUsed) > idle {
			delete(lm.sessionLocks, sessionID)
			removed++
		}
	}
	return removed
}

// Count 当前持有的锁数量
func (lm *LockManager) Count() int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	return len(lm.sessionLocks)
}
