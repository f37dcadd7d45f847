// internal/services/session_service.go
package services

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/SceneStudio/internal/errors"
	"github.com/Corphon/SceneStudio/internal/models"
	"github.com/Corphon/SceneStudio/internal/utils"
)

// SessionOptions 会话服务参数
type SessionOptions struct {
	UseSampleScript      bool
	SessionTTL           time.Duration
	DefaultSceneDuration int
	Generator            MediaGenerator
}

// SessionService 管理内存中的全部会话
//
// 同一会话的操作经 LockManager 串行执行，会话之间互不影响。
// 会话不会持久化，进程重启后全部丢失。
type SessionService struct {
	options  SessionOptions
	locks    *LockManager
	logger   *utils.Logger
	sessions map[string]*Session
	mutex    sync.RWMutex

	listenersMu sync.RWMutex
	listeners   []func(*models.SessionSnapshot)

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewSessionService 创建会话服务
func NewSessionService(options SessionOptions, logger *utils.Logger) *SessionService {
	if options.SessionTTL <= 0 {
		options.SessionTTL = 2 * time.Hour
	}
	if options.DefaultSceneDuration == 0 {
		options.DefaultSceneDuration = models.DefaultSceneDuration
	}
	if options.Generator == nil {
		options.Generator = PlaceholderGenerator{}
	}
	if logger == nil {
		logger = utils.GetLogger()
	}

	return &SessionService{
		options:  options,
		locks:    NewLockManager(),
		logger:   logger,
		sessions: make(map[string]*Session),
		stopChan: make(chan struct{}),
	}
}

// Create 创建新会话
func (s *SessionService) Create() *models.SessionSnapshot {
	script := ""
	if s.options.UseSampleScript {
		script = models.SampleScript
	}

	session := NewSession(uuid.NewString(), script, s.options.DefaultSceneDuration, s.options.Generator)

	s.mutex.Lock()
	s.sessions[session.ID] = session
	total := len(s.sessions)
	s.mutex.Unlock()

	s.logger.Info("会话已创建", map[string]interface{}{
		"session_id": session.ID,
		"total":      total,
	})
	return session.Snapshot()
}

// Exists 会话是否存在
func (s *SessionService) Exists(sessionID string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok
}

func (s *SessionService) get(sessionID string) (*Session, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(sessionID)
	}
	return session, nil
}

// View 在会话读锁下执行只读操作
func (s *SessionService) View(sessionID string, fn func(*Session) error) error {
	session, err := s.get(sessionID)
	if err != nil {
		return err
	}
	return s.locks.ExecuteWithSessionReadLock(sessionID, func() error {
		return fn(session)
	})
}

// Update 在会话写锁下执行修改，成功后通知监听者并返回新快照
func (s *SessionService) Update(sessionID string, fn func(*Session) error) (*models.SessionSnapshot, error) {
	session, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	var snapshot *models.SessionSnapshot
	err = s.locks.ExecuteWithSessionLock(sessionID, func() error {
		if err := fn(session); err != nil {
			return err
		}
		session.touch()
		snapshot = session.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(snapshot)
	return snapshot, nil
}

// Snapshot 返回会话快照
func (s *SessionService) Snapshot(sessionID string) (*models.SessionSnapshot, error) {
	var snapshot *models.SessionSnapshot
	err := s.View(sessionID, func(session *Session) error {
		snapshot = session.Snapshot()
		return nil
	})
	return snapshot, err
}

// Delete 丢弃会话及其全部场景
func (s *SessionService) Delete(sessionID string) error {
	s.mutex.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mutex.Unlock()

	if !ok {
		return apperrors.NewSessionNotFoundError(sessionID)
	}

	s.locks.Remove(sessionID)
	s.logger.Info("会话已删除", map[string]interface{}{"session_id": sessionID})
	return nil
}

// List 按创建时间返回全部会话ID
func (s *SessionService) List() []string {
	s.mutex.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mutex.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	ids := make([]string, len(sessions))
	for i, session := range sessions {
		ids[i] = session.ID
	}
	return ids
}

// Count 会话数量
func (s *SessionService) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sessions)
}

// Subscribe 注册会话变更监听者，WebSocket 推送使用
func (s *SessionService) Subscribe(fn func(*models.SessionSnapshot)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *SessionService) notify(snapshot *models.SessionSnapshot) {
	s.listenersMu.RLock()
	listeners := append([]func(*models.SessionSnapshot){}, s.listeners...)
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// ---------------------------------------------------
// 过期清理

// CleanupExpired 删除空闲超过 TTL 的会话，返回删除数量
func (s *SessionService) CleanupExpired(now time.Time) int {
	expired := make([]string, 0)

	s.mutex.RLock()
	for id, session := range s.sessions {
		var last time.Time
		s.locks.ExecuteWithSessionReadLock(id, func() error {
			last = session.LastAccessed()
			return nil
		})
		if now.Sub(last) > s.options.SessionTTL {
			expired = append(expired, id)
		}
	}
	s.mutex.RUnlock()

	for _, id := range expired {
		s.mutex.Lock()
		delete(s.sessions, id)
		s.mutex.Unlock()
		s.locks.Remove(id)
	}

	if len(expired) > 0 {
		s.logger.Info("已清理过期会话", map[string]interface{}{
			"expired":   len(expired),
			"remaining": s.Count(),
		})
	}
	return len(expired)
}

// StartCleanup 启动后台清理循环，直到 Stop 被调用
func (s *SessionService) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				s.CleanupExpired(now)
				s.locks.CleanupUnused(s.options.SessionTTL)
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop 停止后台清理
func (s *SessionService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}
