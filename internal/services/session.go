// internal/services/session.go
package services

import (
	"time"
	"unicode/utf8"

	"github.com/Corphon/SceneStudio/internal/models"
)

// Session 一个浏览器用户的向导状态：向导控制器 + 场景存储 + 预览设置
//
// Session 不加锁，只能通过 SessionService.Update / View 访问。
type Session struct {
	ID        string
	CreatedAt time.Time

	Wizard *WizardController
	Store  *SceneStore

	sceneDuration int
	lastAccessed  time.Time
}

// NewSession 创建会话，首次进入场景编辑步骤且没有场景时自动切分剧本
func NewSession(id, script string, sceneDuration int, generator MediaGenerator) *Session {
	now := time.Now()
	session := &Session{
		ID:            id,
		CreatedAt:     now,
		Wizard:        NewWizardController(),
		Store:         NewSceneStore(script, generator),
		sceneDuration: clampSceneDuration(sceneDuration),
		lastAccessed:  now,
	}

	session.Wizard.OnEnter(func(step models.Step) {
		if step == models.StepSceneEditing && session.Store.Len() == 0 {
			session.Store.DeriveScenes()
		}
	})

	return session
}

// Advance 前进到下一步
func (s *Session) Advance() models.Step {
	return s.Wizard.Advance()
}

// Retreat 回到上一步
func (s *Session) Retreat() models.Step {
	return s.Wizard.Retreat()
}

// SceneDuration 预览中每个场景的时长（秒）
func (s *Session) SceneDuration() int {
	return s.sceneDuration
}

// SetSceneDuration 设置场景时长，超出范围时截断
func (s *Session) SetSceneDuration(seconds int) int {
	s.sceneDuration = clampSceneDuration(seconds)
	return s.sceneDuration
}

// LastAccessed 最后一次访问时间
func (s *Session) LastAccessed() time.Time {
	return s.lastAccessed
}

func (s *Session) touch() {
	s.lastAccessed = time.Now()
}

// Snapshot 返回会话当前状态的拷贝
func (s *Session) Snapshot() *models.SessionSnapshot {
	script := s.Store.Script()
	return &models.SessionSnapshot{
		ID:            s.ID,
		Step:          s.Wizard.Current(),
		StepName:      s.Wizard.Current().String(),
		Steps:         models.StepNames(),
		CanAdvance:    s.Wizard.CanAdvance(),
		CanRetreat:    s.Wizard.CanRetreat(),
		Script:        script,
		ScriptLength:  utf8.RuneCountInString(script),
		Scenes:        s.Store.Scenes(),
		SceneDuration: s.sceneDuration,
	}
}

func clampSceneDuration(seconds int) int {
	if seconds < models.MinSceneDuration {
		return models.MinSceneDuration
	}
	if seconds > models.MaxSceneDuration {
		return models.MaxSceneDuration
	}
	return seconds
}
