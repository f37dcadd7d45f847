// internal/services/wizard_controller.go
package services

import "github.com/Corphon/SceneStudio/internal/models"

// WizardController 持有向导当前所在步骤，前后移动时在边界处静默截断
type WizardController struct {
	current models.Step
	onEnter func(step models.Step)
}

// NewWizardController 创建停在第一步的向导
func NewWizardController() *WizardController {
	return &WizardController{current: models.FirstStep}
}

// OnEnter 注册步骤变化时的回调，步骤未变化时不触发
func (w *WizardController) OnEnter(fn func(step models.Step)) {
	w.onEnter = fn
}

// Current 当前步骤
func (w *WizardController) Current() models.Step {
	return w.current
}

// Advance 前进一步，已在最后一步时无操作
func (w *WizardController) Advance() models.Step {
	next := w.current + 1
	if next > models.LastStep {
		next = models.LastStep
	}
	w.moveTo(next)
	return w.current
}

// Retreat 后退一步，已在第一步时无操作
func (w *WizardController) Retreat() models.Step {
	prev := w.current - 1
	if prev < models.FirstStep {
		prev = models.FirstStep
	}
	w.moveTo(prev)
	return w.current
}

// CanAdvance 是否还有下一步
func (w *WizardController) CanAdvance() bool {
	return w.current < models.LastStep
}

// CanRetreat 是否还有上一步
func (w *WizardController) CanRetreat() bool {
	return w.current > models.FirstStep
}

func (w *WizardController) moveTo(step models.Step) {
	if step == w.current {
		return
	}
	w.current = step
	if w.onEnter != nil {
		w.onEnter(step)
	}
}
