// internal/models/step.go
package models

import "fmt"

// Step 向导步骤
type Step int

const (
	StepScriptInput Step = iota
	StepSceneEditing
	StepPreview
)

// Steps 按顺序排列的全部步骤
var Steps = []Step{StepScriptInput, StepSceneEditing, StepPreview}

// FirstStep / LastStep 步骤边界
const (
	FirstStep = StepScriptInput
	LastStep  = StepPreview
)

// String 返回步骤的显示名称
func (s Step) String() string {
	switch s {
	case StepScriptInput:
		return "Script Input"
	case StepSceneEditing:
		return "Scene Editing"
	case StepPreview:
		return "Preview"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Slug 用于模板名和URL
func (s Step) Slug() string {
	switch s {
	case StepScriptInput:
		return "script"
	case StepSceneEditing:
		return "scenes"
	case StepPreview:
		return "preview"
	default:
		return "unknown"
	}
}

// Valid 检查步骤是否在范围内
func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// StepNames 返回全部步骤名称
func StepNames() []string {
	names := make([]string, len(Steps))
	for i, step := range Steps {
		names[i] = step.String()
	}
	return names
}
