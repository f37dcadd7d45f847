// internal/models/timeline.go
package models

import "time"

// 场景时长滑块的取值范围（秒）
const (
	DefaultSceneDuration = 5
	MinSceneDuration     = 1
	MaxSceneDuration     = 10
)

// TimelineVersion 导出文件格式版本
const TimelineVersion = "1.0"

// Timeline 预览步骤展示的时间线，时长单位均为秒
type Timeline struct {
	Version       string          `json:"version" yaml:"version"`
	SessionID     string          `json:"session_id" yaml:"session_id"`
	SceneDuration int             `json:"scene_duration" yaml:"scene_duration"`
	TotalDuration int             `json:"total_duration" yaml:"total_duration"`
	Entries       []TimelineEntry `json:"entries" yaml:"entries"`
	GeneratedAt   time.Time       `json:"generated_at" yaml:"generated_at"`
}

// TimelineEntry 时间线上的一个场景
type TimelineEntry struct {
	SceneID  int    `json:"scene_id" yaml:"scene_id"`
	Label    string `json:"label" yaml:"label"`
	Text     string `json:"text" yaml:"text"`
	Image    string `json:"image" yaml:"image"`
	Video    string `json:"video,omitempty" yaml:"video,omitempty"`
	Start    int    `json:"start" yaml:"start"`
	Duration int    `json:"duration" yaml:"duration"`
}

// ExportResult 时间线导出结果
type ExportResult struct {
	SessionID string    `json:"session_id"`
	Format    string    `json:"format"`
	FilePath  string    `json:"file_path"`
	Content   string    `json:"content"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
