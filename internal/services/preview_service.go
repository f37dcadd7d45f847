// internal/services/preview_service.go
package services

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	apperrors "github.com/Corphon/SceneStudio/internal/errors"
	"github.com/Corphon/SceneStudio/internal/models"
	"github.com/Corphon/SceneStudio/internal/storage"
	"github.com/Corphon/SceneStudio/internal/utils"
)

// 支持的导出格式
const (
	ExportFormatYAML = "yaml"
	ExportFormatJSON = "json"
)

// PreviewService 生成预览步骤的时间线并负责导出
type PreviewService struct {
	Sessions *SessionService
	Storage  *storage.FileStorage
	logger   *utils.Logger
	now      func() time.Time
}

// NewPreviewService 创建预览服务，storage 为 nil 时不能保存导出文件
func NewPreviewService(sessions *SessionService, fileStorage *storage.FileStorage, logger *utils.Logger) *PreviewService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &PreviewService{
		Sessions: sessions,
		Storage:  fileStorage,
		logger:   logger,
		now:      time.Now,
	}
}

// BuildTimeline 按场景顺序排出时间线，每个场景时长相同
func BuildTimeline(sessionID string, scenes []*models.Scene, sceneDuration int, generatedAt time.Time) *models.Timeline {
	timeline := &models.Timeline{
		Version:       models.TimelineVersion,
		SessionID:     sessionID,
		SceneDuration: sceneDuration,
		Entries:       make([]models.TimelineEntry, 0, len(scenes)),
		GeneratedAt:   generatedAt,
	}

	start := 0
	for _, scene := range scenes {
		entry := models.TimelineEntry{
			SceneID:  scene.ID,
			Label:    fmt.Sprintf("Scene %d", scene.ID),
			Text:     scene.Text,
			Image:    scene.DisplayImage(),
			Start:    start,
			Duration: sceneDuration,
		}
		if scene.HasVideo && scene.Video != nil {
			entry.Video = *scene.Video
		}
		timeline.Entries = append(timeline.Entries, entry)
		start += sceneDuration
	}
	timeline.TotalDuration = start

	return timeline
}

// Timeline 返回会话当前的时间线
func (p *PreviewService) Timeline(sessionID string) (*models.Timeline, error) {
	var timeline *models.Timeline
	err := p.Sessions.View(sessionID, func(session *Session) error {
		timeline = BuildTimeline(session.ID, session.Store.Scenes(), session.SceneDuration(), p.now())
		return nil
	})
	return timeline, err
}

// SetSceneDuration 调整场景时长（滑块，1-10秒）
func (p *PreviewService) SetSceneDuration(sessionID string, seconds int) (*models.Timeline, error) {
	_, err := p.Sessions.Update(sessionID, func(session *Session) error {
		session.SetSceneDuration(seconds)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p.Timeline(sessionID)
}

// Render 把时间线序列化为指定格式
func (p *PreviewService) Render(sessionID, format string) ([]byte, error) {
	timeline, err := p.Timeline(sessionID)
	if err != nil {
		return nil, err
	}
	return encodeTimeline(timeline, format)
}

// Export 把时间线写入数据目录，文件按会话分目录、按时间命名
func (p *PreviewService) Export(sessionID, format string) (*models.ExportResult, error) {
	if p.Storage == nil {
		return nil, apperrors.NewProcessingError("导出存储未初始化", nil)
	}

	timeline, err := p.Timeline(sessionID)
	if err != nil {
		return nil, err
	}

	content, err := encodeTimeline(timeline, format)
	if err != nil {
		return nil, err
	}

	format = normalizeFormat(format)
	// 同一秒内的多次导出靠随机后缀区分
	filename := fmt.Sprintf("timeline_%s_%s.%s",
		timeline.GeneratedAt.Format("2006-01-02_15-04-05"), uuid.NewString()[:8], format)
	path, err := p.Storage.SaveTextFile(sessionID, filename, content)
	if err != nil {
		return nil, apperrors.WrapError(err, "保存时间线失败", apperrors.ErrorTypeError)
	}

	p.logger.Info("时间线已导出", map[string]interface{}{
		"session_id": sessionID,
		"path":       path,
		"scenes":     len(timeline.Entries),
	})

	return &models.ExportResult{
		SessionID: sessionID,
		Format:    format,
		FilePath:  path,
		Content:   string(content),
		Size:      len(content),
		CreatedAt: timeline.GeneratedAt,
	}, nil
}

// Exports 列出会话已有的导出文件
func (p *PreviewService) Exports(sessionID string) ([]string, error) {
	if p.Storage == nil {
		return []string{}, nil
	}
	return p.Storage.ListFiles(sessionID)
}

// LoadExport 读取会话已保存的导出文件
func (p *PreviewService) LoadExport(sessionID, filename string) ([]byte, error) {
	if !p.Sessions.Exists(sessionID) {
		return nil, apperrors.NewSessionNotFoundError(sessionID)
	}
	if filename == "" || filepath.Base(filename) != filename || strings.HasPrefix(filename, ".") {
		return nil, apperrors.NewValidationError("非法的导出文件名: "+filename, nil)
	}
	if p.Storage == nil || !p.Storage.FileExists(sessionID, filename) {
		err := apperrors.NewNotFoundError("导出文件不存在: "+filename, nil)
		err.Code = "EXPORT_NOT_FOUND"
		return nil, err
	}

	content, err := p.Storage.LoadTextFile(sessionID, filename)
	if err != nil {
		return nil, apperrors.WrapError(err, "读取导出文件失败", apperrors.ErrorTypeError)
	}
	return content, nil
}

func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", "yml":
		return ExportFormatYAML
	default:
		return format
	}
}

func encodeTimeline(timeline *models.Timeline, format string) ([]byte, error) {
	switch normalizeFormat(format) {
	case ExportFormatYAML:
		content, err := yaml.Marshal(timeline)
		if err != nil {
			return nil, apperrors.NewProcessingError("序列化YAML失败", err)
		}
		return content, nil
	case ExportFormatJSON:
		content, err := json.MarshalIndent(timeline, "", "  ")
		if err != nil {
			return nil, apperrors.NewProcessingError("序列化JSON失败", err)
		}
		return content, nil
	default:
		err := apperrors.NewValidationError("不支持的导出格式: "+format, nil)
		err.Code = "EXPORT_FORMAT_INVALID"
		return nil, err
	}
}
