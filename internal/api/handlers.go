// internal/api/handlers.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/SceneStudio/internal/models"
	"github.com/Corphon/SceneStudio/internal/services"
	"github.com/Corphon/SceneStudio/internal/utils"
)

// Handler 处理API请求
type Handler struct {
	Sessions         *services.SessionService // 会话服务
	Preview          *services.PreviewService // 预览与导出
	WebSocketHandler *WebSocketHandler        // WebSocket 处理器
	Response         *ResponseHelper          // 响应助手
	Metrics          *utils.APIMetrics        // 请求与操作计数
	logger           *utils.Logger
}

// SetScriptRequest 替换剧本文本
type SetScriptRequest struct {
	Script *string `json:"script" binding:"required"`
}

// UpdateSceneRequest 修改单个场景字段
type UpdateSceneRequest struct {
	Field string      `json:"field" binding:"required"`
	Value interface{} `json:"value"`
}

// SelectImageRequest 选择展示图片
type SelectImageRequest struct {
	Index *int `json:"index" binding:"required"`
}

// SceneDurationRequest 调整预览中的场景时长
type SceneDurationRequest struct {
	Seconds *int `json:"seconds" binding:"required"`
}

// NewHandler 创建API处理器
func NewHandler(sessions *services.SessionService, preview *services.PreviewService, wsHandler *WebSocketHandler, logger *utils.Logger) *Handler {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Handler{
		Sessions:         sessions,
		Preview:          preview,
		WebSocketHandler: wsHandler,
		Response:         NewResponseHelper(),
		Metrics:          utils.NewAPIMetrics(nil, logger),
		logger:           logger,
	}
}

// sceneIDParam 解析路径中的场景ID
func (h *Handler) sceneIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("scene_id"))
	if err != nil {
		h.Response.BadRequest(c, "场景ID无效", c.Param("scene_id"))
		return 0, false
	}
	return id, true
}

// mutate 在会话锁内执行修改并返回新快照
func (h *Handler) mutate(c *gin.Context, message string, fn func(*services.Session) error) {
	snapshot, err := h.Sessions.Update(c.Param("id"), fn)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, snapshot, message)
}

// ========================================
// 会话
// ========================================

// CreateSession 创建新会话
func (h *Handler) CreateSession(c *gin.Context) {
	snapshot := h.Sessions.Create()
	h.Response.Created(c, snapshot, "会话创建成功")
}

// GetSession 获取会话快照
func (h *Handler) GetSession(c *gin.Context) {
	snapshot, err := h.Sessions.Snapshot(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, snapshot)
}

// DeleteSession 丢弃会话
func (h *Handler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.Sessions.Delete(sessionID); err != nil {
		h.Response.FromError(c, err)
		return
	}
	if h.WebSocketHandler != nil {
		h.WebSocketHandler.manager.DisconnectSession(sessionID)
	}
	h.Response.Success(c, gin.H{"session_id": sessionID}, "会话已删除")
}

// Advance 前进到下一步
func (h *Handler) Advance(c *gin.Context) {
	h.mutate(c, "", func(s *services.Session) error {
		s.Advance()
		return nil
	})
}

// Retreat 回到上一步
func (h *Handler) Retreat(c *gin.Context) {
	h.mutate(c, "", func(s *services.Session) error {
		s.Retreat()
		return nil
	})
}

// ========================================
// 剧本与场景
// ========================================

// SetScript 替换剧本文本，已有场景不受影响
func (h *Handler) SetScript(c *gin.Context) {
	var req SetScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求格式错误", err.Error())
		return
	}
	h.mutate(c, "剧本已更新", func(s *services.Session) error {
		s.Store.SetScript(*req.Script)
		return nil
	})
}

// DeriveScenes 按空行重新切分剧本，丢弃现有场景
func (h *Handler) DeriveScenes(c *gin.Context) {
	h.mutate(c, "场景已生成", func(s *services.Session) error {
		s.Store.DeriveScenes()
		return nil
	})
}

// UpdateScene 修改场景的单个字段
func (h *Handler) UpdateScene(c *gin.Context) {
	sceneID, ok := h.sceneIDParam(c)
	if !ok {
		return
	}

	var req UpdateSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求格式错误", err.Error())
		return
	}

	h.mutate(c, "场景已更新", func(s *services.Session) error {
		return s.Store.UpdateSceneField(sceneID, models.SceneField(req.Field), req.Value)
	})
}

// GenerateImages 为场景生成候选图片
func (h *Handler) GenerateImages(c *gin.Context) {
	sceneID, ok := h.sceneIDParam(c)
	if !ok {
		return
	}
	h.mutate(c, "图片已生成", func(s *services.Session) error {
		s.Store.GenerateImages(sceneID)
		return nil
	})
}

// SelectImage 选择场景展示的图片
func (h *Handler) SelectImage(c *gin.Context) {
	sceneID, ok := h.sceneIDParam(c)
	if !ok {
		return
	}

	var req SelectImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求格式错误", err.Error())
		return
	}

	h.mutate(c, "", func(s *services.Session) error {
		s.Store.SelectImage(sceneID, *req.Index)
		return nil
	})
}

// GenerateVideo 为场景生成视频
func (h *Handler) GenerateVideo(c *gin.Context) {
	sceneID, ok := h.sceneIDParam(c)
	if !ok {
		return
	}
	h.mutate(c, "视频已生成", func(s *services.Session) error {
		s.Store.GenerateVideo(sceneID)
		return nil
	})
}

// GenerateAllImages 为全部场景生成图片
func (h *Handler) GenerateAllImages(c *gin.Context) {
	h.mutate(c, "全部图片已生成", func(s *services.Session) error {
		s.Store.GenerateAllImages()
		return nil
	})
}

// GenerateAllVideos 为全部场景生成视频
func (h *Handler) GenerateAllVideos(c *gin.Context) {
	h.mutate(c, "全部视频已生成", func(s *services.Session) error {
		s.Store.GenerateAllVideos()
		return nil
	})
}

// ========================================
// 预览与导出
// ========================================

// GetTimeline 获取预览时间线
func (h *Handler) GetTimeline(c *gin.Context) {
	timeline, err := h.Preview.Timeline(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, timeline)
}

// SetSceneDuration 调整场景时长
func (h *Handler) SetSceneDuration(c *gin.Context) {
	var req SceneDurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求格式错误", err.Error())
		return
	}

	timeline, err := h.Preview.SetSceneDuration(c.Param("id"), *req.Seconds)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, timeline, "场景时长已更新")
}

// DownloadTimeline 以附件形式下载时间线
func (h *Handler) DownloadTimeline(c *gin.Context) {
	sessionID := c.Param("id")
	format := c.DefaultQuery("format", services.ExportFormatYAML)

	content, err := h.Preview.Render(sessionID, format)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}

	contentType := "application/x-yaml; charset=utf-8"
	extension := services.ExportFormatYAML
	if strings.EqualFold(strings.TrimSpace(format), services.ExportFormatJSON) {
		contentType = "application/json; charset=utf-8"
		extension = services.ExportFormatJSON
	}
	filename := fmt.Sprintf("timeline_%s.%s", time.Now().Format("2006-01-02_15-04-05"), extension)
	h.Response.DownloadResponse(c, content, filename, contentType)
}

// ExportTimeline 把时间线写入数据目录
func (h *Handler) ExportTimeline(c *gin.Context) {
	format := c.DefaultQuery("format", services.ExportFormatYAML)

	result, err := h.Preview.Export(c.Param("id"), format)
	if err != nil {
		h.logger.Error("导出时间线失败", map[string]interface{}{
			"session_id": c.Param("id"),
			"error":      err.Error(),
		})
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, result, "导出成功")
}

// ListExports 列出会话已有的导出文件
func (h *Handler) ListExports(c *gin.Context) {
	sessionID := c.Param("id")
	if !h.Sessions.Exists(sessionID) {
		h.Response.NotFound(c, "会话", "会话ID: "+sessionID)
		return
	}

	files, err := h.Preview.Exports(sessionID)
	if err != nil {
		h.Response.InternalError(c, "读取导出列表失败", err.Error())
		return
	}
	h.Response.Success(c, files)
}

// GetExport 下载已保存的导出文件
func (h *Handler) GetExport(c *gin.Context) {
	filename := c.Param("filename")
	content, err := h.Preview.LoadExport(c.Param("id"), filename)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}

	contentType := "application/x-yaml; charset=utf-8"
	if strings.HasSuffix(filename, "."+services.ExportFormatJSON) {
		contentType = "application/json; charset=utf-8"
	}
	h.Response.DownloadResponse(c, content, filename, contentType)
}

// ========================================
// 运维
// ========================================

// GetWebSocketStatus 获取 WebSocket 连接状态（调试用）
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	status := h.WebSocketHandler.manager.GetStatus()
	status["timestamp"] = time.Now().Format(time.RFC3339)
	c.JSON(http.StatusOK, status)
}

// GetMetrics 返回请求与向导操作的统计
func (h *Handler) GetMetrics(c *gin.Context) {
	collector := h.Metrics.Collector()
	collector.SetGauge("sessions_active", int64(h.Sessions.Count()))
	if h.WebSocketHandler != nil {
		collector.SetGauge("websocket_connections", int64(h.WebSocketHandler.manager.TotalConnections()))
	}
	h.Response.Success(c, collector.GetMetrics())
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"sessions":  h.Sessions.Count(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
