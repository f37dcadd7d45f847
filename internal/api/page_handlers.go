// internal/api/page_handlers.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/SceneStudio/internal/errors"
	"github.com/Corphon/SceneStudio/internal/models"
	"github.com/Corphon/SceneStudio/internal/services"
)

// stepRenderer 渲染向导的一个步骤，返回模板名和模板数据
type stepRenderer func(h *Handler, c *gin.Context, snapshot *models.SessionSnapshot) (string, gin.H, error)

// 每个步骤一个渲染函数
var stepRenderers = map[models.Step]stepRenderer{
	models.StepScriptInput:  renderScriptStep,
	models.StepSceneEditing: renderSceneStep,
	models.StepPreview:      renderPreviewStep,
}

func renderScriptStep(_ *Handler, _ *gin.Context, snapshot *models.SessionSnapshot) (string, gin.H, error) {
	return "script.html", gin.H{
		"title":   snapshot.StepName,
		"session": snapshot,
	}, nil
}

func renderSceneStep(_ *Handler, _ *gin.Context, snapshot *models.SessionSnapshot) (string, gin.H, error) {
	return "scenes.html", gin.H{
		"title":   snapshot.StepName,
		"session": snapshot,
	}, nil
}

func renderPreviewStep(h *Handler, _ *gin.Context, snapshot *models.SessionSnapshot) (string, gin.H, error) {
	timeline := services.BuildTimeline(snapshot.ID, snapshot.Scenes, snapshot.SceneDuration, time.Now())
	return "preview.html", gin.H{
		"title":       snapshot.StepName,
		"session":     snapshot,
		"timeline":    timeline,
		"minDuration": models.MinSceneDuration,
		"maxDuration": models.MaxSceneDuration,
	}, nil
}

// IndexPage 创建新会话并跳转到向导页
func (h *Handler) IndexPage(c *gin.Context) {
	snapshot := h.Sessions.Create()
	c.Redirect(http.StatusSeeOther, "/sessions/"+snapshot.ID)
}

// SessionPage 渲染会话当前所在的步骤
func (h *Handler) SessionPage(c *gin.Context) {
	snapshot, err := h.Sessions.Snapshot(c.Param("id"))
	if err != nil {
		h.errorPage(c, err)
		return
	}

	render, ok := stepRenderers[snapshot.Step]
	if !ok {
		h.errorPage(c, apperrors.NewProcessingError(fmt.Sprintf("未知的步骤: %d", snapshot.Step), nil))
		return
	}

	name, data, err := render(h, c, snapshot)
	if err != nil {
		h.errorPage(c, err)
		return
	}
	c.HTML(http.StatusOK, name, data)
}

// errorPage 渲染错误页面
func (h *Handler) errorPage(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsNotFoundError(err):
		status = http.StatusNotFound
	case apperrors.IsValidationError(err):
		status = http.StatusBadRequest
	}

	message := err.Error()
	if status == http.StatusNotFound {
		message = "会话不存在或已过期"
	}

	c.HTML(status, "error.html", gin.H{
		"error":      message,
		"error_code": apperrors.CodeOf(err),
		"timestamp":  time.Now().Format(time.RFC3339),
		"request_id": c.GetString("request_id"),
	})
}

// formAction 执行表单操作后重定向回向导页（POST/Redirect/GET）
func (h *Handler) formAction(fn func(c *gin.Context, s *services.Session) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		_, err := h.Sessions.Update(sessionID, func(s *services.Session) error {
			return fn(c, s)
		})
		if err != nil {
			h.errorPage(c, err)
			return
		}

		target := "/sessions/" + sessionID
		if sceneID := c.Param("scene_id"); sceneID != "" {
			target += "#scene-" + sceneID
		}
		c.Redirect(http.StatusSeeOther, target)
	}
}

// formSceneID 解析表单路由中的场景ID
func formSceneID(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("scene_id"))
	if err != nil {
		return 0, apperrors.NewValidationError("场景ID无效: "+c.Param("scene_id"), err)
	}
	return id, nil
}

// normalizeNewlines 把浏览器提交的 CRLF 换行统一为 LF
func normalizeNewlines(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// ========================================
// 表单操作
// ========================================

func (h *Handler) formNext(_ *gin.Context, s *services.Session) error {
	s.Advance()
	return nil
}

func (h *Handler) formPrev(_ *gin.Context, s *services.Session) error {
	s.Retreat()
	return nil
}

func (h *Handler) formScript(c *gin.Context, s *services.Session) error {
	s.Store.SetScript(normalizeNewlines(c.PostForm("script")))
	if c.PostForm("advance") == "true" {
		s.Advance()
	}
	return nil
}

func (h *Handler) formSplit(_ *gin.Context, s *services.Session) error {
	s.Store.DeriveScenes()
	return nil
}

func (h *Handler) formGenerateAllImages(_ *gin.Context, s *services.Session) error {
	s.Store.GenerateAllImages()
	return nil
}

func (h *Handler) formGenerateAllVideos(_ *gin.Context, s *services.Session) error {
	s.Store.GenerateAllVideos()
	return nil
}

func (h *Handler) formDuration(c *gin.Context, s *services.Session) error {
	seconds, err := strconv.Atoi(c.PostForm("seconds"))
	if err != nil {
		return apperrors.NewValidationError("场景时长无效: "+c.PostForm("seconds"), err)
	}
	s.SetSceneDuration(seconds)
	return nil
}

func (h *Handler) formUpdateScene(c *gin.Context, s *services.Session) error {
	id, err := formSceneID(c)
	if err != nil {
		return err
	}

	if text, ok := c.GetPostForm("text"); ok {
		if err := s.Store.UpdateSceneField(id, models.SceneFieldText, normalizeNewlines(text)); err != nil {
			return err
		}
	}
	if description, ok := c.GetPostForm("description"); ok {
		if err := s.Store.UpdateSceneField(id, models.SceneFieldDescription, normalizeNewlines(description)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) formGenerateImages(c *gin.Context, s *services.Session) error {
	id, err := formSceneID(c)
	if err != nil {
		return err
	}
	s.Store.GenerateImages(id)
	return nil
}

func (h *Handler) formSelectImage(c *gin.Context, s *services.Session) error {
	id, err := formSceneID(c)
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(c.PostForm("index"))
	if err != nil {
		return apperrors.NewValidationError("图片序号无效: "+c.PostForm("index"), err)
	}
	s.Store.SelectImage(id, index)
	return nil
}

func (h *Handler) formGenerateVideo(c *gin.Context, s *services.Session) error {
	id, err := formSceneID(c)
	if err != nil {
		return err
	}
	s.Store.GenerateVideo(id)
	return nil
}

// Placeholder 返回指定尺寸的占位图（SVG）
func (h *Handler) Placeholder(c *gin.Context) {
	width, errW := strconv.Atoi(c.Param("width"))
	height, errH := strconv.Atoi(c.Param("height"))
	if errW != nil || errH != nil || width <= 0 || height <= 0 || width > 2000 || height > 2000 {
		h.Response.BadRequest(c, "占位图尺寸无效")
		return
	}

	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
		`<rect width="100%%" height="100%%" fill="#d1d5db"/>`+
		`<text x="50%%" y="50%%" font-family="sans-serif" font-size="14" fill="#6b7280" text-anchor="middle" dominant-baseline="middle">%d×%d</text>`+
		`</svg>`, width, height, width, height, width, height)

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/svg+xml", []byte(svg))
}
