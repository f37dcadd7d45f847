// internal/api/router.go
package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/SceneStudio/internal/config"
	"github.com/Corphon/SceneStudio/internal/di"
	"github.com/Corphon/SceneStudio/internal/services"
	"github.com/Corphon/SceneStudio/internal/utils"
	"github.com/Corphon/SceneStudio/internal/web"
)

// Server 路由及其后台组件，关闭服务时需要调用 Close
type Server struct {
	Engine    *gin.Engine
	Handler   *Handler
	WebSocket *WebSocketManager
	Metrics   *utils.APIMetrics
	limiter   *RateLimiter
}

// Close 停止 WebSocket 管理器和限流器的后台协程
func (s *Server) Close() {
	s.WebSocket.Shutdown()
	s.limiter.Stop()
}

// SetupRouter 从全局容器取得服务并配置HTTP路由
func SetupRouter(cfg *config.Config) (*Server, error) {
	container := di.GetContainer()

	sessions, ok := container.Get(di.ServiceSessions).(*services.SessionService)
	if !ok {
		return nil, fmt.Errorf("会话服务未正确初始化")
	}

	preview, ok := container.Get(di.ServicePreview).(*services.PreviewService)
	if !ok {
		return nil, fmt.Errorf("预览服务未正确初始化")
	}

	return NewServer(cfg, sessions, preview, utils.GetLogger())
}

// NewServer 使用给定的服务构建路由
func NewServer(cfg *config.Config, sessions *services.SessionService, preview *services.PreviewService, logger *utils.Logger) (*Server, error) {
	templates, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("解析页面模板失败: %w", err)
	}

	wsManager := NewWebSocketManager(logger)
	wsManager.Start()

	handler := NewHandler(sessions, preview, NewWebSocketHandler(wsManager, sessions, logger), logger)
	handler.Metrics = utils.NewAPIMetrics(utils.NewMetricsCollector(), logger)
	limiter := NewRateLimiter(time.Hour)

	// 创建路由
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.DebugMode {
		r.Use(gin.Logger())
	}
	r.Use(requestIDMiddleware())
	r.Use(corsMiddleware())
	r.Use(metricsMiddleware(handler.Metrics))

	r.SetHTMLTemplate(templates)
	r.StaticFS("/static", web.Static())

	r.GET("/health", handler.Health)

	// ===============================
	// 页面路由
	// ===============================
	r.GET("/", handler.IndexPage)
	pages := r.Group("/sessions/:id")
	{
		pages.GET("", handler.SessionPage)
		pages.POST("/next", handler.formAction(handler.formNext))
		pages.POST("/prev", handler.formAction(handler.formPrev))
		pages.POST("/script", handler.formAction(handler.formScript))
		pages.POST("/split", handler.formAction(handler.formSplit))
		pages.POST("/generate-all-images", handler.formAction(handler.formGenerateAllImages))
		pages.POST("/generate-all-videos", handler.formAction(handler.formGenerateAllVideos))
		pages.POST("/duration", handler.formAction(handler.formDuration))

		scenePages := pages.Group("/scenes/:scene_id")
		{
			scenePages.POST("/update", handler.formAction(handler.formUpdateScene))
			scenePages.POST("/generate-images", handler.formAction(handler.formGenerateImages))
			scenePages.POST("/select-image", handler.formAction(handler.formSelectImage))
			scenePages.POST("/generate-video", handler.formAction(handler.formGenerateVideo))
		}
	}

	// WebSocket 支持
	r.GET("/ws/sessions/:id", handler.WebSocketHandler.SessionWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	api.Use(RateLimitByIP(limiter, cfg.RateLimitPerMinute, time.Minute))
	{
		api.GET("/placeholder/:width/:height", handler.Placeholder)
		api.GET("/ws/status", handler.GetWebSocketStatus)
		api.GET("/metrics", handler.GetMetrics)

		api.POST("/sessions", handler.CreateSession)

		sessionGroup := api.Group("/sessions/:id")
		{
			sessionGroup.GET("", handler.GetSession)
			sessionGroup.DELETE("", handler.DeleteSession)
			sessionGroup.POST("/advance", handler.Advance)
			sessionGroup.POST("/retreat", handler.Retreat)
			sessionGroup.PUT("/script", handler.SetScript)

			// 场景相关路由
			scenesGroup := sessionGroup.Group("/scenes")
			{
				scenesGroup.POST("/derive", handler.DeriveScenes)
				scenesGroup.POST("/images", handler.GenerateAllImages)
				scenesGroup.POST("/videos", handler.GenerateAllVideos)
				scenesGroup.PATCH("/:scene_id", handler.UpdateScene)
				scenesGroup.POST("/:scene_id/images", handler.GenerateImages)
				scenesGroup.PUT("/:scene_id/selection", handler.SelectImage)
				scenesGroup.POST("/:scene_id/video", handler.GenerateVideo)
			}

			// 时间线与导出
			timelineGroup := sessionGroup.Group("/timeline")
			{
				timelineGroup.GET("", handler.GetTimeline)
				timelineGroup.PUT("/duration", handler.SetSceneDuration)
				timelineGroup.GET("/export", handler.DownloadTimeline)
				timelineGroup.POST("/export", handler.ExportTimeline)
				timelineGroup.GET("/exports", handler.ListExports)
				timelineGroup.GET("/exports/:filename", handler.GetExport)
			}
		}
	}

	return &Server{
		Engine:    r,
		Handler:   handler,
		WebSocket: wsManager,
		Metrics:   handler.Metrics,
		limiter:   limiter,
	}, nil
}
