// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/Corphon/SceneStudio/internal/api"
	"github.com/Corphon/SceneStudio/internal/config"
	"github.com/Corphon/SceneStudio/internal/di"
	"github.com/Corphon/SceneStudio/internal/services"
	"github.com/Corphon/SceneStudio/internal/storage"
	"github.com/Corphon/SceneStudio/internal/utils"
)

// httpServer 便于测试替换真实的 http.Server
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App 应用实例，负责服务的创建、启动和关闭
type App struct {
	config   *config.Config
	server   httpServer
	router   *api.Server
	stopChan chan os.Signal

	shutdownTimeout time.Duration
}

var (
	instance   *App
	instanceMu sync.Mutex
)

// GetApp 获取全局应用实例
func GetApp() *App {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		instance = &App{
			stopChan:        make(chan os.Signal, 1),
			shutdownTimeout: 30 * time.Second,
		}
	}
	return instance
}

// Initialize 初始化日志、服务和路由
func Initialize(cfg *config.Config) error {
	app := GetApp()
	app.config = cfg

	if err := initLogger(cfg.LogDir); err != nil {
		return fmt.Errorf("初始化日志系统失败: %w", err)
	}

	if err := InitServices(cfg); err != nil {
		return fmt.Errorf("初始化服务失败: %w", err)
	}

	router, err := api.SetupRouter(cfg)
	if err != nil {
		return fmt.Errorf("设置路由失败: %w", err)
	}
	app.router = router
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	utils.GetLogger().Info("✅ 应用初始化完成", map[string]interface{}{
		"port":     cfg.Port,
		"services": di.GetContainer().GetNames(),
	})
	return nil
}

// initLogger 在日志目录下按日期创建日志文件
func initLogger(logDir string) error {
	logFile := filepath.Join(logDir, fmt.Sprintf("server_%s.log", time.Now().Format("2006-01-02")))
	return utils.InitLogger(logFile)
}

// InitServices 按依赖顺序创建服务并注册到容器
func InitServices(cfg *config.Config) error {
	container := di.GetContainer()
	logger := utils.GetLogger()

	fileStorage, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return err
	}
	container.Register(di.ServiceStorage, fileStorage)

	sessions := services.NewSessionService(services.SessionOptions{
		UseSampleScript:      cfg.UseSampleScript,
		SessionTTL:           cfg.SessionTTL,
		DefaultSceneDuration: cfg.DefaultSceneDuration,
	}, logger)
	sessions.StartCleanup(time.Minute)
	container.Register(di.ServiceSessions, sessions)

	container.Register(di.ServicePreview, services.NewPreviewService(sessions, fileStorage, logger))
	return nil
}

// Run 启动HTTP服务，收到 SIGINT/SIGTERM 后优雅关闭
func Run() error {
	app := GetApp()
	if app.server == nil {
		return fmt.Errorf("应用尚未初始化")
	}
	logger := utils.GetLogger()

	serverErr := make(chan error, 1)
	go func() {
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	signal.Notify(app.stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(app.stopChan)

	var runErr error
	select {
	case <-app.stopChan:
		logger.Info("🛑 正在关闭服务器...", nil)
	case err := <-serverErr:
		runErr = fmt.Errorf("启动服务器失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("服务器强制关闭: %w", err)
	}

	app.cleanup()
	if runErr == nil {
		logger.Info("✅ 服务器优雅关闭完成", nil)
	}
	return runErr
}

// cleanup 停止后台协程并关闭日志文件
func (a *App) cleanup() {
	if a.router != nil {
		a.router.Close()
	}
	if sessions, ok := di.GetContainer().Get(di.ServiceSessions).(*services.SessionService); ok {
		sessions.Stop()
	}
	utils.GetLogger().Close()
}

// GetConfig 获取应用配置
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetDIContainer 获取依赖注入容器
func GetDIContainer() *di.Container {
	return di.GetContainer()
}

// IsDebugMode 是否处于调试模式
func IsDebugMode() bool {
	app := GetApp()
	return app.config != nil && app.config.DebugMode
}
