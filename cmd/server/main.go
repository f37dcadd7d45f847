// cmd/server/main.go
package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/SceneStudio/internal/app"
	"github.com/Corphon/SceneStudio/internal/config"
)

func main() {
	log.Println("🚀 启动 SceneStudio 服务器...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 配置加载完成，端口: %s", cfg.Port)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. 初始化日志、服务和路由
	if err := app.Initialize(cfg); err != nil {
		log.Fatalf("❌ 初始化应用失败: %v", err)
	}

	// 3. 启动服务器
	log.Printf("🌐 服务器启动在端口 %s", cfg.Port)
	log.Printf("🔗 访问地址: http://localhost:%s", cfg.Port)

	if err := app.Run(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}
