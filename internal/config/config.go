// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 存储应用配置
type Config struct {
	Port                 string
	DataDir              string // 时间线导出目录
	LogDir               string
	DebugMode            bool
	UseSampleScript      bool          // 新会话是否载入示例剧本
	SessionTTL           time.Duration // 会话空闲过期时间
	DefaultSceneDuration int           // 预览中每个场景的默认时长（秒）
	RateLimitPerMinute   int
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	_ = godotenv.Load()

	config := &Config{
		Port:                 getEnv("PORT", "8080"),
		DataDir:              getEnvPath("DATA_DIR", "data"),
		LogDir:               getEnvPath("LOG_DIR", "logs"),
		DebugMode:            getEnvBool("DEBUG_MODE", true),
		UseSampleScript:      getEnvBool("USE_SAMPLE_SCRIPT", true),
		SessionTTL:           getEnvDuration("SESSION_TTL", 2*time.Hour),
		DefaultSceneDuration: getEnvInt("DEFAULT_SCENE_DURATION", 5),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 300),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Default 返回不读取环境变量的默认配置，测试和演示程序使用
func Default() *Config {
	return &Config{
		Port:                 "8080",
		DataDir:              "data",
		LogDir:               "logs",
		DebugMode:            true,
		UseSampleScript:      true,
		SessionTTL:           2 * time.Hour,
		DefaultSceneDuration: 5,
		RateLimitPerMinute:   300,
	}
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("端口不能为空")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL 必须大于0: %s", c.SessionTTL)
	}
	if c.DefaultSceneDuration < 1 || c.DefaultSceneDuration > 10 {
		return fmt.Errorf("DEFAULT_SCENE_DURATION 必须在 1-10 之间: %d", c.DefaultSceneDuration)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE 必须大于0: %d", c.RateLimitPerMinute)
	}
	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	// 确保目录存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt 获取整数类型环境变量，解析失败时返回默认值
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		fmt.Printf("警告: 环境变量 %s 不是整数: %s\n", key, value)
		return defaultValue
	}
	return n
}

// getEnvDuration 获取时长类型环境变量，如 "30m"、"2h"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		fmt.Printf("警告: 环境变量 %s 不是有效时长: %s\n", key, value)
		return defaultValue
	}
	return d
}
