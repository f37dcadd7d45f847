// internal/services/media_generator.go
package services

import "github.com/Corphon/SceneStudio/internal/models"

// MediaGenerator 为场景生成图片和视频引用
//
// 生成是同步的且没有失败路径；接入真实生成服务时需要改成异步任务。
type MediaGenerator interface {
	GenerateImages(scene *models.Scene) []string
	GenerateVideo(scene *models.Scene) string
}

// PlaceholderGenerator 返回固定的占位资源地址
type PlaceholderGenerator struct{}

// GenerateImages 返回 ImagesPerScene 个占位图片地址
func (PlaceholderGenerator) GenerateImages(_ *models.Scene) []string {
	images := make([]string, models.ImagesPerScene)
	for i := range images {
		images[i] = models.PlaceholderImage
	}
	return images
}

// GenerateVideo 返回占位视频地址
func (PlaceholderGenerator) GenerateVideo(_ *models.Scene) string {
	return models.PlaceholderVideo
}
