// internal/services/scene_store.go
package services

import (
	"encoding/json"
	"math"
	"strings"

	apperrors "github.com/Corphon/SceneStudio/internal/errors"
	"github.com/Corphon/SceneStudio/internal/models"
)

// SceneStore 持有剧本文本和由它切分出来的场景序列
//
// 所有操作都是全函数：未知的场景ID静默忽略，生成操作没有失败路径。
// SceneStore 本身不加锁，由 SessionService 串行化同一会话的调用。
type SceneStore struct {
	script    string
	scenes    []*models.Scene
	generator MediaGenerator
}

// NewSceneStore 创建场景存储，generator 为 nil 时使用占位生成器
func NewSceneStore(script string, generator MediaGenerator) *SceneStore {
	if generator == nil {
		generator = PlaceholderGenerator{}
	}
	return &SceneStore{
		script:    script,
		scenes:    []*models.Scene{},
		generator: generator,
	}
}

// Script 当前剧本
func (s *SceneStore) Script() string {
	return s.script
}

// SetScript 替换剧本，不影响已切分的场景
func (s *SceneStore) SetScript(text string) {
	s.script = text
}

// Len 场景数量
func (s *SceneStore) Len() int {
	return len(s.scenes)
}

// Scenes 返回场景的深拷贝
func (s *SceneStore) Scenes() []*models.Scene {
	result := make([]*models.Scene, len(s.scenes))
	for i, scene := range s.scenes {
		result[i] = scene.Clone()
	}
	return result
}

// Scene 按ID返回场景拷贝
func (s *SceneStore) Scene(id int) (*models.Scene, bool) {
	scene := s.find(id)
	if scene == nil {
		return nil, false
	}
	return scene.Clone(), true
}

// SplitScript 按空行切分剧本，丢弃空白段落
func SplitScript(script string) []string {
	parts := strings.Split(script, models.SceneDelimiter)
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		segments = append(segments, part)
	}
	return segments
}

// DeriveScenes 由当前剧本重建全部场景，之前对场景的修改全部丢弃
func (s *SceneStore) DeriveScenes() int {
	segments := SplitScript(s.script)
	scenes := make([]*models.Scene, len(segments))
	for i, text := range segments {
		scenes[i] = models.NewScene(i+1, text)
	}
	s.scenes = scenes
	return len(scenes)
}

// UpdateSceneField 替换指定场景的单个字段
//
// 场景不存在时无操作。取值类型与字段不符时返回验证错误；
// 类型正确但会破坏不变量的取值（图片数量不是4、选中下标越界、计数为负、
// 把已生成标记改回 false）被忽略。
func (s *SceneStore) UpdateSceneField(id int, field models.SceneField, value interface{}) error {
	if !field.Valid() {
		err := apperrors.NewValidationError("未知的场景字段: "+string(field), nil)
		err.Code = "INVALID_FIELD"
		return err
	}

	scene := s.find(id)
	if scene == nil {
		return nil
	}

	switch field {
	case models.SceneFieldText, models.SceneFieldDescription:
		text, ok := value.(string)
		if !ok {
			return apperrors.NewInvalidFieldValueError(string(field), value)
		}
		if field == models.SceneFieldText {
			scene.Text = text
		} else {
			scene.Description = text
		}

	case models.SceneFieldHasImage, models.SceneFieldHasVideo:
		flag, ok := value.(bool)
		if !ok {
			return apperrors.NewInvalidFieldValueError(string(field), value)
		}
		// 生成标记只能置位
		if !flag {
			break
		}
		if field == models.SceneFieldHasImage {
			scene.HasImage = true
		} else {
			scene.HasVideo = true
		}

	case models.SceneFieldInteractionCount:
		n, ok := toInt(value)
		if !ok {
			return apperrors.NewInvalidFieldValueError(string(field), value)
		}
		if n >= 0 {
			scene.InteractionCount = n
		}

	case models.SceneFieldImages:
		images, ok := toStrings(value)
		if !ok {
			return apperrors.NewInvalidFieldValueError(string(field), value)
		}
		if len(images) == models.ImagesPerScene {
			scene.Images = images
		}

	case models.SceneFieldSelectedImageIndex:
		if value == nil {
			scene.SelectedImageIndex = nil
			return nil
		}
		n, ok := toInt(value)
		if !ok {
			return apperrors.NewInvalidFieldValueError(string(field), value)
		}
		if models.ValidImageIndex(n) {
			scene.SelectedImageIndex = &n
		}

	case models.SceneFieldVideo:
		if value == nil {
			scene.Video = nil
			return nil
		}
		video, ok := value.(string)
		if !ok {
			return apperrors.NewInvalidFieldValueError(string(field), value)
		}
		scene.Video = &video
	}

	return nil
}

// GenerateImages 为场景生成新的一组图片，并增加交互计数
func (s *SceneStore) GenerateImages(id int) {
	scene := s.find(id)
	if scene == nil {
		return
	}
	s.generateImages(scene)
}

// SelectImage 选中一张图片，越界下标被忽略
func (s *SceneStore) SelectImage(id int, index int) {
	scene := s.find(id)
	if scene == nil || !models.ValidImageIndex(index) {
		return
	}
	scene.SelectedImageIndex = &index
}

// GenerateVideo 为场景生成视频
//
// 不检查 HasImage：“先有图片”的约束只由界面禁用按钮来保证。
func (s *SceneStore) GenerateVideo(id int) {
	scene := s.find(id)
	if scene == nil {
		return
	}
	s.generateVideo(scene)
}

// GenerateAllImages 为所有还没有图片的场景生成图片，返回处理的场景数
func (s *SceneStore) GenerateAllImages() int {
	count := 0
	for _, scene := range s.scenes {
		if scene.HasImage {
			continue
		}
		s.generateImages(scene)
		count++
	}
	return count
}

// GenerateAllVideos 为所有有图片且还没有视频的场景生成视频，返回处理的场景数
func (s *SceneStore) GenerateAllVideos() int {
	count := 0
	for _, scene := range s.scenes {
		if !scene.HasImage || scene.HasVideo {
			continue
		}
		s.generateVideo(scene)
		count++
	}
	return count
}

func (s *SceneStore) generateImages(scene *models.Scene) {
	scene.Images = fitImages(s.generator.GenerateImages(scene))
	scene.HasImage = true
	scene.InteractionCount++
}

func (s *SceneStore) generateVideo(scene *models.Scene) {
	video := s.generator.GenerateVideo(scene)
	scene.Video = &video
	scene.HasVideo = true
}

func (s *SceneStore) find(id int) *models.Scene {
	// ID 等于切分顺序，先按下标直接取
	if id >= 1 && id <= len(s.scenes) && s.scenes[id-1].ID == id {
		return s.scenes[id-1]
	}
	for _, scene := range s.scenes {
		if scene.ID == id {
			return scene
		}
	}
	return nil
}

// fitImages 保证图片数量恰好为 ImagesPerScene，不足用占位图补齐
func fitImages(images []string) []string {
	result := make([]string, models.ImagesPerScene)
	for i := range result {
		if i < len(images) {
			result[i] = images[i]
		} else {
			result[i] = models.PlaceholderImage
		}
	}
	return result
}

// toInt 接受整数和整数值的浮点数（JSON 解码得到的数字是 float64）
func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func toStrings(value interface{}) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), true
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			result[i] = str
		}
		return result, true
	default:
		return nil, false
	}
}
