// internal/models/scene.go
package models

// ImagesPerScene 每个场景固定的候选图片数量
const ImagesPerScene = 4

// 占位资源地址，模拟生成时使用
const (
	PlaceholderImage = "/api/placeholder/150/150"
	PlaceholderVideo = "/api/placeholder/300/200"
)

// Scene 表示从剧本切分出来的一个场景
type Scene struct {
	// 从1开始，按切分顺序分配，会话内不复用
	ID int `json:"id"`
	// 切分后可独立编辑，不再与剧本同步
	Text             string `json:"text"`
	Description      string `json:"description"`
	InteractionCount int    `json:"interaction_count"`
	HasImage         bool   `json:"has_image"`
	HasVideo         bool   `json:"has_video"`
	// 固定 ImagesPerScene 张
	Images []string `json:"images"`
	// nil 表示未选择，展示时默认第一张
	SelectedImageIndex *int    `json:"selected_image_index,omitempty"`
	Video              *string `json:"video,omitempty"`
}

// NewScene 创建一个初始状态的场景
func NewScene(id int, text string) *Scene {
	images := make([]string, ImagesPerScene)
	for i := range images {
		images[i] = PlaceholderImage
	}

	return &Scene{
		ID:     id,
		Text:   text,
		Images: images,
	}
}

// DisplayImage 返回当前展示的图片，未选择时展示第一张
func (s *Scene) DisplayImage() string {
	if len(s.Images) == 0 {
		return ""
	}
	if s.SelectedImageIndex != nil && ValidImageIndex(*s.SelectedImageIndex) {
		return s.Images[*s.SelectedImageIndex]
	}
	return s.Images[0]
}

// Clone 返回场景的深拷贝
func (s *Scene) Clone() *Scene {
	clone := *s
	clone.Images = append([]string(nil), s.Images...)
	if s.SelectedImageIndex != nil {
		idx := *s.SelectedImageIndex
		clone.SelectedImageIndex = &idx
	}
	if s.Video != nil {
		video := *s.Video
		clone.Video = &video
	}
	return &clone
}

// ValidImageIndex 检查图片下标是否在 [0, ImagesPerScene) 内
func ValidImageIndex(index int) bool {
	return index >= 0 && index < ImagesPerScene
}

// SceneField 场景中可单独更新的字段
type SceneField string

const (
	SceneFieldText               SceneField = "text"
	SceneFieldDescription        SceneField = "description"
	SceneFieldInteractionCount   SceneField = "interaction_count"
	SceneFieldHasImage           SceneField = "has_image"
	SceneFieldHasVideo           SceneField = "has_video"
	SceneFieldImages             SceneField = "images"
	SceneFieldSelectedImageIndex SceneField = "selected_image_index"
	SceneFieldVideo              SceneField = "video"
)

// SceneFields 所有可更新字段
var SceneFields = []SceneField{
	SceneFieldText,
	SceneFieldDescription,
	SceneFieldInteractionCount,
	SceneFieldHasImage,
	SceneFieldHasVideo,
	SceneFieldImages,
	SceneFieldSelectedImageIndex,
	SceneFieldVideo,
}

// Valid 检查字段名是否合法
func (f SceneField) Valid() bool {
	for _, field := range SceneFields {
		if f == field {
			return true
		}
	}
	return false
}
