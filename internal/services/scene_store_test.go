package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/SceneStudio/internal/errors"
	"github.com/Corphon/SceneStudio/internal/models"
)

func newStore(script string) *SceneStore {
	return NewSceneStore(script, nil)
}

func TestDeriveScenesExample(t *testing.T) {
	store := newStore("A\n\nB\n\nC")

	require.Equal(t, 3, store.DeriveScenes())

	scenes := store.Scenes()
	for i, want := range []string{"A", "B", "C"} {
		assert.Equal(t, i+1, scenes[i].ID)
		assert.Equal(t, want, scenes[i].Text)
		assert.Equal(t, "", scenes[i].Description)
		assert.Equal(t, 0, scenes[i].InteractionCount)
		assert.False(t, scenes[i].HasImage)
		assert.False(t, scenes[i].HasVideo)
		assert.Len(t, scenes[i].Images, models.ImagesPerScene)
		assert.Nil(t, scenes[i].SelectedImageIndex)
		assert.Nil(t, scenes[i].Video)
	}
}

func TestDeriveScenesMatchesSegmentCount(t *testing.T) {
	scripts := []string{
		"",
		"   ",
		"single",
		"A\n\n\n\nB",
		"\n\nA\n\n  \n\nB\n\n",
		"line one\nline two\n\nnext",
		"A\n\n\nB",
		models.SampleScript,
	}

	for _, script := range scripts {
		t.Run(fmt.Sprintf("%q", script[:min(len(script), 12)]), func(t *testing.T) {
			want := 0
			for _, part := range strings.Split(script, "\n\n") {
				if strings.TrimSpace(part) != "" {
					want++
				}
			}

			store := newStore(script)
			assert.Equal(t, want, store.DeriveScenes())
			for i, scene := range store.Scenes() {
				assert.Equal(t, i+1, scene.ID)
				assert.NotEmpty(t, strings.TrimSpace(scene.Text))
			}
		})
	}
}

func TestSampleScriptHasTenScenes(t *testing.T) {
	store := newStore(models.SampleScript)
	assert.Equal(t, 10, store.DeriveScenes())
}

func TestSplitKeepsSegmentText(t *testing.T) {
	// Segments are kept as written; only the separator is removed
	assert.Equal(t, []string{"A", "\nB"}, SplitScript("A\n\n\nB"))
	assert.Equal(t, []string{" A "}, SplitScript(" A \n\n \t "))
}

func TestSetScriptDoesNotTouchScenes(t *testing.T) {
	store := newStore("A\n\nB")
	store.DeriveScenes()

	store.SetScript("X\n\nY\n\nZ")

	assert.Equal(t, "X\n\nY\n\nZ", store.Script())
	assert.Equal(t, 2, store.Len())
	scene, ok := store.Scene(1)
	require.True(t, ok)
	assert.Equal(t, "A", scene.Text)
}

func TestRederiveDiscardsEdits(t *testing.T) {
	store := newStore("A\n\nB")
	store.DeriveScenes()
	store.GenerateImages(1)
	require.NoError(t, store.UpdateSceneField(2, models.SceneFieldDescription, "note"))

	store.SetScript("C")
	store.DeriveScenes()

	scenes := store.Scenes()
	require.Len(t, scenes, 1)
	assert.Equal(t, "C", scenes[0].Text)
	assert.False(t, scenes[0].HasImage)
	assert.Equal(t, 0, scenes[0].InteractionCount)
}

func TestGenerateImagesTwice(t *testing.T) {
	store := newStore("A")
	store.DeriveScenes()

	store.GenerateImages(1)
	store.GenerateImages(1)

	scene, ok := store.Scene(1)
	require.True(t, ok)
	assert.Equal(t, 2, scene.InteractionCount)
	assert.True(t, scene.HasImage)
	assert.Len(t, scene.Images, 4)
}

type countingGenerator struct {
	calls int
	size  int
}

func (g *countingGenerator) GenerateImages(scene *models.Scene) []string {
	g.calls++
	images := make([]string, g.size)
	for i := range images {
		images[i] = fmt.Sprintf("/img/%d/%d/%d", scene.ID, g.calls, i)
	}
	return images
}

func (g *countingGenerator) GenerateVideo(scene *models.Scene) string {
	return fmt.Sprintf("/video/%d", scene.ID)
}

func TestGenerateImagesReplacesSetWholesale(t *testing.T) {
	gen := &countingGenerator{size: 4}
	store := NewSceneStore("A", gen)
	store.DeriveScenes()

	store.GenerateImages(1)
	first, _ := store.Scene(1)
	store.GenerateImages(1)
	second, _ := store.Scene(1)

	assert.Equal(t, "/img/1/1/0", first.Images[0])
	assert.Equal(t, "/img/1/2/0", second.Images[0])
}

func TestGenerateImagesAlwaysFour(t *testing.T) {
	for _, size := range []int{0, 2, 4, 7} {
		store := NewSceneStore("A", &countingGenerator{size: size})
		store.DeriveScenes()

		store.GenerateImages(1)

		scene, _ := store.Scene(1)
		assert.Len(t, scene.Images, models.ImagesPerScene, "generator size %d", size)
	}
}

func TestGenerateVideoWithoutImageIsPermissive(t *testing.T) {
	store := newStore("A")
	store.DeriveScenes()

	store.GenerateVideo(1)

	scene, _ := store.Scene(1)
	assert.False(t, scene.HasImage)
	assert.True(t, scene.HasVideo)
	require.NotNil(t, scene.Video)
	assert.Equal(t, models.PlaceholderVideo, *scene.Video)
}

func TestUnknownSceneIsNoop(t *testing.T) {
	store := newStore("A")
	store.DeriveScenes()
	before := store.Scenes()

	store.GenerateImages(99)
	store.GenerateVideo(99)
	store.SelectImage(99, 1)
	assert.NoError(t, store.UpdateSceneField(99, models.SceneFieldText, "x"))

	assert.Equal(t, before, store.Scenes())
}

func TestSelectImage(t *testing.T) {
	store := newStore("A")
	store.DeriveScenes()

	store.SelectImage(1, 2)
	scene, _ := store.Scene(1)
	require.NotNil(t, scene.SelectedImageIndex)
	assert.Equal(t, 2, *scene.SelectedImageIndex)

	store.SelectImage(1, 4)
	store.SelectImage(1, -1)
	scene, _ = store.Scene(1)
	assert.Equal(t, 2, *scene.SelectedImageIndex)
}

func TestDisplayImageDefaultsToFirst(t *testing.T) {
	store := NewSceneStore("A", &countingGenerator{size: 4})
	store.DeriveScenes()
	store.GenerateImages(1)

	scene, _ := store.Scene(1)
	assert.Equal(t, scene.Images[0], scene.DisplayImage())

	store.SelectImage(1, 3)
	scene, _ = store.Scene(1)
	assert.Equal(t, scene.Images[3], scene.DisplayImage())
}

func TestGenerateAllImagesIdempotent(t *testing.T) {
	store := newStore("A\n\nB\n\nC")
	store.DeriveScenes()
	store.GenerateImages(2)

	assert.Equal(t, 2, store.GenerateAllImages())
	assert.Equal(t, 0, store.GenerateAllImages())

	for _, scene := range store.Scenes() {
		assert.True(t, scene.HasImage)
		assert.Equal(t, 1, scene.InteractionCount, "scene %d", scene.ID)
	}
}

func TestGenerateAllVideosOnlyWithImages(t *testing.T) {
	store := newStore("A\n\nB\n\nC")
	store.DeriveScenes()
	store.GenerateImages(1)
	store.GenerateImages(3)
	store.GenerateVideo(3)

	assert.Equal(t, 1, store.GenerateAllVideos())

	scenes := store.Scenes()
	assert.True(t, scenes[0].HasVideo)
	assert.False(t, scenes[1].HasVideo)
	assert.True(t, scenes[2].HasVideo)
}

func TestGenerateAllOrder(t *testing.T) {
	var order []int
	gen := &recordingGenerator{order: &order}
	store := NewSceneStore("A\n\nB\n\nC", gen)
	store.DeriveScenes()

	store.GenerateAllImages()

	assert.Equal(t, []int{1, 2, 3}, order)
}

type recordingGenerator struct {
	PlaceholderGenerator
	order *[]int
}

func (g *recordingGenerator) GenerateImages(scene *models.Scene) []string {
	*g.order = append(*g.order, scene.ID)
	return g.PlaceholderGenerator.GenerateImages(scene)
}

func TestUpdateSceneFieldAllFields(t *testing.T) {
	store := newStore("A\n\nB")
	store.DeriveScenes()

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"count": 3, "index": 1, "images": ["a","b","c","d"]}`), &decoded))

	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldText, "edited"))
	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldDescription, "wide shot"))
	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldInteractionCount, decoded["count"]))
	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldHasImage, true))
	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldHasVideo, true))
	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldImages, decoded["images"]))
	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldSelectedImageIndex, decoded["index"]))
	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldVideo, "/v.mp4"))

	scenes := store.Scenes()
	first := scenes[0]
	assert.Equal(t, "edited", first.Text)
	assert.Equal(t, "wide shot", first.Description)
	assert.Equal(t, 3, first.InteractionCount)
	assert.True(t, first.HasImage)
	assert.True(t, first.HasVideo)
	assert.Equal(t, []string{"a", "b", "c", "d"}, first.Images)
	assert.Equal(t, 1, *first.SelectedImageIndex)
	assert.Equal(t, "/v.mp4", *first.Video)

	// other scenes untouched
	assert.Equal(t, models.NewScene(2, "B"), scenes[1])
}

func TestUpdateSceneFieldClearsOptional(t *testing.T) {
	store := newStore("A")
	store.DeriveScenes()
	store.SelectImage(1, 1)
	store.GenerateVideo(1)

	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldSelectedImageIndex, nil))
	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldVideo, nil))

	scene, _ := store.Scene(1)
	assert.Nil(t, scene.SelectedImageIndex)
	assert.Nil(t, scene.Video)
}

func TestUpdateSceneFieldIgnoresInvariantBreakingValues(t *testing.T) {
	store := newStore("A")
	store.DeriveScenes()

	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldImages, []string{"only-one"}))
	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldSelectedImageIndex, 9))
	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldInteractionCount, -2))

	scene, _ := store.Scene(1)
	assert.Len(t, scene.Images, 4)
	assert.Nil(t, scene.SelectedImageIndex)
	assert.Equal(t, 0, scene.InteractionCount)
}

func TestUpdateSceneFieldGeneratedFlagsNeverReset(t *testing.T) {
	store := newStore("A\n\nB")
	store.DeriveScenes()
	store.GenerateImages(1)
	store.GenerateVideo(1)

	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldHasImage, false))
	require.NoError(t, store.UpdateSceneField(1, models.SceneFieldHasVideo, false))

	scene, _ := store.Scene(1)
	assert.True(t, scene.HasImage)
	assert.True(t, scene.HasVideo)

	// batch generation must not treat scene 1 as fresh again
	store.GenerateAllImages()
	scene, _ = store.Scene(1)
	assert.Equal(t, 1, scene.InteractionCount)
	other, _ := store.Scene(2)
	assert.Equal(t, 1, other.InteractionCount)

	// setting a flag true is still allowed
	require.NoError(t, store.UpdateSceneField(2, models.SceneFieldHasVideo, true))
	other, _ = store.Scene(2)
	assert.True(t, other.HasVideo)
}

func TestUpdateSceneFieldTypeMismatch(t *testing.T) {
	store := newStore("A")
	store.DeriveScenes()

	cases := []struct {
		field models.SceneField
		value interface{}
	}{
		{models.SceneFieldText, 1},
		{models.SceneFieldHasImage, "yes"},
		{models.SceneFieldInteractionCount, 1.5},
		{models.SceneFieldImages, []interface{}{"a", 2, "c", "d"}},
		{models.SceneFieldSelectedImageIndex, "0"},
		{models.SceneFieldVideo, false},
	}

	for _, tc := range cases {
		err := store.UpdateSceneField(1, tc.field, tc.value)
		assert.True(t, apperrors.IsValidationError(err), "field %s", tc.field)
	}

	err := store.UpdateSceneField(1, models.SceneField("id"), 5)
	assert.True(t, apperrors.IsValidationError(err))
	assert.Equal(t, "INVALID_FIELD", apperrors.CodeOf(err))
}

func TestScenesReturnsCopies(t *testing.T) {
	store := newStore("A")
	store.DeriveScenes()

	scenes := store.Scenes()
	scenes[0].Text = "mutated"
	scenes[0].Images[0] = "mutated"

	scene, _ := store.Scene(1)
	assert.Equal(t, "A", scene.Text)
	assert.Equal(t, models.PlaceholderImage, scene.Images[0])
}
