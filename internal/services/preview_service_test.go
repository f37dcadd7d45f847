package services

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	apperrors "github.com/Corphon/SceneStudio/internal/errors"
	"github.com/Corphon/SceneStudio/internal/models"
	"github.com/Corphon/SceneStudio/internal/storage"
	"github.com/Corphon/SceneStudio/internal/utils"
)

func newTestPreviewService(t *testing.T, withStorage bool) (*PreviewService, string) {
	t.Helper()
	logger := utils.NewLogger(&bytes.Buffer{}, utils.ERROR)
	sessions := NewSessionService(SessionOptions{}, logger)
	t.Cleanup(sessions.Stop)

	var fileStorage *storage.FileStorage
	if withStorage {
		var err error
		fileStorage, err = storage.NewFileStorage(t.TempDir())
		require.NoError(t, err)
	}

	preview := NewPreviewService(sessions, fileStorage, logger)
	preview.now = func() time.Time {
		return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	}

	id := sessions.Create().ID
	_, err := sessions.Update(id, func(s *Session) error {
		s.Store.SetScript("A\n\nB\n\nC")
		s.Advance()
		s.Store.GenerateImages(1)
		s.Store.SelectImage(1, 2)
		s.Store.GenerateVideo(2)
		return nil
	})
	require.NoError(t, err)
	return preview, id
}

func TestBuildTimeline(t *testing.T) {
	scenes := []*models.Scene{models.NewScene(1, "A"), models.NewScene(2, "B")}
	at := time.Now()

	timeline := BuildTimeline("s1", scenes, 4, at)

	assert.Equal(t, models.TimelineVersion, timeline.Version)
	assert.Equal(t, 8, timeline.TotalDuration)
	require.Len(t, timeline.Entries, 2)
	assert.Equal(t, "Scene 1", timeline.Entries[0].Label)
	assert.Equal(t, 0, timeline.Entries[0].Start)
	assert.Equal(t, 4, timeline.Entries[1].Start)
	assert.Equal(t, models.PlaceholderImage, timeline.Entries[1].Image)
	assert.Empty(t, timeline.Entries[1].Video)
}

func TestBuildTimelineEmpty(t *testing.T) {
	timeline := BuildTimeline("s1", nil, 5, time.Now())

	assert.Empty(t, timeline.Entries)
	assert.Equal(t, 0, timeline.TotalDuration)
}

func TestPreviewTimelineFromSession(t *testing.T) {
	preview, id := newTestPreviewService(t, false)

	timeline, err := preview.Timeline(id)
	require.NoError(t, err)

	require.Len(t, timeline.Entries, 3)
	assert.Equal(t, 15, timeline.TotalDuration)
	assert.Equal(t, models.PlaceholderImage, timeline.Entries[0].Image)
	assert.Equal(t, models.PlaceholderVideo, timeline.Entries[1].Video)
	assert.Empty(t, timeline.Entries[2].Video)
}

func TestPreviewSetSceneDuration(t *testing.T) {
	preview, id := newTestPreviewService(t, false)

	timeline, err := preview.SetSceneDuration(id, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, timeline.TotalDuration)

	timeline, err = preview.SetSceneDuration(id, 99)
	require.NoError(t, err)
	assert.Equal(t, models.MaxSceneDuration, timeline.SceneDuration)
}

func TestPreviewRender(t *testing.T) {
	preview, id := newTestPreviewService(t, false)

	content, err := preview.Render(id, "json")
	require.NoError(t, err)
	var decoded models.Timeline
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Len(t, decoded.Entries, 3)

	content, err = preview.Render(id, "yml")
	require.NoError(t, err)
	assert.Contains(t, string(content), "session_id: "+id)

	_, err = preview.Render(id, "xml")
	assert.True(t, apperrors.IsValidationError(err))
	assert.Equal(t, "EXPORT_FORMAT_INVALID", apperrors.CodeOf(err))

	_, err = preview.Render("missing", "yaml")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestPreviewExportWritesFile(t *testing.T) {
	preview, id := newTestPreviewService(t, true)

	result, err := preview.Export(id, "")
	require.NoError(t, err)

	assert.Equal(t, ExportFormatYAML, result.Format)
	filename := filepath.Base(result.FilePath)
	assert.True(t, strings.HasPrefix(filename, "timeline_2024-03-01_12-30-00_"), filename)
	assert.True(t, strings.HasSuffix(filename, ".yaml"), filename)
	assert.Equal(t, len(result.Content), result.Size)

	var loaded models.Timeline
	require.NoError(t, preview.Storage.LoadYAMLFile(id, filename, &loaded))
	assert.Equal(t, 15, loaded.TotalDuration)
	assert.Len(t, loaded.Entries, 3)

	files, err := preview.Exports(id)
	require.NoError(t, err)
	assert.Equal(t, []string{filename}, files)
}

func TestPreviewExportsInSameSecondKeepBothFiles(t *testing.T) {
	preview, id := newTestPreviewService(t, true)

	first, err := preview.Export(id, "yaml")
	require.NoError(t, err)
	second, err := preview.Export(id, "yaml")
	require.NoError(t, err)

	assert.NotEqual(t, first.FilePath, second.FilePath)
	files, err := preview.Exports(id)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestPreviewLoadExport(t *testing.T) {
	preview, id := newTestPreviewService(t, true)
	result, err := preview.Export(id, "json")
	require.NoError(t, err)

	filename := filepath.Base(result.FilePath)
	content, err := preview.LoadExport(id, filename)
	require.NoError(t, err)
	assert.Equal(t, result.Content, string(content))

	_, err = preview.LoadExport(id, "timeline_missing.yaml")
	assert.Equal(t, "EXPORT_NOT_FOUND", apperrors.CodeOf(err))

	_, err = preview.LoadExport(id, "../"+id+"/"+filename)
	assert.True(t, apperrors.IsValidationError(err))

	_, err = preview.LoadExport("missing", filename)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestPreviewExportWithoutStorage(t *testing.T) {
	preview, id := newTestPreviewService(t, false)

	_, err := preview.Export(id, "json")
	assert.Error(t, err)

	files, err := preview.Exports(id)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestTimelineYAMLShape(t *testing.T) {
	timeline := BuildTimeline("s1", []*models.Scene{models.NewScene(1, "A")}, 5, time.Now())

	content, err := encodeTimeline(timeline, ExportFormatYAML)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, yaml.Unmarshal(content, &raw))
	assert.Equal(t, 5, raw["total_duration"])
	assert.True(t, strings.HasPrefix(string(content), "version:"))
}
