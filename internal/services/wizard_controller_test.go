package services

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Corphon/SceneStudio/internal/models"
)

func TestWizardStartsAtScriptInput(t *testing.T) {
	w := NewWizardController()

	assert.Equal(t, models.StepScriptInput, w.Current())
	assert.Equal(t, "Script Input", w.Current().String())
	assert.True(t, w.CanAdvance())
	assert.False(t, w.CanRetreat())
}

func TestWizardRetreatAtLowerBound(t *testing.T) {
	w := NewWizardController()

	assert.Equal(t, models.StepScriptInput, w.Retreat())
	assert.Equal(t, models.StepScriptInput, w.Current())
}

func TestWizardAdvanceClampsAtPreview(t *testing.T) {
	w := NewWizardController()

	assert.Equal(t, models.StepSceneEditing, w.Advance())
	assert.Equal(t, models.StepPreview, w.Advance())
	assert.Equal(t, models.StepPreview, w.Advance())
	assert.False(t, w.CanAdvance())
	assert.True(t, w.CanRetreat())
}

func TestWizardStaysInRange(t *testing.T) {
	w := NewWizardController()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		if rng.Intn(2) == 0 {
			w.Advance()
		} else {
			w.Retreat()
		}
		assert.True(t, w.Current().Valid(), "step %d out of range", w.Current())
	}
}

func TestWizardOnEnterOnlyOnChange(t *testing.T) {
	w := NewWizardController()
	var entered []models.Step
	w.OnEnter(func(step models.Step) { entered = append(entered, step) })

	w.Retreat() // no-op
	w.Advance()
	w.Advance()
	w.Advance() // no-op
	w.Retreat()

	assert.Equal(t, []models.Step{models.StepSceneEditing, models.StepPreview, models.StepSceneEditing}, entered)
}

func TestStepNames(t *testing.T) {
	assert.Equal(t, []string{"Script Input", "Scene Editing", "Preview"}, models.StepNames())
	assert.Equal(t, "preview", models.StepPreview.Slug())
	assert.False(t, models.Step(3).Valid())
}
