package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeProgressAndCurrentStep(t *testing.T) {
	tpl := chainTemplate()
	inst := newInstance(tpl)

	assert.Equal(t, 0.0, ComputeProgress(inst, tpl))
	require.NotNil(t, CurrentStep(inst, tpl))
	assert.Equal(t, "S1", CurrentStep(inst, tpl).ID)

	inst.StepProgress["S1"] = StepProgress{Status: StepCompleted}
	assert.InDelta(t, 33.33, ComputeProgress(inst, tpl), 0.01)
	assert.Equal(t, "S2", CurrentStep(inst, tpl).ID)

	inst.StepProgress["S2"] = StepProgress{Status: StepCompleted}
	inst.StepProgress["S3"] = StepProgress{Status: StepCompleted}
	assert.Equal(t, 100.0, ComputeProgress(inst, tpl))
	assert.Nil(t, CurrentStep(inst, tpl))
	assert.True(t, AllStepsCompleted(inst, tpl))
}

func TestProgressIgnoresStepsOutsideTemplate(t *testing.T) {
	tpl := chainTemplate()
	inst := newInstance(tpl)
	inst.StepProgress["gone"] = StepProgress{Status: StepCompleted}
	assert.Equal(t, 0, CompletedStepCount(inst, tpl))
}

func TestEmptyTemplateIsNeverComplete(t *testing.T) {
	tpl := Template{ID: "empty"}
	inst := newInstance(tpl)
	assert.Equal(t, 0.0, ComputeProgress(inst, tpl))
	assert.False(t, AllStepsCompleted(inst, tpl))
	assert.Nil(t, CurrentStep(inst, tpl))
}

func TestEffectiveStatus(t *testing.T) {
	tpl := chainTemplate()
	inst := newInstance(tpl)
	s1 := tpl.Steps[0] // due 2024-08-30

	assert.Equal(t, StepPending, EffectiveStatus(inst, s1, t0))
	assert.Equal(t, StepPending, EffectiveStatus(inst, s1, time.Date(2024, 8, 30, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, StepOverdue, EffectiveStatus(inst, s1, time.Date(2024, 8, 31, 0, 1, 0, 0, time.UTC)))

	inst.StepProgress["S1"] = StepProgress{Status: StepInProgress}
	assert.Equal(t, StepOverdue, EffectiveStatus(inst, s1, time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC)))

	inst.StepProgress["S1"] = StepProgress{Status: StepCompleted}
	assert.Equal(t, StepCompleted, EffectiveStatus(inst, s1, time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC)))

	// a stored overdue is honoured before the due date
	inst.StepProgress["S1"] = StepProgress{Status: StepOverdue}
	assert.Equal(t, StepOverdue, EffectiveStatus(inst, s1, t0))

	unanchored := newInstance(tpl)
	unanchored.AnchorDate = Date{}
	_, ok := DueDate(unanchored, s1)
	assert.False(t, ok)
	assert.Equal(t, StepPending, EffectiveStatus(unanchored, s1, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNeedsEscalation(t *testing.T) {
	tpl := chainTemplate()
	step := tpl.Steps[1]
	step.Notifications.EscalationHours = 24
	inst := newInstance(tpl)

	assert.False(t, NeedsEscalation(inst, step, t0.Add(48*time.Hour)))

	start := t0
	inst.StepProgress["S2"] = StepProgress{Status: StepInProgress, StartTime: &start}
	assert.False(t, NeedsEscalation(inst, step, t0.Add(23*time.Hour)))
	assert.True(t, NeedsEscalation(inst, step, t0.Add(25*time.Hour)))

	inst.StepProgress["S2"] = StepProgress{Status: StepCompleted, StartTime: &start}
	assert.False(t, NeedsEscalation(inst, step, t0.Add(25*time.Hour)))

	step.Notifications.EscalationHours = 0
	inst.StepProgress["S2"] = StepProgress{Status: StepInProgress, StartTime: &start}
	assert.False(t, NeedsEscalation(inst, step, t0.Add(1000*time.Hour)))
}
