package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDueDate(t *testing.T) {
	anchor := NewDate(2024, time.June, 15)
	cases := []struct {
		offset int
		want   string
	}{
		{-2, "2024-06-13"},
		{0, "2024-06-15"},
		{5, "2024-06-20"},
		{20, "2024-07-05"},
		{-200, "2023-11-28"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ComputeDueDate(anchor, tc.offset).String(), "offset %d", tc.offset)
	}
}

func TestValidateDependencyGraphFindsCycle(t *testing.T) {
	steps := []Step{
		{ID: "A", Dependencies: []string{"B"}},
		{ID: "B", Dependencies: []string{"A"}},
	}
	err := ValidateDependencyGraph(steps)
	var cycle *CycleDetectedError
	require.ErrorAs(t, err, &cycle)
	assert.ElementsMatch(t, []string{"A", "B"}, cycle.StepIDs)
}

func TestValidateDependencyGraphLongCycleOnly(t *testing.T) {
	steps := []Step{
		{ID: "root"},
		{ID: "A", Dependencies: []string{"root", "C"}},
		{ID: "B", Dependencies: []string{"A"}},
		{ID: "C", Dependencies: []string{"B"}},
	}
	var cycle *CycleDetectedError
	require.ErrorAs(t, ValidateDependencyGraph(steps), &cycle)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, cycle.StepIDs)
}

func TestValidateDependencyGraphAcyclic(t *testing.T) {
	assert.NoError(t, ValidateDependencyGraph(chainTemplate().Steps))
	assert.NoError(t, ValidateDependencyGraph([]Step{{ID: "A", Dependencies: []string{"ghost"}}}))
	assert.NoError(t, ValidateDependencyGraph(nil))
}

func TestValidateTemplate(t *testing.T) {
	require.NoError(t, ValidateTemplate(chainTemplate()))

	bad := chainTemplate()
	bad.Name = ""
	bad.Groups = append(bad.Groups, Group{ID: "prep", Order: 0})
	bad.Steps[0].EstimatedHours = 0
	bad.Steps[1].GroupID = "nowhere"
	bad.Steps[2].Dependencies = []string{"S9"}

	var invalid *InvalidTemplateError
	require.ErrorAs(t, ValidateTemplate(bad), &invalid)
	assert.Len(t, invalid.Problems, 6)
	assert.Contains(t, invalid.Error(), `step "S3" depends on unknown step "S9"`)

	empty := chainTemplate()
	empty.Steps = nil
	require.ErrorAs(t, ValidateTemplate(empty), &invalid)
	assert.Equal(t, []string{"at least one step is required"}, invalid.Problems)

	cyclic := chainTemplate()
	cyclic.Steps[0].Dependencies = []string{"S3"}
	var cycle *CycleDetectedError
	assert.ErrorAs(t, ValidateTemplate(cyclic), &cycle)
}

func TestIsStepUnlockable(t *testing.T) {
	tpl := chainTemplate()
	progress := map[string]StepProgress{}
	assert.True(t, IsStepUnlockable(tpl.Steps[0], progress))
	assert.False(t, IsStepUnlockable(tpl.Steps[1], progress))

	progress["S1"] = StepProgress{Status: StepInProgress}
	assert.False(t, IsStepUnlockable(tpl.Steps[1], progress))

	progress["S1"] = StepProgress{Status: StepCompleted}
	assert.True(t, IsStepUnlockable(tpl.Steps[1], progress))

	multi := Step{ID: "X", Dependencies: []string{"z", "S1", "a"}}
	assert.Equal(t, []string{"a", "z"}, MissingDependencies(multi, progress))
}
