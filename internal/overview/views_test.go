package overview

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ronappleton/studioflow/internal/studio"
	"github.com/ronappleton/studioflow/internal/workflow"
)

func TestViewModel(t *testing.T) {
	tpl := twoStepTemplate()
	tpl.Steps[1].DueOffsetDays = 3
	tpl.Steps[1].Notifications.EscalationHours = 24
	started := testNow.Add(-48 * time.Hour)
	w := workflow.Instance{
		ID: "wf", TemplateID: tpl.ID, SessionID: "sess", Status: workflow.StatusActive,
		AnchorDate: workflow.NewDate(2024, 6, 1),
		StepProgress: map[string]workflow.StepProgress{
			"s1": completed(testNow),
			"s2": {Status: workflow.StepInProgress, StartTime: &started},
		},
	}
	ds := Dataset{
		Workflows: []workflow.Instance{w},
		Templates: templates(tpl),
		Sessions:  sessions(studio.SessionSummary{ID: "sess", SchoolName: "Alder High"}),
	}
	vm := NewEngine(ds, testNow).ViewModel(w)

	require.NotNil(t, vm.Template)
	require.NotNil(t, vm.Session)
	require.NotNil(t, vm.CurrentStep)
	assert.Equal(t, "s2", vm.CurrentStep.ID)
	assert.Equal(t, 50.0, vm.ProgressPercent)
	assert.Equal(t, "#3b82f6", vm.StatusColor)
	assert.Equal(t, []string{"s2"}, vm.OverdueSteps)
	assert.True(t, vm.NeedsEscalation)
	require.Len(t, vm.Groups, 2)
	assert.Equal(t, "shoot", vm.Groups[0].Group.ID)
	assert.Equal(t, 100.0, vm.Groups[0].Percent)
	assert.Equal(t, 0.0, vm.Groups[1].Percent)
}

func TestViewModelWithoutTemplate(t *testing.T) {
	w := workflow.Instance{ID: "wf", TemplateID: "gone", Status: workflow.StatusOnHold}
	vm := NewEngine(Dataset{}, testNow).ViewModel(w)
	assert.Nil(t, vm.Template)
	assert.Nil(t, vm.CurrentStep)
	assert.Equal(t, "#f59e0b", vm.StatusColor)
	assert.Equal(t, "#6b7280", StatusColor("archived"))
}

func TestPendingTasksForUser(t *testing.T) {
	tpl := fourStepTemplate()
	ds := Dataset{
		Templates: templates(tpl),
		Workflows: []workflow.Instance{
			{ID: "wf_1", TemplateID: tpl.ID, AnchorDate: workflow.NewDate(2024, 6, 20), StepProgress: map[string]workflow.StepProgress{
				"a": {Status: workflow.StepCompleted, AssignedTo: "u_1"},
				"b": {Status: workflow.StepInProgress, AssignedTo: "u_1"},
				"c": {Status: workflow.StepPending, AssignedTo: "u_2"},
				"d": {Status: workflow.StepPending, AssignedTo: "u_1"},
			}},
			{ID: "wf_2", TemplateID: tpl.ID, StepProgress: map[string]workflow.StepProgress{
				"a": {Status: workflow.StepPending, AssignedTo: "u_1"},
			}},
		},
	}
	e := NewEngine(ds, testNow)
	tasks := e.PendingTasksForUser(e.Workflows(), "u_1")
	require.Len(t, tasks, 3)
	assert.Equal(t, "b", tasks[0].Step.ID)
	assert.Equal(t, "d", tasks[1].Step.ID)
	assert.Equal(t, "wf_2", tasks[2].Workflow.ID)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, "2024-06-21", tasks[0].DueDate.String())
	assert.Nil(t, tasks[2].DueDate)
	assert.Empty(t, e.PendingTasksForUser(e.Workflows(), "nobody"))
}

func TestKanban(t *testing.T) {
	tpl, ok := workflow.DefaultTemplate(workflow.TemplatePortrait)
	require.True(t, ok)
	all := map[string]workflow.StepProgress{}
	for _, s := range tpl.Steps {
		all[s.ID] = completed(testNow)
	}
	editing := map[string]workflow.StepProgress{
		"confirm_booking": completed(testNow),
		"prep_shot_list":  completed(testNow),
		"photo_session":   completed(testNow),
	}
	ds := Dataset{
		Templates: templates(tpl),
		Workflows: []workflow.Instance{
			{ID: "wf_done", TemplateID: tpl.ID, Status: workflow.StatusCompleted, StepProgress: all},
			{ID: "wf_new", TemplateID: tpl.ID, Status: workflow.StatusActive},
			{ID: "wf_edit", TemplateID: tpl.ID, Status: workflow.StatusActive, StepProgress: editing},
			{ID: "wf_orphan", TemplateID: "missing", Status: workflow.StatusActive},
		},
	}
	cols := NewEngine(ds, testNow).Kanban(ds.Workflows)
	var got []string
	for _, c := range cols {
		got = append(got, c.GroupID)
	}
	assert.Equal(t, []string{"pre_shoot", "editing", workflow.UngroupedID, CompletedColumnID}, got)
	assert.Equal(t, "wf_new", cols[0].Cards[0].Workflow.ID)
	assert.Equal(t, "wf_edit", cols[1].Cards[0].Workflow.ID)
	assert.Equal(t, "wf_done", cols[3].Cards[0].Workflow.ID)
}

func TestMatrixAndTimeline(t *testing.T) {
	two, four := twoStepTemplate(), fourStepTemplate()
	ds := Dataset{
		Templates: templates(two, four),
		Workflows: []workflow.Instance{
			{ID: "wf_two", TemplateID: two.ID, TemplateName: two.Name, AnchorDate: workflow.NewDate(2024, 6, 20),
				StepProgress: map[string]workflow.StepProgress{"s1": completed(testNow)}},
			{ID: "wf_four", TemplateID: four.ID, TemplateName: four.Name, AnchorDate: workflow.NewDate(2024, 6, 10)},
		},
	}
	e := NewEngine(ds, testNow)

	m := e.Matrix(ds.Workflows)
	assert.Equal(t, []string{"Shoot", "Edit", "Roster", "Deliver"}, m.Columns)
	require.Len(t, m.Rows, 2)
	assert.Equal(t, workflow.StepCompleted, m.Rows[0].Cells["Shoot"])
	_, has := m.Rows[0].Cells["Roster"]
	assert.False(t, has)
	assert.Equal(t, workflow.StepOverdue, m.Rows[1].Cells["Roster"])

	items := e.Timeline(ds.Workflows)
	require.Len(t, items, 6)
	assert.Equal(t, "wf_four", items[0].InstanceID)
	assert.Equal(t, "2024-06-10", items[0].DueDate.String())
	assert.Equal(t, "s1", items[4].StepID)
	assert.Equal(t, "2024-06-20", items[4].DueDate.String())
}

func TestMatrixWithoutTemplateOrdersColumns(t *testing.T) {
	w := workflow.Instance{ID: "wf", TemplateID: "gone", Status: workflow.StatusActive,
		StepProgress: map[string]workflow.StepProgress{
			"zeta":  completed(testNow),
			"alpha": {Status: workflow.StepPending},
			"mid":   {Status: workflow.StepPending},
			"beta":  completed(testNow),
		}}
	e := NewEngine(Dataset{Workflows: []workflow.Instance{w}}, testNow)
	for i := 0; i < 20; i++ {
		m := e.Matrix([]workflow.Instance{w})
		require.Equal(t, []string{"alpha", "beta", "mid", "zeta"}, m.Columns)
		assert.Equal(t, workflow.StepCompleted, m.Rows[0].Cells["zeta"])
	}
}

func TestWriteCSV(t *testing.T) {
	tpl := twoStepTemplate()
	ds := Dataset{
		Templates: templates(tpl),
		Sessions: sessions(studio.SessionSummary{
			ID: "sess", SchoolName: `Alder "North" High`, Date: "2024-06-20", SessionTypes: []string{"portrait"},
		}),
		Workflows: []workflow.Instance{{
			ID: "wf", TemplateID: tpl.ID, TemplateName: tpl.Name, SessionID: "sess", Status: workflow.StatusActive,
			StepProgress: map[string]workflow.StepProgress{"s1": completed(testNow)},
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, NewEngine(ds, testNow).WriteCSV(&buf, ds.Workflows))
	assert.Equal(t,
		`"School","Session Type","Template","Date","Status","Progress","Shoot","Edit"`+"\r\n"+
			`"Alder ""North"" High","portrait","Portrait Session","2024-06-20","active","50%","completed","pending"`+"\r\n",
		buf.String())
}
