package overview

import (
	"time"

	"github.com/ronappleton/studioflow/internal/studio"
	"github.com/ronappleton/studioflow/internal/workflow"
)

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func twoStepTemplate() workflow.Template {
	return workflow.Template{
		ID:   "tpl_two",
		Name: "Portrait Session",
		Groups: []workflow.Group{
			{ID: "shoot", Name: "Shoot", Order: 1},
			{ID: "edit", Name: "Edit", Order: 2},
		},
		Steps: []workflow.Step{
			{ID: "s1", Title: "Shoot", GroupID: "shoot", EstimatedHours: 1},
			{ID: "s2", Title: "Edit", GroupID: "edit", EstimatedHours: 1, Dependencies: []string{"s1"}},
		},
	}
}

func fourStepTemplate() workflow.Template {
	return workflow.Template{
		ID:   "tpl_four",
		Name: "Sports Team Session",
		Steps: []workflow.Step{
			{ID: "a", Title: "Roster", EstimatedHours: 1, DueOffsetDays: 0},
			{ID: "b", Title: "Shoot", EstimatedHours: 1, DueOffsetDays: 1},
			{ID: "c", Title: "Edit", EstimatedHours: 1, DueOffsetDays: 2},
			{ID: "d", Title: "Deliver", EstimatedHours: 1, DueOffsetDays: 3},
		},
	}
}

func completed(at time.Time) workflow.StepProgress {
	return workflow.StepProgress{Status: workflow.StepCompleted, CompletedAt: ptr(at), UpdatedAt: at}
}

func templates(ts ...workflow.Template) map[string]workflow.Template {
	out := map[string]workflow.Template{}
	for _, t := range ts {
		out[t.ID] = t
	}
	return out
}

func sessions(ss ...studio.SessionSummary) map[string]studio.SessionSummary {
	out := map[string]studio.SessionSummary{}
	for _, s := range ss {
		out[s.ID] = s
	}
	return out
}

func ids(ws []workflow.Instance) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.ID)
	}
	return out
}
